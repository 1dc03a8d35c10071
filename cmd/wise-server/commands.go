package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sabith-07/WISE/internal/notify"
	"github.com/Sabith-07/WISE/internal/safety"
	"github.com/Sabith-07/WISE/internal/ws"
)

var (
	notifyTo      string
	notifyMessage string
	scoreJSON     bool
)

// notifyCmd sends one SMS through the same path as POST /api/notifications.
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send one SMS notification to an Indian mobile number",
	Long: `Validates and normalizes the number (+91XXXXXXXXXX), then sends the
message through the configured Twilio account.

Example:
  wise-server notify --to 9876543210 --message "Reached home safely"`,
	RunE: runNotify,
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Print the safety score for the configured area metrics",
	RunE:  runScore,
}

func init() {
	notifyCmd.Flags().StringVar(&notifyTo, "to", "", "Recipient phone number")
	notifyCmd.Flags().StringVar(&notifyMessage, "message", "", "Message body")
	_ = notifyCmd.MarkFlagRequired("to")
	_ = notifyCmd.MarkFlagRequired("message")

	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Print the report as JSON")
}

func runNotify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sender := smsSender(cfg, nil, logger)
	if sender == nil {
		return errors.New("sms provider is not configured: set TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER")
	}

	res, err := notify.NewService(sender, logger).Send(cmd.Context(), notifyTo, notifyMessage)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", res.MessageID)
	return nil
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	report := safety.Evaluate(ws.MetricsFrom(cfg.Safety))

	out := cmd.OutOrStdout()
	if scoreJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	m := report.Metrics
	fmt.Fprintf(out, "Lighting          %3d\n", m.Lighting)
	fmt.Fprintf(out, "Crime rate        %3d\n", m.CrimeRate)
	fmt.Fprintf(out, "Crowd density     %3d\n", m.CrowdDensity)
	fmt.Fprintf(out, "Surveillance      %3d\n", m.Surveillance)
	fmt.Fprintf(out, "Community rating  %3d\n", m.CommunityRating)
	fmt.Fprintf(out, "Overall           %3d (%s)\n", report.Overall, report.Band)
	return nil
}
