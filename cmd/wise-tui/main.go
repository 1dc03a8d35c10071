package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Sabith-07/WISE/internal/tui/app"
	"github.com/Sabith-07/WISE/internal/tui/client"
)

var (
	wsURL string
	token string
)

var rootCmd = &cobra.Command{
	Use:   "wise-tui",
	Short: "Terminal console for a running wise-server",
	Long: `wise-tui mirrors the live SOS, voice, location and fake call state of a
wise-server and drives it from the keyboard.

Keys: s SOS, v voice trigger, l location sharing, r route monitoring,
f fake call, q quit.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		stream := client.NewWSClient(wsURL, token)
		defer stream.Close()
		api := client.NewHTTPClient(deriveHTTPBase(wsURL), token)

		p := tea.NewProgram(app.New(stream, api), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.Flags().StringVar(&wsURL, "url", "ws://127.0.0.1:8080/ws", "WebSocket URL of the WISE server")
	rootCmd.Flags().StringVar(&token, "token", os.Getenv("WISE_AUTH_TOKEN"), "Auth token (if the server requires one)")
}

// deriveHTTPBase converts ws://host:port/ws to http://host:port.
func deriveHTTPBase(wsURL string) string {
	u, err := url.Parse(wsURL)
	if err != nil || u.Host == "" {
		return "http://127.0.0.1:8080"
	}
	scheme := "http"
	if strings.HasPrefix(u.Scheme, "wss") {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
