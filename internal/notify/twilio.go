package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/Sabith-07/WISE/internal/domain"
)

// TwilioConfig holds the Messages API credentials.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

// Configured reports whether every credential is present.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

// TwilioSender sends SMS through the Twilio Messages API.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(cfg TwilioConfig) (*TwilioSender, error) {
	if !cfg.Configured() {
		return nil, errors.New("twilio account sid, auth token and from number are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{client: client, from: cfg.From}, nil
}

// Send creates one message. The Twilio client has no context support, so ctx
// is only checked before the request goes out.
func (t *TwilioSender) Send(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("%w: twilio: %v", domain.ErrProviderDispatch, err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("%w: twilio returned no message sid", domain.ErrProviderDispatch)
	}
	return *resp.Sid, nil
}
