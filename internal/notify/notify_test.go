package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sabith-07/WISE/internal/domain"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"9876543210", "+919876543210"},
		{"919876543210", "+919876543210"},
		{"+919876543210", "+919876543210"},
		{"+91 98765-43210", "+919876543210"},
		{"9123456789", "+919123456789"},
		{"9198765432", "+919198765432"},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizePhoneRejects(t *testing.T) {
	for _, in := range []string{"12345", "5876543210", "+19876543210", "98765432101", "", "+91987654321x"} {
		_, err := NormalizePhone(in)
		assert.ErrorIs(t, err, domain.ErrProviderValidation, in)
	}
}

type recordingSender struct {
	calls []string
	err   error
}

func (s *recordingSender) Send(_ context.Context, to, _ string) (string, error) {
	s.calls = append(s.calls, to)
	if s.err != nil {
		return "", s.err
	}
	return "SM123", nil
}

func TestSendNormalizesAndReturnsID(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, nil)

	res, err := svc.Send(context.Background(), "9876543210", "Need help")
	require.NoError(t, err)
	assert.Equal(t, Result{Success: true, MessageID: "SM123"}, res)
	assert.Equal(t, []string{"+919876543210"}, sender.calls)
}

func TestSendInvalidNeverCallsProvider(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, nil)

	_, err := svc.Send(context.Background(), "12345", "Need help")
	assert.ErrorIs(t, err, domain.ErrProviderValidation)

	_, err = svc.Send(context.Background(), "9876543210", "  ")
	assert.ErrorIs(t, err, domain.ErrProviderValidation)

	assert.Empty(t, sender.calls)
}

func TestSendProviderFailure(t *testing.T) {
	svc := NewService(&recordingSender{err: errors.New("401 unauthorized")}, nil)

	_, err := svc.Send(context.Background(), "+919876543210", "Need help")
	assert.ErrorIs(t, err, domain.ErrProviderDispatch)
	assert.Contains(t, err.Error(), "401")
}

func TestSendWithoutProvider(t *testing.T) {
	_, err := NewService(nil, nil).Send(context.Background(), "9876543210", "Need help")
	assert.ErrorIs(t, err, domain.ErrProviderDispatch)
}

func TestNewTwilioSenderRequiresCredentials(t *testing.T) {
	_, err := NewTwilioSender(TwilioConfig{AccountSID: "AC1", AuthToken: "tok"})
	assert.Error(t, err)

	s, err := NewTwilioSender(TwilioConfig{AccountSID: "AC1", AuthToken: "tok", From: "+15005550006"})
	require.NoError(t, err)
	assert.Equal(t, "+15005550006", s.from)
}
