package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/logging"
)

// Sender delivers one SMS and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, to, body string) (string, error)

func (f SenderFunc) Send(ctx context.Context, to, body string) (string, error) {
	return f(ctx, to, body)
}

// Result is the reply to a successful notification request.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
}

// Service validates and sends notifications.
type Service struct {
	sender Sender
	logger *zap.Logger
}

func NewService(sender Sender, logger *zap.Logger) *Service {
	return &Service{sender: sender, logger: logging.OrNop(logger)}
}

// Send validates the request, normalizes the number and hands it to the
// provider. Validation failures wrap domain.ErrProviderValidation and never
// reach the provider; provider failures wrap domain.ErrProviderDispatch.
func (s *Service) Send(ctx context.Context, phone, message string) (Result, error) {
	if strings.TrimSpace(phone) == "" || strings.TrimSpace(message) == "" {
		return Result{}, fmt.Errorf("%w: phone number and message are required", domain.ErrProviderValidation)
	}
	to, err := NormalizePhone(phone)
	if err != nil {
		return Result{}, err
	}
	if s.sender == nil {
		return Result{}, fmt.Errorf("%w: sms provider is not configured", domain.ErrProviderDispatch)
	}

	id, err := s.sender.Send(ctx, to, message)
	if err != nil {
		s.logger.Error("sms send failed", zap.String("to", to), zap.Error(err))
		if errors.Is(err, domain.ErrProviderDispatch) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %v", domain.ErrProviderDispatch, err)
	}
	s.logger.Info("sms sent", zap.String("to", to), zap.String("message_id", id))
	return Result{Success: true, MessageID: id}, nil
}

// Text sends body to to and returns the message id. It lets the alert
// dispatcher text guardians.
func (s *Service) Text(ctx context.Context, to, body string) (string, error) {
	res, err := s.Send(ctx, to, body)
	return res.MessageID, err
}
