// Package fakecall generates believable fake incoming call scenarios and
// simulates the call ringing on the user's device.
package fakecall

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Sabith-07/WISE/internal/device"
	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/logging"
)

// Request is the user's fake call setup.
type Request struct {
	CallerID           string `json:"callerId"`
	PreRecordedMessage string `json:"preRecordedMessage"`
}

// Validate applies the form limits: caller id 1-30 characters, message
// 10-300 characters.
func (r Request) Validate() error {
	caller := utf8.RuneCountInString(strings.TrimSpace(r.CallerID))
	msg := utf8.RuneCountInString(strings.TrimSpace(r.PreRecordedMessage))
	switch {
	case caller == 0 || msg == 0:
		return fmt.Errorf("%w: Caller ID and message are required.", domain.ErrProviderValidation)
	case caller > 30:
		return fmt.Errorf("%w: Caller ID must be 30 characters or less.", domain.ErrProviderValidation)
	case msg < 10:
		return fmt.Errorf("%w: Message must be at least 10 characters.", domain.ErrProviderValidation)
	case msg > 300:
		return fmt.Errorf("%w: Message must be 300 characters or less.", domain.ErrProviderValidation)
	}
	return nil
}

// Scenario is the generated description of the call.
type Scenario struct {
	ScenarioDescription string `json:"scenarioDescription"`
}

// Result mirrors the action reply shape: success with data, or an error.
type Result struct {
	Success bool      `json:"success"`
	Data    *Scenario `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Generator writes a scenario description from a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

var errEmptyScenario = errors.New("Failed to generate scenario description from AI.")

// Service validates requests and asks the generator for a scenario. It never
// returns an error; failures are reported in the Result.
type Service struct {
	gen      Generator
	notifier device.Notifier
	logger   *zap.Logger
}

func NewService(gen Generator, notifier device.Notifier, logger *zap.Logger) *Service {
	return &Service{gen: gen, notifier: notifier, logger: logging.OrNop(logger)}
}

func (s *Service) Generate(ctx context.Context, req Request) Result {
	req.CallerID = strings.TrimSpace(req.CallerID)
	req.PreRecordedMessage = strings.TrimSpace(req.PreRecordedMessage)

	if err := req.Validate(); err != nil {
		return s.failed(err)
	}
	if s.gen == nil {
		return s.failed(fmt.Errorf("%w: scenario generator is not configured", domain.ErrUnsupportedCapability))
	}

	desc, err := s.gen.Generate(ctx, req)
	if err != nil {
		s.logger.Error("fake call generation failed", zap.Error(err))
		return s.failed(err)
	}
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return s.failed(errEmptyScenario)
	}

	s.notify(domain.NewNotice("Fake Call Scenario Generated!",
		`Review the scenario below. You can "receive" this call now.`,
		domain.NoticeDefault, 0))
	return Result{Success: true, Data: &Scenario{ScenarioDescription: desc}}
}

func (s *Service) failed(err error) Result {
	msg := err.Error()
	// Validation messages are shown to the user without the sentinel prefix.
	if errors.Is(err, domain.ErrProviderValidation) {
		msg = strings.TrimPrefix(msg, domain.ErrProviderValidation.Error()+": ")
	}
	s.notify(domain.NewNotice("Error Generating Scenario", msg, domain.NoticeDestructive, 0))
	return Result{Success: false, Error: msg}
}

func (s *Service) notify(n domain.Notice) {
	if s.notifier != nil {
		s.notifier.Notify(n)
	}
}
