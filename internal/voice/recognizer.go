// Package voice listens for the emergency keyword in continuous speech
// recognition and activates the trigger when it is heard.
package voice

import (
	"context"

	"github.com/Sabith-07/WISE/internal/domain"
)

// Recognizer starts continuous recognition sessions. A session ends on its
// own when the underlying engine stops; the listener restarts it.
type Recognizer interface {
	Start(ctx context.Context) (Session, error)
}

// Session is one live recognition session.
type Session interface {
	// Results is closed when the session ends.
	Results() <-chan domain.RecognitionResult
	// Wait blocks until the session ends and reports why. A nil error means
	// the engine ended the session normally.
	Wait() error
	Close() error
}

// Feeder accepts results from a recognizer running outside the process.
type Feeder interface {
	Feed(result domain.RecognitionResult) error
}

// Terminator lets a recognizer running outside the process report that its
// session ended, either normally or with an engine error.
type Terminator interface {
	End() error
	Fail(err error) error
}
