// Package device describes the side effects the server asks a connected UI
// client to perform: vibration, notices, opening links and the ringtone.
package device

import (
	"context"
	"time"

	"github.com/Sabith-07/WISE/internal/domain"
)

// Notifier shows a transient notice to the user.
type Notifier interface {
	Notify(n domain.Notice)
}

// Opener opens a URL in a new browsing context.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// Vibrator starts and stops a repeating vibration pattern.
type Vibrator interface {
	Start(pattern []time.Duration) error
	Stop() error
}

// Ringer plays or stops a looping ringtone.
type Ringer interface {
	Ring(loop bool) error
	Silence() error
}

// Commander is a one-shot device command channel. Vibrate with an empty
// pattern cancels any vibration in progress.
type Commander interface {
	Vibrate(pattern []time.Duration) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(domain.Notice)

func (f NotifierFunc) Notify(n domain.Notice) { f(n) }

// NopNotifier drops every notice.
type NopNotifier struct{}

func (NopNotifier) Notify(domain.Notice) {}
