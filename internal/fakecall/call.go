package fakecall

import (
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Sabith-07/WISE/internal/device"
	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/logging"
	"github.com/Sabith-07/WISE/internal/session"
)

// ErrNotRinging is returned by End when no call is in progress.
var ErrNotRinging = errors.New("no fake call is ringing")

// Call simulates an incoming call: a repeating vibration and a looping
// ringtone until the user ends it.
type Call struct {
	vibrator device.Vibrator
	ringer   device.Ringer
	notifier device.Notifier
	store    *session.Store
	pattern  []time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	ringing bool
	caller  string
}

func NewCall(
	vibrator device.Vibrator,
	ringer device.Ringer,
	notifier device.Notifier,
	store *session.Store,
	pattern []time.Duration,
	logger *zap.Logger,
) *Call {
	if notifier == nil {
		notifier = device.NopNotifier{}
	}
	return &Call{
		vibrator: vibrator,
		ringer:   ringer,
		notifier: notifier,
		store:    store,
		pattern:  pattern,
		logger:   logging.OrNop(logger),
	}
}

// Ringing reports whether a call is in progress and who is calling.
func (c *Call) Ringing() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ringing, c.caller
}

// Ring starts the call. Ringing an already ringing call does nothing.
func (c *Call) Ring(caller string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ringing {
		return
	}
	c.ringing = true
	c.caller = strings.TrimSpace(caller)
	c.publish()

	if c.vibrator != nil {
		if err := c.vibrator.Start(c.pattern); err != nil {
			c.logger.Warn("fake call vibration failed", zap.Error(err))
		}
	}

	var err error
	if c.ringer == nil {
		err = domain.ErrUnsupportedCapability
	} else {
		err = c.ringer.Ring(true)
	}
	if err != nil {
		c.logger.Warn("ringtone playback failed", zap.Error(err))
		c.notifier.Notify(domain.NewNotice("Audio Playback Error",
			"Please click anywhere on the page first to enable sound.",
			domain.NoticeDestructive, 0))
	}
	c.logger.Info("fake call ringing", zap.String("caller", c.caller))
}

// End stops the ringing and vibration.
func (c *Call) End() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ringing {
		return ErrNotRinging
	}
	c.ringing = false
	c.caller = ""
	c.publish()

	if c.vibrator != nil {
		if err := c.vibrator.Stop(); err != nil {
			c.logger.Warn("fake call vibration stop failed", zap.Error(err))
		}
	}
	if c.ringer != nil {
		if err := c.ringer.Silence(); err != nil {
			c.logger.Warn("ringtone stop failed", zap.Error(err))
		}
	}
	c.notifier.Notify(domain.NewNotice("Call Ended", "The fake call has been ended.",
		domain.NoticeDefault, 3*time.Second))
	return nil
}

func (c *Call) publish() {
	if c.store == nil {
		return
	}
	ringing, caller := c.ringing, c.caller
	c.store.Update(session.EventFakeCall, func(st *session.State) {
		st.FakeCallRinging = ringing
		st.FakeCallCaller = caller
	})
}
