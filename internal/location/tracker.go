package location

import (
	"context"
	"sync"
	"time"

	"github.com/Sabith-07/WISE/internal/domain"
)

// Requester asks connected devices for a fresh fix. It reports false when no
// device can answer, so the tracker fails fast instead of waiting.
type Requester interface {
	RequestFix() bool
}

// Tracker holds fixes and failures reported by a device (the browser's
// geolocation watch) and serves them as a Locator.
type Tracker struct {
	maxAge    time.Duration
	requester Requester
	now       func() time.Time

	mu      sync.Mutex
	last    *domain.Coordinate
	lastErr error
	errAt   time.Time
	waiters []chan struct{}
	subs    map[int]func(domain.Coordinate, error)
	nextSub int
}

// NewTracker returns a tracker that treats fixes older than maxAge as stale.
// requester may be nil.
func NewTracker(maxAge time.Duration, requester Requester) *Tracker {
	return &Tracker{
		maxAge:    maxAge,
		requester: requester,
		now:       time.Now,
		subs:      make(map[int]func(domain.Coordinate, error)),
	}
}

// SetRequester wires the device request path after construction.
func (t *Tracker) SetRequester(r Requester) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requester = r
}

// Report records a fix from the device.
func (t *Tracker) Report(fix domain.Coordinate) {
	if fix.Timestamp.IsZero() {
		fix.Timestamp = t.now()
	}

	t.mu.Lock()
	t.last = &fix
	t.lastErr = nil
	waiters := t.takeWaitersLocked()
	subs := t.subscribersLocked()
	t.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
	for _, fn := range subs {
		fn(fix, nil)
	}
}

// ReportError records a device-side failure (denied, unavailable, timeout).
func (t *Tracker) ReportError(err error) {
	t.mu.Lock()
	t.lastErr = err
	t.errAt = t.now()
	waiters := t.takeWaitersLocked()
	subs := t.subscribersLocked()
	t.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
	for _, fn := range subs {
		fn(domain.Coordinate{}, err)
	}
}

// Latest returns the most recent fix regardless of age.
func (t *Tracker) Latest() (domain.Coordinate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return domain.Coordinate{}, false
	}
	return *t.last, true
}

// Subscribe registers fn for every future fix or failure. The returned func
// unsubscribes.
func (t *Tracker) Subscribe(fn func(domain.Coordinate, error)) func() {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// CurrentPosition returns a fresh fix, asking the device for one if needed.
func (t *Tracker) CurrentPosition(ctx context.Context) (domain.Coordinate, error) {
	t.mu.Lock()
	if fix, ok := t.freshLocked(); ok {
		t.mu.Unlock()
		return fix, nil
	}
	requester := t.requester
	wait := make(chan struct{})
	t.waiters = append(t.waiters, wait)
	t.mu.Unlock()

	if requester == nil || !requester.RequestFix() {
		t.dropWaiter(wait)
		return domain.Coordinate{}, t.failure()
	}

	select {
	case <-wait:
	case <-ctx.Done():
		t.dropWaiter(wait)
		return domain.Coordinate{}, ctx.Err()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if fix, ok := t.freshLocked(); ok {
		return fix, nil
	}
	if t.lastErr != nil {
		return domain.Coordinate{}, t.lastErr
	}
	return domain.Coordinate{}, domain.ErrResolutionUnavailable
}

// failure reports the recorded device error, or unavailable.
func (t *Tracker) failure() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastErr != nil {
		return t.lastErr
	}
	return domain.ErrResolutionUnavailable
}

func (t *Tracker) freshLocked() (domain.Coordinate, bool) {
	if t.last == nil {
		return domain.Coordinate{}, false
	}
	if t.maxAge > 0 && t.now().Sub(t.last.Timestamp) > t.maxAge {
		return domain.Coordinate{}, false
	}
	return *t.last, true
}

func (t *Tracker) takeWaitersLocked() []chan struct{} {
	w := t.waiters
	t.waiters = nil
	return w
}

func (t *Tracker) subscribersLocked() []func(domain.Coordinate, error) {
	out := make([]func(domain.Coordinate, error), 0, len(t.subs))
	for _, fn := range t.subs {
		out = append(out, fn)
	}
	return out
}

func (t *Tracker) dropWaiter(w chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, c := range t.waiters {
		if c == w {
			t.waiters = append(t.waiters[:i], t.waiters[i+1:]...)
			return
		}
	}
}
