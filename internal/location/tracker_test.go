package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sabith-07/WISE/internal/domain"
)

type fakeRequester struct {
	ok    bool
	onAsk func()
	asked int
}

func (r *fakeRequester) RequestFix() bool {
	r.asked++
	if r.onAsk != nil {
		go r.onAsk()
	}
	return r.ok
}

func TestTrackerReturnsFreshFix(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	tr.Report(domain.Coordinate{Latitude: 12.97, Longitude: 77.59})

	fix, err := tr.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12.97, fix.Latitude)
	assert.False(t, fix.Timestamp.IsZero())
}

func TestTrackerStaleFixWithoutDeviceIsUnavailable(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	base := time.Now()
	tr.now = func() time.Time { return base }
	tr.Report(domain.Coordinate{Latitude: 1, Longitude: 1})
	tr.now = func() time.Time { return base.Add(2 * time.Minute) }

	_, err := tr.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, domain.ErrResolutionUnavailable)
}

func TestTrackerAsksDeviceAndWaits(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	req := &fakeRequester{ok: true}
	req.onAsk = func() { tr.Report(domain.Coordinate{Latitude: 3, Longitude: 4}) }
	tr.SetRequester(req)

	fix, err := tr.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3.0, fix.Latitude)
	assert.Equal(t, 1, req.asked)
}

func TestTrackerDeviceDenied(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	req := &fakeRequester{ok: true}
	req.onAsk = func() { tr.ReportError(domain.ErrPermissionDenied) }
	tr.SetRequester(req)

	_, err := tr.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestTrackerTimeoutMapsToResolutionTimeout(t *testing.T) {
	tr := NewTracker(time.Minute, &fakeRequester{ok: true})

	_, err := Resolve(context.Background(), tr, 20*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrResolutionTimeout)

	tr.mu.Lock()
	pending := len(tr.waiters)
	tr.mu.Unlock()
	assert.Zero(t, pending, "timed-out waiter should be dropped")
}

func TestTrackerSubscribe(t *testing.T) {
	tr := NewTracker(time.Minute, nil)

	var fixes []domain.Coordinate
	var errs []error
	unsubscribe := tr.Subscribe(func(c domain.Coordinate, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		fixes = append(fixes, c)
	})

	tr.Report(domain.Coordinate{Latitude: 1})
	tr.ReportError(domain.ErrResolutionUnavailable)
	unsubscribe()
	tr.Report(domain.Coordinate{Latitude: 2})

	assert.Len(t, fixes, 1)
	assert.Len(t, errs, 1)
}

func TestResolveNilLocator(t *testing.T) {
	_, err := Resolve(context.Background(), nil, time.Second)
	assert.ErrorIs(t, err, domain.ErrUnsupportedCapability)
}

func TestChainFallsBackToStatic(t *testing.T) {
	failing := LocatorFunc(func(context.Context) (domain.Coordinate, error) {
		return domain.Coordinate{}, domain.ErrPermissionDenied
	})
	chain := Chain{failing, NewStatic(28.61, 77.20)}

	fix, err := chain.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 28.61, fix.Latitude)
}

func TestChainReturnsFirstError(t *testing.T) {
	denied := LocatorFunc(func(context.Context) (domain.Coordinate, error) {
		return domain.Coordinate{}, domain.ErrPermissionDenied
	})
	unavailable := LocatorFunc(func(context.Context) (domain.Coordinate, error) {
		return domain.Coordinate{}, domain.ErrResolutionUnavailable
	})

	_, err := Chain{denied, unavailable}.CurrentPosition(context.Background())
	assert.True(t, errors.Is(err, domain.ErrPermissionDenied))

	_, err = Chain{}.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnsupportedCapability)
}
