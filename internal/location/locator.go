// Package location resolves the user's position: a single fix for alerts and
// a stream of fixes for live sharing.
package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sabith-07/WISE/internal/domain"
)

// Locator resolves a single position fix.
type Locator interface {
	CurrentPosition(ctx context.Context) (domain.Coordinate, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (domain.Coordinate, error)

func (f LocatorFunc) CurrentPosition(ctx context.Context) (domain.Coordinate, error) {
	return f(ctx)
}

// Resolve asks loc for one fix, bounded by timeout. Context expiry is
// reported as domain.ErrResolutionTimeout; a nil locator as
// domain.ErrUnsupportedCapability.
func Resolve(ctx context.Context, loc Locator, timeout time.Duration) (domain.Coordinate, error) {
	if loc == nil {
		return domain.Coordinate{}, domain.ErrUnsupportedCapability
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	fix, err := loc.CurrentPosition(ctx)
	if err == nil {
		return fix, nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Coordinate{}, fmt.Errorf("%w: %v", domain.ErrResolutionTimeout, err)
	}
	return domain.Coordinate{}, err
}

// Static always returns the same configured fix.
type Static struct {
	Fix domain.Coordinate
}

func NewStatic(lat, lng float64) *Static {
	return &Static{Fix: domain.Coordinate{Latitude: lat, Longitude: lng}}
}

func (s *Static) CurrentPosition(context.Context) (domain.Coordinate, error) {
	fix := s.Fix
	fix.Timestamp = time.Now()
	return fix, nil
}

// Chain tries each locator in order and returns the first fix. When all
// fail, the first error is returned since it comes from the preferred
// source.
type Chain []Locator

func (c Chain) CurrentPosition(ctx context.Context) (domain.Coordinate, error) {
	var first error
	for _, loc := range c {
		if loc == nil {
			continue
		}
		fix, err := loc.CurrentPosition(ctx)
		if err == nil {
			return fix, nil
		}
		if first == nil {
			first = err
		}
		if ctx.Err() != nil {
			break
		}
	}
	if first == nil {
		first = domain.ErrUnsupportedCapability
	}
	return domain.Coordinate{}, first
}
