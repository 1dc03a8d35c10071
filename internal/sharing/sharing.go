// Package sharing controls live location sharing and route monitoring with
// the user's guardians.
package sharing

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Sabith-07/WISE/internal/device"
	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/logging"
	"github.com/Sabith-07/WISE/internal/session"
)

// Subscriber streams device fixes. location.Tracker implements it.
type Subscriber interface {
	Subscribe(fn func(domain.Coordinate, error)) (unsubscribe func())
}

// Service owns the sharing and route monitoring toggles.
type Service struct {
	fixes    Subscriber
	geo      domain.Availability
	store    *session.Store
	notifier device.Notifier
	logger   *zap.Logger

	mu          sync.Mutex
	sharing     bool
	monitoring  bool
	unsubscribe func()
}

// NewService builds the service. geo is the startup geolocation capability;
// sharing cannot be enabled when it is unavailable.
func NewService(fixes Subscriber, geo domain.Availability, store *session.Store, notifier device.Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = device.NopNotifier{}
	}
	return &Service{
		fixes:    fixes,
		geo:      geo,
		store:    store,
		notifier: notifier,
		logger:   logging.OrNop(logger),
	}
}

// Sharing reports whether live location sharing is on.
func (s *Service) Sharing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sharing
}

// RouteMonitoring reports whether route monitoring is on.
func (s *Service) RouteMonitoring() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitoring
}

// SetSharing turns live sharing on or off. While on, every device fix is
// written to the session and so broadcast to clients.
func (s *Service) SetSharing(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if enabled && (s.geo == domain.Unavailable || s.fixes == nil) {
		s.notifier.Notify(domain.NewNotice("Location Access Required",
			"Please enable location services to share your location.",
			domain.NoticeDestructive, 5*time.Second))
		return domain.ErrUnsupportedCapability
	}
	if enabled == s.sharing {
		return nil
	}

	s.sharing = enabled
	if enabled {
		s.unsubscribe = s.fixes.Subscribe(s.onFix)
	} else if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.update(func(st *session.State) {
		st.Sharing = enabled
		if !enabled {
			st.Position = nil
			st.LocationError = ""
		}
	})

	if enabled {
		s.notifier.Notify(domain.NewNotice("Location Sharing Activated",
			"Your live location is now being shared with selected guardians.",
			domain.NoticeDefault, 3*time.Second))
	} else {
		s.notifier.Notify(domain.NewNotice("Location Sharing Deactivated",
			"Live location sharing has been stopped.",
			domain.NoticeDefault, 3*time.Second))
	}
	s.logger.Info("location sharing", zap.Bool("enabled", enabled))
	return nil
}

// SetRouteMonitoring turns route monitoring on or off.
func (s *Service) SetRouteMonitoring(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled == s.monitoring {
		return
	}
	s.monitoring = enabled
	s.update(func(st *session.State) { st.RouteMonitoring = enabled })

	if enabled {
		s.notifier.Notify(domain.NewNotice("Route Monitoring Activated",
			"Your journey is now being actively monitored by your guardians.",
			domain.NoticeDefault, 3*time.Second))
	} else {
		s.notifier.Notify(domain.NewNotice("Route Monitoring Deactivated",
			"Your journey is no longer being monitored.",
			domain.NoticeDefault, 3*time.Second))
	}
	s.logger.Info("route monitoring", zap.Bool("enabled", enabled))
}

// Close stops following fixes.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Service) onFix(fix domain.Coordinate, err error) {
	if err != nil {
		msg := ErrorMessage(err)
		s.update(func(st *session.State) {
			if st.Sharing {
				st.LocationError = msg
			}
		})
		return
	}
	s.update(func(st *session.State) {
		if st.Sharing {
			pos := fix
			st.Position = &pos
			st.LocationError = ""
		}
	})
}

func (s *Service) update(fn func(*session.State)) {
	if s.store != nil {
		s.store.Update(session.EventLocation, fn)
	}
}

// ErrorMessage turns a location failure into the text shown to the user.
func ErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrPermissionDenied):
		return "Location permission denied. Please enable location services in your browser settings."
	case errors.Is(err, domain.ErrResolutionTimeout):
		return "Location request timed out. Please try again."
	case errors.Is(err, domain.ErrUnsupportedCapability):
		return "Geolocation is not supported by your browser"
	case errors.Is(err, domain.ErrResolutionUnavailable):
		return "Location information unavailable. Please check your device settings."
	default:
		return "Failed to track your location"
	}
}
