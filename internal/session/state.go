package session

import (
	"time"

	"github.com/Sabith-07/WISE/internal/domain"
)

// State is the volatile UI session: everything the original kept in page
// components. It is never persisted.
type State struct {
	Activation       domain.ActivationState `json:"activation"`
	ActivationSource domain.TriggerSource   `json:"activationSource,omitempty"`
	ActivatedAt      time.Time              `json:"activatedAt,omitempty"`
	Edge             uint64                 `json:"edge"`

	Listening       domain.ListeningState   `json:"listening"`
	ListeningReason domain.ListeningReason  `json:"listeningReason,omitempty"`
	Microphone      domain.PermissionResult `json:"microphone"`

	Sharing         bool               `json:"sharing"`
	RouteMonitoring bool               `json:"routeMonitoring"`
	Position        *domain.Coordinate `json:"position,omitempty"`
	LocationError   string             `json:"locationError,omitempty"`

	FakeCallRinging bool   `json:"fakeCallRinging"`
	FakeCallCaller  string `json:"fakeCallCaller,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// NewState returns the state of a freshly loaded page.
func NewState() State {
	return State{
		Activation: domain.ActivationInactive,
		Listening:  domain.ListeningIdle,
		Microphone: domain.PermissionUnknown,
	}
}

// IsActive reports whether the emergency state is on.
func (s State) IsActive() bool {
	return s.Activation == domain.ActivationActive
}

func (s State) clone() State {
	cp := s
	if s.Position != nil {
		pos := *s.Position
		cp.Position = &pos
	}
	return cp
}
