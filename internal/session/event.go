package session

// EventType classifies session changes.
type EventType int

const (
	EventActivation EventType = iota // SOS toggled
	EventListening                   // voice listener transition
	EventLocation                    // fix or location error
	EventSharing                     // sharing / route monitoring toggles
	EventFakeCall                    // fake call ring / end
)

func (t EventType) String() string {
	switch t {
	case EventActivation:
		return "activation"
	case EventListening:
		return "listening"
	case EventLocation:
		return "location"
	case EventSharing:
		return "sharing"
	case EventFakeCall:
		return "fake_call"
	default:
		return "unknown"
	}
}

// Event carries a state snapshot to observers.
type Event struct {
	Type  EventType
	State State // snapshot (safe to retain)
}

// Publisher receives every committed change.
type Publisher interface {
	Publish(Event)
}
