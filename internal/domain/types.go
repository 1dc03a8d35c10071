package domain

import "time"

// ActivationState is the emergency trigger state.
type ActivationState string

const (
	ActivationInactive ActivationState = "inactive"
	ActivationActive   ActivationState = "active"
)

// ListeningState models the voice keyword listener lifecycle.
type ListeningState string

const (
	ListeningIdle                 ListeningState = "idle"
	ListeningRequestingPermission ListeningState = "requesting-permission"
	ListeningActive               ListeningState = "listening"
	ListeningError                ListeningState = "error"
)

// ListeningReason gives a structured reason for listener transitions.
type ListeningReason string

const (
	ListeningReasonStarted          ListeningReason = "started"
	ListeningReasonStopped          ListeningReason = "stopped"
	ListeningReasonRestarted        ListeningReason = "restarted"
	ListeningReasonPermissionDenied ListeningReason = "permission_denied"
	ListeningReasonUnsupported      ListeningReason = "unsupported"
	ListeningReasonRecognizerFailed ListeningReason = "recognizer_failed"
	ListeningReasonRestartStorm     ListeningReason = "restart_storm"
)

// PermissionResult is the outcome of a permission request. It is cached in
// memory for the lifetime of the process only.
type PermissionResult string

const (
	PermissionGranted     PermissionResult = "granted"
	PermissionDenied      PermissionResult = "denied"
	PermissionUnknown     PermissionResult = "unknown"
	PermissionUnsupported PermissionResult = "unsupported"
)

// Availability is the tri-state result of a capability probe.
type Availability string

const (
	Available   Availability = "available"
	Unavailable Availability = "unavailable"
	Unknown     Availability = "unknown"
)

// TriggerSource identifies what flipped the activation state.
type TriggerSource string

const (
	TriggerManual TriggerSource = "manual"
	TriggerVoice  TriggerSource = "voice"
	TriggerAPI    TriggerSource = "api"
)

// NoticeVariant selects the styling of a user-facing notice.
type NoticeVariant string

const (
	NoticeDefault     NoticeVariant = "default"
	NoticeDestructive NoticeVariant = "destructive"
)

// Notice is a transient, dismissible notification shown to the user.
type Notice struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Variant     NoticeVariant `json:"variant"`
	DurationMS  int64         `json:"durationMs,omitempty"`
}

// NewNotice builds a notice that stays visible for d.
func NewNotice(title, description string, variant NoticeVariant, d time.Duration) Notice {
	return Notice{Title: title, Description: description, Variant: variant, DurationMS: d.Milliseconds()}
}

// Coordinate is a single geolocation fix.
type Coordinate struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EmergencyMessage is derived per activation edge and never stored.
type EmergencyMessage struct {
	Text     string      `json:"text"`
	Location string      `json:"location"`
	Position *Coordinate `json:"position,omitempty"`
	// Degraded holds the reason the sentinel was used, if any.
	Degraded string `json:"degraded,omitempty"`
}

// RecognitionResult is one result from a speech recognizer.
type RecognitionResult struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Guardian is a trusted contact who may see the user's location.
type Guardian struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}
