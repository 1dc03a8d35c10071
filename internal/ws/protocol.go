package ws

import (
	"github.com/Sabith-07/WISE/internal/capability"
	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/session"
)

type MessageType string

const (
	MsgSnapshot   MessageType = "snapshot"
	MsgActivation MessageType = "activation"
	MsgListening  MessageType = "listening"
	MsgNotice     MessageType = "notice"
	MsgVibrate    MessageType = "vibrate"
	MsgOpenURL    MessageType = "open_url"
	MsgRingtone   MessageType = "ringtone"
	MsgLocation   MessageType = "location"
	MsgLocate     MessageType = "locate"
	MsgGuardians  MessageType = "guardians"
	MsgFakeCall   MessageType = "fake_call"
	MsgError      MessageType = "error"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

type SnapshotPayload struct {
	State        session.State     `json:"state"`
	Guardians    []domain.Guardian `json:"guardians"`
	Capabilities capability.Report `json:"capabilities"`
}

// StatePayload carries the session after an activation, listening, location
// or fake call change.
type StatePayload struct {
	State session.State `json:"state"`
}

type VibratePayload struct {
	// PatternMS alternates on/off durations. Empty cancels vibration.
	PatternMS []int64 `json:"patternMs"`
}

type OpenURLPayload struct {
	URL    string `json:"url"`
	Target string `json:"target"`
}

type RingtonePayload struct {
	Play bool `json:"play"`
	Loop bool `json:"loop"`
}

type GuardiansPayload struct {
	Guardians []domain.Guardian `json:"guardians"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// eventMessageType maps a store event to the message clients receive.
func eventMessageType(t session.EventType) MessageType {
	switch t {
	case session.EventActivation:
		return MsgActivation
	case session.EventListening:
		return MsgListening
	case session.EventLocation, session.EventSharing:
		return MsgLocation
	case session.EventFakeCall:
		return MsgFakeCall
	default:
		return MsgSnapshot
	}
}
