package client

import (
	"encoding/json"

	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/ws"
)

// Envelope is a server message with its payload left undecoded.
type Envelope struct {
	Type    ws.MessageType  `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ListeningReply is the voice endpoints' response body.
type ListeningReply struct {
	State      domain.ListeningState   `json:"state"`
	Permission domain.PermissionResult `json:"permission"`
	Error      string                  `json:"error,omitempty"`
}
