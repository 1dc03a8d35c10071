package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/ws"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second
)

var errNotConnected = errors.New("not connected")

// WSClient keeps the console attached to the server's /ws stream.
type WSClient struct {
	url   string
	token string

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	pingCtx context.CancelFunc
}

func NewWSClient(url, token string) *WSClient {
	return &WSClient{url: url, token: token}
}

// --- Bubble Tea messages ---

type WSConnectedMsg struct{}

type WSDisconnectedMsg struct{ Err error }

// WSSnapshotMsg delivers the full state sent on connect.
type WSSnapshotMsg struct{ Payload ws.SnapshotPayload }

// WSStateMsg carries the session after an activation, listening, location
// or fake call change.
type WSStateMsg struct {
	Type    ws.MessageType
	Payload ws.StatePayload
}

type WSNoticeMsg struct{ Notice domain.Notice }

type WSGuardiansMsg struct{ Payload ws.GuardiansPayload }

// WSDeviceMsg is a device command (vibrate, open_url, ringtone, locate).
// The console has no device to drive, so it only records it.
type WSDeviceMsg struct {
	Type ws.MessageType
	Raw  json.RawMessage
}

type WSErrorMsg struct{ Payload ws.ErrorPayload }

// Listen returns a command that dials with exponential backoff and reports
// WSConnectedMsg once a connection is up.
func (c *WSClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			header := http.Header{}
			if c.token != "" {
				header.Set("Authorization", "Bearer "+c.token)
			}
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
			if err == nil {
				c.mu.Lock()
				if c.pingCtx != nil {
					c.pingCtx()
				}
				pingCtx, pingCancel := context.WithCancel(ctx)
				c.conn = conn
				c.pingCtx = pingCancel
				c.mu.Unlock()

				go c.pingLoop(pingCtx, conn)
				return WSConnectedMsg{}
			}

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			delay = min(delay*2, reconnectMaxDelay)
		}
	}
}

// ReadLoop returns a command that reads until the next message the model
// cares about. Start it after WSConnectedMsg and again after each message.
func (c *WSClient) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return WSDisconnectedMsg{Err: errNotConnected}
		}

		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongTimeout))
		})
		_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.mu.Lock()
				if c.conn == conn {
					c.conn = nil
				}
				c.mu.Unlock()
				conn.Close()
				if ctx.Err() != nil {
					return nil
				}
				return WSDisconnectedMsg{Err: err}
			}

			var env Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				continue
			}
			if msg := Decode(env); msg != nil {
				return msg
			}
		}
	}
}

// Close drops the current connection.
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pingCtx != nil {
		c.pingCtx()
		c.pingCtx = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			cc := c.conn
			c.mu.Unlock()
			if cc != conn {
				return
			}
			c.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Decode turns an envelope into the matching Bubble Tea message, or nil
// for unknown types and malformed payloads.
func Decode(env Envelope) tea.Msg {
	switch env.Type {
	case ws.MsgSnapshot:
		var p ws.SnapshotPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			return WSSnapshotMsg{Payload: p}
		}
	case ws.MsgActivation, ws.MsgListening, ws.MsgLocation, ws.MsgFakeCall:
		var p ws.StatePayload
		if json.Unmarshal(env.Payload, &p) == nil {
			return WSStateMsg{Type: env.Type, Payload: p}
		}
	case ws.MsgNotice:
		var n domain.Notice
		if json.Unmarshal(env.Payload, &n) == nil {
			return WSNoticeMsg{Notice: n}
		}
	case ws.MsgGuardians:
		var p ws.GuardiansPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			return WSGuardiansMsg{Payload: p}
		}
	case ws.MsgVibrate, ws.MsgOpenURL, ws.MsgRingtone, ws.MsgLocate:
		return WSDeviceMsg{Type: env.Type, Raw: env.Payload}
	case ws.MsgError:
		var p ws.ErrorPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			return WSErrorMsg{Payload: p}
		}
	}
	return nil
}
