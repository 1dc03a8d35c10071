package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Sabith-07/WISE/internal/capability"
	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/logging"
	"github.com/Sabith-07/WISE/internal/session"
)

var (
	// ErrTooManyConnections is returned by AddClient when the connection
	// limit is reached.
	ErrTooManyConnections = errors.New("too many websocket connections")
	// ErrNoClients is returned by device commands that need someone to
	// perform them.
	ErrNoClients = errors.New("no connected client")
)

// GuardianLister lists guardians for snapshots.
type GuardianLister interface {
	List() []domain.Guardian
}

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func newClient(conn *websocket.Conn, b *Broadcaster) *client {
	c := &client{
		conn: conn,
		b:    b,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			// Drain until RemoveClient closes the channel.
			for range c.send {
			}
			return
		}
	}
}

// Broadcaster fans session changes and device commands out to every
// connected client. It implements session.Publisher and the device ports
// (Notifier, Opener, Commander, Ringer) plus location.Requester.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	maxConns int

	store  *session.Store
	logger *zap.Logger

	metaMu    sync.RWMutex
	guardians GuardianLister
	caps      capability.Report

	// sendMu orders state broadcasts so a throttled flush never overtakes a
	// newer event.
	sendMu sync.Mutex

	throttle   time.Duration
	flushMu    sync.Mutex
	flushTimer *time.Timer

	snapshotTicker *time.Ticker
	stop           chan struct{}
	stopOnce       sync.Once
	loopDone       chan struct{}
}

// NewBroadcaster coalesces location updates over throttle and re-sends a
// full snapshot every snapshotInterval. maxConns <= 0 means unlimited.
func NewBroadcaster(store *session.Store, throttle, snapshotInterval time.Duration, maxConns int, logger *zap.Logger) *Broadcaster {
	b := &Broadcaster{
		clients:  make(map[*client]bool),
		maxConns: maxConns,
		store:    store,
		logger:   logging.OrNop(logger),
		throttle: throttle,
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}

	if snapshotInterval > 0 {
		b.snapshotTicker = time.NewTicker(snapshotInterval)
		go b.snapshotLoop()
	} else {
		close(b.loopDone)
	}
	return b
}

// SetGuardians wires the guardian list included in snapshots.
func (b *Broadcaster) SetGuardians(g GuardianLister) {
	b.metaMu.Lock()
	defer b.metaMu.Unlock()
	b.guardians = g
}

// SetCapabilities records the startup probe included in snapshots.
func (b *Broadcaster) SetCapabilities(r capability.Report) {
	b.metaMu.Lock()
	defer b.metaMu.Unlock()
	b.caps = r
}

// Snapshot returns the full state a new client starts from.
func (b *Broadcaster) Snapshot() SnapshotPayload {
	b.metaMu.RLock()
	guardians, caps := b.guardians, b.caps
	b.metaMu.RUnlock()

	p := SnapshotPayload{Capabilities: caps, Guardians: []domain.Guardian{}}
	if b.store != nil {
		p.State = b.store.Get()
	}
	if guardians != nil {
		p.Guardians = guardians.List()
	}
	return p
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	b.mu.Lock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		b.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	c := newClient(conn, b)
	b.clients[c] = true
	b.mu.Unlock()

	data, err := json.Marshal(WSMessage{Type: MsgSnapshot, Payload: b.Snapshot()})
	if err != nil {
		b.logger.Error("snapshot marshal failed", zap.Error(err))
		return c, nil
	}

	b.mu.RLock()
	if b.clients[c] {
		select {
		case c.send <- data:
		default:
			// Client too slow, drop the snapshot
		}
	}
	b.mu.RUnlock()

	return c, nil
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Publish implements session.Publisher. Location changes are coalesced over
// the throttle window; everything else goes out immediately.
func (b *Broadcaster) Publish(ev session.Event) {
	if ev.Type == session.EventLocation && b.throttle > 0 {
		b.flushMu.Lock()
		if b.flushTimer == nil {
			b.flushTimer = time.AfterFunc(b.throttle, b.flush)
		}
		b.flushMu.Unlock()
		return
	}

	b.sendMu.Lock()
	defer b.sendMu.Unlock()
	b.broadcast(WSMessage{Type: eventMessageType(ev.Type), Payload: StatePayload{State: ev.State}})
}

func (b *Broadcaster) flush() {
	b.flushMu.Lock()
	b.flushTimer = nil
	b.flushMu.Unlock()

	if b.store == nil {
		return
	}
	b.sendMu.Lock()
	defer b.sendMu.Unlock()
	b.broadcast(WSMessage{Type: MsgLocation, Payload: StatePayload{State: b.store.Get()}})
}

func (b *Broadcaster) snapshotLoop() {
	defer close(b.loopDone)
	for {
		select {
		case <-b.stop:
			return
		case <-b.snapshotTicker.C:
			b.sendMu.Lock()
			b.broadcast(WSMessage{Type: MsgSnapshot, Payload: b.Snapshot()})
			b.sendMu.Unlock()
		}
	}
}

// Stop ends the snapshot loop, drops any pending flush and disconnects every
// client.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		close(b.stop)
		if b.snapshotTicker != nil {
			b.snapshotTicker.Stop()
		}
		<-b.loopDone

		b.flushMu.Lock()
		if b.flushTimer != nil {
			b.flushTimer.Stop()
			b.flushTimer = nil
		}
		b.flushMu.Unlock()

		b.mu.Lock()
		for c := range b.clients {
			delete(b.clients, c)
			close(c.send)
		}
		b.mu.Unlock()
	})
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("broadcast marshal failed", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}

	var slow []*client
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		// Client can't keep up, disconnect it
		b.logger.Warn("ws client too slow, disconnecting")
		b.RemoveClient(c)
	}
}

// Notify implements device.Notifier.
func (b *Broadcaster) Notify(n domain.Notice) {
	b.broadcast(WSMessage{Type: MsgNotice, Payload: n})
}

// Open implements device.Opener: connected clients open url in a new tab.
func (b *Broadcaster) Open(_ context.Context, url string) error {
	if b.ClientCount() == 0 {
		return ErrNoClients
	}
	b.broadcast(WSMessage{Type: MsgOpenURL, Payload: OpenURLPayload{URL: url, Target: "_blank"}})
	return nil
}

// Vibrate implements device.Commander.
func (b *Broadcaster) Vibrate(pattern []time.Duration) error {
	ms := make([]int64, 0, len(pattern))
	for _, d := range pattern {
		ms = append(ms, d.Milliseconds())
	}
	b.broadcast(WSMessage{Type: MsgVibrate, Payload: VibratePayload{PatternMS: ms}})
	return nil
}

// Ring implements device.Ringer.
func (b *Broadcaster) Ring(loop bool) error {
	if b.ClientCount() == 0 {
		return ErrNoClients
	}
	b.broadcast(WSMessage{Type: MsgRingtone, Payload: RingtonePayload{Play: true, Loop: loop}})
	return nil
}

func (b *Broadcaster) Silence() error {
	b.broadcast(WSMessage{Type: MsgRingtone, Payload: RingtonePayload{Play: false}})
	return nil
}

// RequestFix implements location.Requester.
func (b *Broadcaster) RequestFix() bool {
	if b.ClientCount() == 0 {
		return false
	}
	b.broadcast(WSMessage{Type: MsgLocate, Payload: struct{}{}})
	return true
}

// PublishGuardians sends the guardian list after a change.
func (b *Broadcaster) PublishGuardians(list []domain.Guardian) {
	b.broadcast(WSMessage{Type: MsgGuardians, Payload: GuardiansPayload{Guardians: list}})
}

// SendError reports a failure that has no notice of its own.
func (b *Broadcaster) SendError(message string) {
	b.broadcast(WSMessage{Type: MsgError, Payload: ErrorPayload{Message: message}})
}
