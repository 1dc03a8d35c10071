// Package trigger holds the emergency activation state machine.
package trigger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Sabith-07/WISE/internal/alert"
	"github.com/Sabith-07/WISE/internal/device"
	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/logging"
	"github.com/Sabith-07/WISE/internal/session"
)

// Composer builds the alert text for one activation edge.
type Composer interface {
	Compose(ctx context.Context) domain.EmergencyMessage
}

// Dispatcher sends a composed alert out.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg domain.EmergencyMessage) (alert.Result, error)
}

// Report describes the outcome of one edge's compose+dispatch.
type Report struct {
	Edge    uint64                  `json:"edge"`
	Source  domain.TriggerSource    `json:"source"`
	Message domain.EmergencyMessage `json:"message"`
	Result  alert.Result            `json:"result"`
	Error   string                  `json:"error,omitempty"`
}

// Config controls the side effects of an activation.
type Config struct {
	Pattern []time.Duration
	// CancelOnDeactivate cancels an in-flight dispatch when the user
	// deactivates before it completes. Off by default: once triggered, the
	// alert fires.
	CancelOnDeactivate bool
}

// Machine is the inactive/active toggle. Flips commit synchronously under a
// mutex; the alert for an edge is composed and dispatched asynchronously,
// exactly once per inactive->active transition.
type Machine struct {
	store      *session.Store
	vibrator   device.Vibrator
	notifier   device.Notifier
	composer   Composer
	dispatcher Dispatcher
	logger     *zap.Logger

	mu       sync.Mutex
	cfg      Config
	state    domain.ActivationState
	edge     uint64
	cancel   context.CancelFunc
	observer func(Report)

	wg sync.WaitGroup
}

func NewMachine(
	store *session.Store,
	vibrator device.Vibrator,
	notifier device.Notifier,
	composer Composer,
	dispatcher Dispatcher,
	cfg Config,
	logger *zap.Logger,
) *Machine {
	if notifier == nil {
		notifier = device.NopNotifier{}
	}
	return &Machine{
		store:      store,
		vibrator:   vibrator,
		notifier:   notifier,
		composer:   composer,
		dispatcher: dispatcher,
		cfg:        cfg,
		state:      domain.ActivationInactive,
		logger:     logging.OrNop(logger),
	}
}

// SetObserver registers a callback for every dispatch report.
func (m *Machine) SetObserver(fn func(Report)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = fn
}

// SetConfig swaps the activation settings; used on config reload.
func (m *Machine) SetConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}

// Toggle flips the state: the manual SOS button.
func (m *Machine) Toggle(ctx context.Context, source domain.TriggerSource) domain.ActivationState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == domain.ActivationActive {
		m.deactivateLocked()
	} else {
		m.activateLocked(ctx, source)
	}
	return m.state
}

// Activate only produces the inactive->active edge. It reports whether an
// edge was produced; when already active it does nothing.
func (m *Machine) Activate(ctx context.Context, source domain.TriggerSource) (domain.ActivationState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == domain.ActivationActive {
		return m.state, false
	}
	m.activateLocked(ctx, source)
	return m.state, true
}

// Deactivate returns to inactive. It reports whether the state changed.
func (m *Machine) Deactivate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != domain.ActivationActive {
		return false
	}
	m.deactivateLocked()
	return true
}

// State returns the current activation state.
func (m *Machine) State() domain.ActivationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Edge returns the number of activation edges so far.
func (m *Machine) Edge() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edge
}

// Wait blocks until every in-flight dispatch has finished.
func (m *Machine) Wait() {
	m.wg.Wait()
}

func (m *Machine) activateLocked(ctx context.Context, source domain.TriggerSource) {
	m.state = domain.ActivationActive
	m.edge++
	edge := m.edge
	now := time.Now()

	if m.store != nil {
		m.store.Update(session.EventActivation, func(st *session.State) {
			st.Activation = domain.ActivationActive
			st.ActivationSource = source
			st.ActivatedAt = now
			st.Edge = edge
		})
	}

	if m.vibrator != nil {
		if err := m.vibrator.Start(m.cfg.Pattern); err != nil {
			m.logger.Warn("vibration start failed", zap.Error(err))
		}
	}

	m.notifier.Notify(domain.NewNotice(
		"SOS Activated!",
		"Your emergency contacts have been notified and your location is being shared.",
		domain.NoticeDestructive,
		5*time.Second,
	))
	m.logger.Info("sos activated", zap.Uint64("edge", edge), zap.String("source", string(source)))

	// The alert outlives the request that triggered it.
	dctx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc
	if m.cfg.CancelOnDeactivate {
		dctx, cancel = context.WithCancel(dctx)
	}
	m.cancel = cancel

	m.wg.Add(1)
	go m.dispatch(dctx, cancel, edge, source)
}

func (m *Machine) deactivateLocked() {
	m.state = domain.ActivationInactive

	if m.store != nil {
		m.store.Update(session.EventActivation, func(st *session.State) {
			st.Activation = domain.ActivationInactive
		})
	}

	if m.vibrator != nil {
		if err := m.vibrator.Stop(); err != nil {
			m.logger.Warn("vibration stop failed", zap.Error(err))
		}
	}

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	m.notifier.Notify(domain.NewNotice(
		"SOS Deactivated",
		"Emergency alerts have been cancelled.",
		domain.NoticeDefault,
		3*time.Second,
	))
	m.logger.Info("sos deactivated", zap.Uint64("edge", m.edge))
}

func (m *Machine) dispatch(ctx context.Context, cancel context.CancelFunc, edge uint64, source domain.TriggerSource) {
	defer m.wg.Done()
	if cancel != nil {
		defer cancel()
	}

	report := Report{Edge: edge, Source: source}
	if m.composer != nil {
		report.Message = m.composer.Compose(ctx)
	}

	if ctx.Err() != nil {
		report.Error = "dispatch cancelled by deactivation"
		m.logger.Info("alert dispatch cancelled", zap.Uint64("edge", edge))
		m.report(report)
		return
	}

	if m.dispatcher != nil {
		res, err := m.dispatcher.Dispatch(ctx, report.Message)
		report.Result = res
		switch {
		case err != nil && ctx.Err() != nil:
			report.Error = "dispatch cancelled by deactivation"
			m.logger.Info("alert dispatch cancelled", zap.Uint64("edge", edge))
		case err != nil:
			report.Error = err.Error()
			m.logger.Error("alert dispatch failed", zap.Uint64("edge", edge), zap.Error(err))
			m.notifier.Notify(domain.NewNotice(
				"Error",
				"Failed to send WhatsApp alert",
				domain.NoticeDestructive,
				5*time.Second,
			))
		}
	}
	m.report(report)
}

func (m *Machine) report(r Report) {
	m.mu.Lock()
	fn := m.observer
	m.mu.Unlock()
	if fn != nil {
		fn(r)
	}
}
