package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Sabith-07/WISE/internal/device"
	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/logging"
	"github.com/Sabith-07/WISE/internal/session"
)

// Activator produces the inactive->active edge. trigger.Machine implements it.
type Activator interface {
	Activate(ctx context.Context, source domain.TriggerSource) (domain.ActivationState, bool)
}

// ListenerConfig tunes keyword matching and the restart supervisor.
type ListenerConfig struct {
	Keyword       string
	FuzzyDistance int

	RestartBaseDelay time.Duration
	RestartMaxDelay  time.Duration
	// A session shorter than MinSession counts as a quick exit.
	MinSession time.Duration
	// MaxRestarts consecutive quick exits put the listener in error.
	MaxRestarts int
}

func (c ListenerConfig) withDefaults() ListenerConfig {
	if c.RestartBaseDelay <= 0 {
		c.RestartBaseDelay = 250 * time.Millisecond
	}
	if c.RestartMaxDelay < c.RestartBaseDelay {
		c.RestartMaxDelay = 10 * time.Second
	}
	if c.MinSession <= 0 {
		c.MinSession = 2 * time.Second
	}
	if c.MaxRestarts <= 0 {
		c.MaxRestarts = 5
	}
	return c
}

// Listener supervises continuous recognition and activates the trigger when
// the keyword is heard in a finalized result.
type Listener struct {
	recognizer Recognizer
	gate       PermissionGate
	activator  Activator
	store      *session.Store
	notifier   device.Notifier
	logger     *zap.Logger

	mu         sync.Mutex
	cfg        ListenerConfig
	detector   *Detector
	state      domain.ListeningState
	permission domain.PermissionResult
	// gen changes on every Start and Stop; a run loop or a pending permission
	// request whose generation is stale must not touch state.
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

func NewListener(
	recognizer Recognizer,
	gate PermissionGate,
	activator Activator,
	store *session.Store,
	notifier device.Notifier,
	cfg ListenerConfig,
	logger *zap.Logger,
) *Listener {
	if notifier == nil {
		notifier = device.NopNotifier{}
	}
	cfg = cfg.withDefaults()
	return &Listener{
		recognizer: recognizer,
		gate:       gate,
		activator:  activator,
		store:      store,
		notifier:   notifier,
		logger:     logging.OrNop(logger),
		cfg:        cfg,
		detector:   NewDetector(cfg.Keyword, cfg.FuzzyDistance),
		state:      domain.ListeningIdle,
		permission: domain.PermissionUnknown,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// SetConfig swaps the keyword and supervisor settings. A running loop picks
// them up on its next session.
func (l *Listener) SetConfig(cfg ListenerConfig) {
	cfg = cfg.withDefaults()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = cfg
	l.detector = NewDetector(cfg.Keyword, cfg.FuzzyDistance)
}

// State returns the listening state and the cached microphone permission.
func (l *Listener) State() (domain.ListeningState, domain.PermissionResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.permission
}

// Start requests the microphone if needed and begins listening. It returns
// the state it lands in: listening, idle (denied) or error (unsupported).
func (l *Listener) Start(ctx context.Context) (domain.ListeningState, error) {
	l.mu.Lock()
	switch {
	case l.state == domain.ListeningActive || l.state == domain.ListeningRequestingPermission:
		state := l.state
		l.mu.Unlock()
		return state, nil
	case l.permission == domain.PermissionUnsupported:
		l.mu.Unlock()
		return domain.ListeningError, domain.ErrUnsupportedCapability
	}
	l.gen++
	gen := l.gen
	cached := l.permission == domain.PermissionGranted
	l.setStateLocked(domain.ListeningRequestingPermission, "")
	l.mu.Unlock()

	result := domain.PermissionGranted
	var err error
	if !cached {
		result, err = l.requestPermission(ctx)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		// Stopped while the prompt was open.
		return l.state, nil
	}
	l.permission = result

	switch result {
	case domain.PermissionGranted:
	case domain.PermissionUnsupported:
		l.setStateLocked(domain.ListeningError, domain.ListeningReasonUnsupported)
		l.notifier.Notify(domain.NewNotice("Error",
			"Speech recognition is not supported on this device",
			domain.NoticeDestructive, 5*time.Second))
		return l.state, domain.ErrUnsupportedCapability
	default:
		l.permission = domain.PermissionDenied
		l.setStateLocked(domain.ListeningIdle, domain.ListeningReasonPermissionDenied)
		l.notifier.Notify(domain.NewNotice("Permission Error",
			"Please allow microphone access in your browser settings",
			domain.NoticeDestructive, 5*time.Second))
		if err == nil || !errors.Is(err, domain.ErrPermissionDenied) {
			err = domain.ErrPermissionDenied
		}
		return l.state, err
	}

	if !cached {
		l.notifier.Notify(domain.NewNotice("Permission Granted",
			"Microphone access has been enabled", domain.NoticeDefault, 3*time.Second))
	}

	if l.cancel != nil {
		// A loop that already failed; it exits without touching state.
		l.cancel()
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done
	l.setStateLocked(domain.ListeningActive, domain.ListeningReasonStarted)
	l.notifier.Notify(domain.NewNotice("Voice Detection Active",
		fmt.Sprintf("Say '%s' to activate emergency response", strings.ToUpper(l.detector.Keyword())),
		domain.NoticeDefault, 3*time.Second))
	l.logger.Info("voice listening started", zap.String("keyword", l.detector.Keyword()))

	go l.run(runCtx, gen, done)
	return l.state, nil
}

// Stop ends listening and waits for the loop to exit.
func (l *Listener) Stop() domain.ListeningState {
	l.mu.Lock()
	l.gen++
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	if l.permission != domain.PermissionUnsupported {
		l.setStateLocked(domain.ListeningIdle, domain.ListeningReasonStopped)
	}
	state := l.state
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	return state
}

// Toggle stops a running listener or starts an idle one.
func (l *Listener) Toggle(ctx context.Context) (domain.ListeningState, error) {
	l.mu.Lock()
	running := l.state == domain.ListeningActive || l.state == domain.ListeningRequestingPermission
	l.mu.Unlock()
	if running {
		return l.Stop(), nil
	}
	return l.Start(ctx)
}

// Feed passes a result from an out-of-process engine to the recognizer.
func (l *Listener) Feed(result domain.RecognitionResult) error {
	f, ok := l.recognizer.(Feeder)
	if !ok {
		return fmt.Errorf("%w: recognizer does not accept results", domain.ErrUnsupportedCapability)
	}
	return f.Feed(result)
}

// EndSession reports that an out-of-process engine ended its session on its
// own. The run loop restarts it like any other session end.
func (l *Listener) EndSession() error {
	t, ok := l.recognizer.(Terminator)
	if !ok {
		return fmt.Errorf("%w: recognizer does not report session ends", domain.ErrUnsupportedCapability)
	}
	return t.End()
}

// FailSession reports an out-of-process engine error. The listener moves to
// the error state and tells the user.
func (l *Listener) FailSession(err error) error {
	t, ok := l.recognizer.(Terminator)
	if !ok {
		return fmt.Errorf("%w: recognizer does not report errors", domain.ErrUnsupportedCapability)
	}
	return t.Fail(err)
}

func (l *Listener) requestPermission(ctx context.Context) (domain.PermissionResult, error) {
	if l.gate == nil {
		return domain.PermissionGranted, nil
	}
	result, err := l.gate.RequestMicrophone(ctx)
	if err != nil {
		l.logger.Warn("microphone permission", zap.String("result", string(result)), zap.Error(err))
	}
	switch {
	case result == domain.PermissionGranted && err == nil:
		return result, nil
	case result == domain.PermissionUnsupported || errors.Is(err, domain.ErrUnsupportedCapability):
		return domain.PermissionUnsupported, err
	default:
		return domain.PermissionDenied, err
	}
}

func (l *Listener) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	quick := 0
	var delay time.Duration
	for {
		l.mu.Lock()
		cfg := l.cfg
		l.mu.Unlock()

		started := l.now()
		err := l.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			l.fail(gen, domain.ListeningReasonRecognizerFailed, err)
			return
		}

		if l.now().Sub(started) >= cfg.MinSession {
			quick = 0
			delay = 0
		} else {
			quick++
			if quick >= cfg.MaxRestarts {
				l.fail(gen, domain.ListeningReasonRestartStorm,
					fmt.Errorf("recognition ended %d times in a row within %s", quick, cfg.MinSession))
				return
			}
			if delay == 0 {
				delay = cfg.RestartBaseDelay
			} else {
				delay *= 2
			}
			if delay > cfg.RestartMaxDelay {
				delay = cfg.RestartMaxDelay
			}
			if !l.sleep(ctx, delay) {
				return
			}
		}

		if !l.transition(gen, domain.ListeningActive, domain.ListeningReasonRestarted) {
			return
		}
		l.logger.Debug("voice session restarted", zap.Int("quick_exits", quick))
	}
}

// session runs one recognition session. Only the first keyword hit per
// session activates the trigger.
func (l *Listener) session(ctx context.Context) error {
	sess, err := l.recognizer.Start(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	detector := l.detector
	l.mu.Unlock()

	latched := false
	handle := func(r domain.RecognitionResult) {
		if !r.Final || latched || !detector.Match(r.Text) {
			return
		}
		latched = true
		l.logger.Info("keyword detected", zap.String("transcript", r.Text))
		if l.activator != nil {
			l.activator.Activate(ctx, domain.TriggerVoice)
		}
	}

	for {
		select {
		case <-ctx.Done():
			// Results already accepted before the stop still count.
			for drained := false; !drained; {
				select {
				case r, ok := <-sess.Results():
					if !ok {
						drained = true
						break
					}
					handle(r)
				default:
					drained = true
				}
			}
			_ = sess.Close()
			return nil
		case r, ok := <-sess.Results():
			if !ok {
				return sess.Wait()
			}
			handle(r)
		}
	}
}

func (l *Listener) fail(gen uint64, reason domain.ListeningReason, err error) {
	if !l.transition(gen, domain.ListeningError, reason) {
		return
	}
	l.logger.Error("voice recognition failed", zap.String("reason", string(reason)), zap.Error(err))
	l.notifier.Notify(domain.NewNotice("Error",
		"Speech recognition error: "+err.Error(),
		domain.NoticeDestructive, 5*time.Second))
}

// transition applies a state change from the run loop unless it was stopped.
func (l *Listener) transition(gen uint64, state domain.ListeningState, reason domain.ListeningReason) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return false
	}
	l.setStateLocked(state, reason)
	return true
}

func (l *Listener) setStateLocked(state domain.ListeningState, reason domain.ListeningReason) {
	l.state = state
	if l.store == nil {
		return
	}
	perm := l.permission
	l.store.Update(session.EventListening, func(st *session.State) {
		st.Listening = state
		st.ListeningReason = reason
		st.Microphone = perm
	})
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
