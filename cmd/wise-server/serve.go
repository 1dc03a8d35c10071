package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Sabith-07/WISE/internal/alert"
	"github.com/Sabith-07/WISE/internal/capability"
	"github.com/Sabith-07/WISE/internal/config"
	"github.com/Sabith-07/WISE/internal/device"
	"github.com/Sabith-07/WISE/internal/fakecall"
	"github.com/Sabith-07/WISE/internal/guardian"
	"github.com/Sabith-07/WISE/internal/health"
	"github.com/Sabith-07/WISE/internal/location"
	"github.com/Sabith-07/WISE/internal/notify"
	"github.com/Sabith-07/WISE/internal/session"
	"github.com/Sabith-07/WISE/internal/sharing"
	"github.com/Sabith-07/WISE/internal/trigger"
	"github.com/Sabith-07/WISE/internal/voice"
	"github.com/Sabith-07/WISE/internal/ws"
)

const shutdownTimeout = 5 * time.Second

// app is the wired service graph.
type app struct {
	cfg         *config.Config
	caps        capability.Report
	broadcaster *ws.Broadcaster
	composer    *alert.Composer
	dispatcher  *alert.Dispatcher
	machine     *trigger.Machine
	listener    *voice.Listener
	sharing     *sharing.Service
	server      *ws.Server
}

// build wires every component around one session store and broadcaster.
func build(ctx context.Context, cfg *config.Config, probe capability.Probe, logger *zap.Logger) (*app, error) {
	caps := probe.Run(cfg)
	logger.Info("capabilities",
		zap.String("microphone", string(caps.Microphone)),
		zap.String("speech", string(caps.Speech)),
		zap.String("geolocation", string(caps.Geolocation)),
		zap.String("sms", string(caps.SMS)),
		zap.String("ai", string(caps.AI)),
	)

	store := session.NewStore()
	b := ws.NewBroadcaster(store, cfg.Broadcast.Throttle, cfg.Broadcast.SnapshotInterval, cfg.Server.MaxConnections, logger)
	store.SetPublisher(b)
	b.SetCapabilities(caps)
	checker := health.NewChecker(3, b.ClientCount)

	tracker := location.NewTracker(cfg.Location.MaxAge, b)
	var locator location.Locator = tracker
	if lat, lng, ok := cfg.StaticFix(); ok {
		locator = location.Chain{tracker, location.NewStatic(lat, lng)}
	}

	a := &app{cfg: cfg, caps: caps, broadcaster: b}
	a.composer = alert.NewComposer(locator, composerConfig(cfg), logger.Named("alert"))
	a.dispatcher = alert.NewDispatcher(b, dispatcherConfig(cfg), logger.Named("alert"))

	sms := notify.NewService(smsSender(cfg, checker, logger), logger.Named("notify"))

	var guardianStore *guardian.FileStore
	if cfg.Guardians.Persist {
		guardianStore = guardian.NewFileStore(cfg.Guardians.StateDir)
	}
	registry, err := guardian.NewRegistry(guardian.UUIDGenerator{}, guardianStore, b, logger.Named("guardian"))
	if err != nil {
		return nil, err
	}
	registry.OnChange(b.PublishGuardians)
	b.SetGuardians(registry)
	a.dispatcher.SetGuardianTexting(sms, registry, b)

	a.machine = trigger.NewMachine(store, device.NewPulse(b, cfg.Vibration.SOSCycle), b,
		a.composer, a.dispatcher, machineConfig(cfg), logger.Named("trigger"))
	a.machine.SetObserver(func(r trigger.Report) {
		var err error
		if r.Error != "" {
			err = errors.New(r.Error)
			b.SendError(r.Error)
		}
		checker.Record("alert", err)
	})

	recognizer, gate := voiceProvider(cfg, caps)
	a.listener = voice.NewListener(recognizer, gate, a.machine, store, b, listenerConfig(cfg), logger.Named("voice"))

	a.sharing = sharing.NewService(tracker, caps.Geolocation, store, b, logger.Named("sharing"))

	scenarios := fakecall.NewService(generator(ctx, cfg, checker, logger), b, logger.Named("fakecall"))
	call := fakecall.NewCall(device.NewPulse(b, cfg.Vibration.RingCycle), b, b, store,
		config.Millis(cfg.Vibration.RingPattern), logger.Named("fakecall"))

	a.server = ws.NewServer(cfg, b, ws.Services{
		Machine:      a.machine,
		Listener:     a.listener,
		Tracker:      tracker,
		Sharing:      a.sharing,
		Guardians:    registry,
		Notify:       sms,
		FakeCall:     scenarios,
		Call:         call,
		Health:       checker,
		Capabilities: caps,
	}, logger.Named("http"))
	return a, nil
}

// reload pushes the reloadable settings into running components.
func (a *app) reload(cfg *config.Config) {
	a.composer.SetConfig(composerConfig(cfg))
	a.dispatcher.SetConfig(dispatcherConfig(cfg))
	a.machine.SetConfig(machineConfig(cfg))
	a.listener.SetConfig(listenerConfig(cfg))
	a.server.SetSafety(cfg.Safety)
}

// close stops background work in dependency order.
func (a *app) close() {
	a.listener.Stop()
	a.machine.Wait()
	a.sharing.Close()
	a.broadcaster.Stop()
}

func composerConfig(cfg *config.Config) alert.ComposerConfig {
	return alert.ComposerConfig{
		Template:        cfg.Alert.Template,
		UnavailableText: cfg.Alert.UnavailableText,
		MapsBaseURL:     cfg.Alert.MapsBaseURL,
		Timeout:         cfg.Alert.LocationTimeout,
	}
}

func dispatcherConfig(cfg *config.Config) alert.DispatcherConfig {
	return alert.DispatcherConfig{
		DeepLinkBase:   cfg.Alert.DeepLinkBase,
		WhatsAppNumber: cfg.Alert.WhatsAppNumber,
		SMSGuardians:   cfg.Alert.SMSGuardians,
	}
}

func machineConfig(cfg *config.Config) trigger.Config {
	return trigger.Config{
		Pattern:            config.Millis(cfg.Vibration.SOSPattern),
		CancelOnDeactivate: cfg.Alert.CancelOnDeactivate,
	}
}

func listenerConfig(cfg *config.Config) voice.ListenerConfig {
	return voice.ListenerConfig{
		Keyword:          cfg.Voice.Keyword,
		FuzzyDistance:    cfg.Voice.FuzzyDistance,
		RestartBaseDelay: cfg.Voice.RestartBaseDelay,
		RestartMaxDelay:  cfg.Voice.RestartMaxDelay,
		MinSession:       cfg.Voice.MinSession,
		MaxRestarts:      cfg.Voice.MaxRestarts,
	}
}

// voiceProvider picks the recognizer. "deepgram" captures the local
// microphone; anything else waits for a client to post transcripts.
func voiceProvider(cfg *config.Config, caps capability.Report) (voice.Recognizer, voice.PermissionGate) {
	if cfg.Voice.Provider == "deepgram" {
		capture := voice.NewFFmpegCapture(cfg.Voice.FFmpegCommand)
		audio := voice.AudioConfig{InputFormat: cfg.Voice.InputFormat, InputDevice: cfg.Voice.InputDevice}
		rec := voice.NewDeepgramRecognizer(voice.DeepgramConfig{
			APIKey:     cfg.Voice.DeepgramAPIKey,
			APIBaseURL: cfg.Voice.DeepgramBaseURL,
			Model:      cfg.Voice.DeepgramModel,
			Language:   cfg.Voice.Language,
		}, capture, audio)
		return rec, voice.FFmpegGate{Capture: capture, Audio: audio, Timeout: 3 * time.Second}
	}
	return voice.NewRemoteRecognizer(), voice.CapabilityGate{Microphone: caps.Microphone}
}

// smsSender returns the Twilio sender, or nil when credentials are missing.
func smsSender(cfg *config.Config, checker *health.Checker, logger *zap.Logger) notify.Sender {
	twilioCfg := notify.TwilioConfig(cfg.SMS)
	if !twilioCfg.Configured() {
		logger.Warn("sms provider not configured; notifications will fail")
		return nil
	}
	sender, err := notify.NewTwilioSender(twilioCfg)
	if err != nil {
		logger.Warn("sms provider unavailable", zap.Error(err))
		return nil
	}
	return notify.SenderFunc(func(ctx context.Context, to, body string) (string, error) {
		id, err := sender.Send(ctx, to, body)
		if checker != nil {
			checker.Record("sms", err)
		}
		return id, err
	})
}

// generator returns the Gemini scenario writer, or nil without an API key.
func generator(ctx context.Context, cfg *config.Config, checker *health.Checker, logger *zap.Logger) fakecall.Generator {
	if cfg.AI.APIKey == "" {
		logger.Warn("ai provider not configured; fake call scenarios will fail")
		return nil
	}
	gen, err := fakecall.NewGeminiGenerator(ctx, cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		logger.Warn("ai provider unavailable", zap.Error(err))
		return nil
	}
	return fakecall.GeneratorFunc(func(ctx context.Context, req fakecall.Request) (string, error) {
		desc, err := gen.Generate(ctx, req)
		checker.Record("ai", err)
		return desc, err
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, capability.Probe{}, logger)
	if err != nil {
		return err
	}
	defer a.close()

	httpSrv := ws.NewHTTPServer(cfg.Server.Host, cfg.Server.Port, a.server.Handler())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if _, err := os.Stat(configPath); err == nil {
		g.Go(func() error {
			return config.Watch(gctx, configPath, logger, a.reload)
		})
	}

	return g.Wait()
}
