package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Sabith-07/WISE/internal/capability"
	"github.com/Sabith-07/WISE/internal/config"
	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/fakecall"
	"github.com/Sabith-07/WISE/internal/guardian"
	"github.com/Sabith-07/WISE/internal/health"
	"github.com/Sabith-07/WISE/internal/location"
	"github.com/Sabith-07/WISE/internal/logging"
	"github.com/Sabith-07/WISE/internal/notify"
	"github.com/Sabith-07/WISE/internal/safety"
	"github.com/Sabith-07/WISE/internal/sharing"
	"github.com/Sabith-07/WISE/internal/trigger"
	"github.com/Sabith-07/WISE/internal/voice"
)

const maxBodyBytes = 1 << 20

// Services are the components the HTTP surface drives.
type Services struct {
	Machine      *trigger.Machine
	Listener     *voice.Listener
	Tracker      *location.Tracker
	Sharing      *sharing.Service
	Guardians    *guardian.Registry
	Notify       *notify.Service
	FakeCall     *fakecall.Service
	Call         *fakecall.Call
	Health       *health.Checker
	Capabilities capability.Report
}

type Server struct {
	svc            Services
	broadcaster    *Broadcaster
	staticDir      string
	dev            bool
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	authToken      string
	logger         *zap.Logger

	mu     sync.RWMutex
	safety safety.Metrics
}

func NewServer(cfg *config.Config, broadcaster *Broadcaster, svc Services, logger *zap.Logger) *Server {
	s := &Server{
		svc:            svc,
		broadcaster:    broadcaster,
		staticDir:      cfg.Server.StaticDir,
		dev:            cfg.Server.Dev,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		authToken:      cfg.Server.AuthToken,
		logger:         logging.OrNop(logger),
		safety:         MetricsFrom(cfg.Safety),
	}

	for _, origin := range cfg.Server.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

// MetricsFrom converts the configured safety inputs.
func MetricsFrom(c config.SafetyConfig) safety.Metrics {
	return safety.Metrics{
		Lighting:        c.Lighting,
		CrimeRate:       c.CrimeRate,
		CrowdDensity:    c.CrowdDensity,
		Surveillance:    c.Surveillance,
		CommunityRating: c.CommunityRating,
	}
}

// SetSafety swaps the safety metrics; used on config reload.
func (s *Server) SetSafety(c config.SafetyConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.safety = MetricsFrom(c)
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/notifications", s.authed(s.handleNotifications))
	mux.HandleFunc("GET /api/state", s.authed(s.handleState))
	mux.HandleFunc("GET /api/capabilities", s.authed(s.handleCapabilities))

	mux.HandleFunc("POST /api/sos/toggle", s.authed(s.handleSOSToggle))
	mux.HandleFunc("POST /api/sos/activate", s.authed(s.handleSOSActivate))

	mux.HandleFunc("POST /api/voice/start", s.authed(s.handleVoiceStart))
	mux.HandleFunc("POST /api/voice/stop", s.authed(s.handleVoiceStop))
	mux.HandleFunc("POST /api/voice/toggle", s.authed(s.handleVoiceToggle))
	mux.HandleFunc("POST /api/voice/transcript", s.authed(s.handleTranscript))
	mux.HandleFunc("POST /api/voice/end", s.authed(s.handleVoiceEnd))
	mux.HandleFunc("POST /api/voice/error", s.authed(s.handleVoiceError))

	mux.HandleFunc("POST /api/location", s.authed(s.handleLocation))
	mux.HandleFunc("POST /api/location/error", s.authed(s.handleLocationError))
	mux.HandleFunc("POST /api/sharing", s.authed(s.handleSharing))
	mux.HandleFunc("POST /api/route-monitoring", s.authed(s.handleRouteMonitoring))

	mux.HandleFunc("GET /api/guardians", s.authed(s.handleGuardianList))
	mux.HandleFunc("POST /api/guardians", s.authed(s.handleGuardianAdd))
	mux.HandleFunc("DELETE /api/guardians/{id}", s.authed(s.handleGuardianRemove))

	mux.HandleFunc("GET /api/safety-score", s.authed(s.handleSafetyScore))

	mux.HandleFunc("POST /api/fake-call", s.authed(s.handleFakeCall))
	mux.HandleFunc("POST /api/fake-call/ring", s.authed(s.handleFakeCallRing))
	mux.HandleFunc("POST /api/fake-call/end", s.authed(s.handleFakeCallEnd))

	if s.staticDir != "" {
		s.logger.Info("serving frontend from filesystem", zap.String("dir", s.staticDir), zap.Bool("dev", s.dev))
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
}

// Handler returns the routed mux wrapped in the security headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return securityHeaders(mux)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorize(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h(w, r)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	c, err := s.broadcaster.AddClient(conn)
	if err != nil {
		s.logger.Warn("ws client rejected", zap.String("remote", r.RemoteAddr), zap.Error(err))
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		return
	}
	s.logger.Info("websocket client connected", zap.String("remote", r.RemoteAddr))

	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			s.logger.Info("websocket client disconnected", zap.String("remote", r.RemoteAddr))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": string(health.StatusHealthy)})
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Health.Report(r.Context()))
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phoneNumber"`
		Message     string `json:"message"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.PhoneNumber) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Phone number and message are required")
		return
	}
	if s.svc.Notify == nil {
		writeError(w, http.StatusInternalServerError, "Failed to send notification")
		return
	}

	res, err := s.svc.Notify.Send(r.Context(), req.PhoneNumber, req.Message)
	if err != nil {
		if errors.Is(err, domain.ErrProviderValidation) {
			writeError(w, http.StatusBadRequest, userMessage(err))
			return
		}
		writeError(w, http.StatusInternalServerError, userMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.broadcaster.Snapshot())
}

func (s *Server) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Capabilities)
}

func (s *Server) handleSOSToggle(w http.ResponseWriter, r *http.Request) {
	state := s.svc.Machine.Toggle(r.Context(), sourceOf(r, domain.TriggerManual))
	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (s *Server) handleSOSActivate(w http.ResponseWriter, r *http.Request) {
	state, changed := s.svc.Machine.Activate(r.Context(), sourceOf(r, domain.TriggerAPI))
	writeJSON(w, http.StatusOK, map[string]any{"state": state, "changed": changed})
}

// sourceOf reads an optional ?source= override; the console sends manual.
func sourceOf(r *http.Request, fallback domain.TriggerSource) domain.TriggerSource {
	switch src := domain.TriggerSource(r.URL.Query().Get("source")); src {
	case domain.TriggerManual, domain.TriggerVoice, domain.TriggerAPI:
		return src
	default:
		return fallback
	}
}

type listeningReply struct {
	State      domain.ListeningState   `json:"state"`
	Permission domain.PermissionResult `json:"permission"`
	Error      string                  `json:"error,omitempty"`
}

func (s *Server) handleVoiceStart(w http.ResponseWriter, r *http.Request) {
	_, err := s.svc.Listener.Start(r.Context())
	s.writeListening(w, err)
}

func (s *Server) handleVoiceStop(w http.ResponseWriter, _ *http.Request) {
	s.svc.Listener.Stop()
	s.writeListening(w, nil)
}

func (s *Server) handleVoiceToggle(w http.ResponseWriter, r *http.Request) {
	_, err := s.svc.Listener.Toggle(r.Context())
	s.writeListening(w, err)
}

func (s *Server) writeListening(w http.ResponseWriter, err error) {
	state, perm := s.svc.Listener.State()
	reply := listeningReply{State: state, Permission: perm}
	status := http.StatusOK
	if err != nil {
		reply.Error = userMessage(err)
		status = statusFor(err)
	}
	writeJSON(w, status, reply)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	var req domain.RecognitionResult
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.Listener.Feed(req); err != nil {
		writeError(w, statusFor(err), userMessage(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVoiceEnd(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Listener.EndSession(); err != nil {
		writeError(w, statusFor(err), userMessage(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type voiceErrorRequest struct {
	Error string `json:"error"`
}

func (s *Server) handleVoiceError(w http.ResponseWriter, r *http.Request) {
	var req voiceErrorRequest
	if !decode(w, r, &req) {
		return
	}
	msg := strings.TrimSpace(req.Error)
	if msg == "" {
		msg = "unknown"
	}
	if err := s.svc.Listener.FailSession(errors.New(msg)); err != nil {
		writeError(w, statusFor(err), userMessage(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	var fix domain.Coordinate
	if !decode(w, r, &fix) {
		return
	}
	if fix.Latitude < -90 || fix.Latitude > 90 || fix.Longitude < -180 || fix.Longitude > 180 {
		writeError(w, http.StatusBadRequest, "coordinate out of range")
		return
	}
	s.svc.Tracker.Report(fix)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLocationError(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.svc.Tracker.ReportError(domain.LocationErrorFromCode(req.Code))
	w.WriteHeader(http.StatusNoContent)
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSharing(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.Sharing.SetSharing(req.Enabled); err != nil {
		writeError(w, statusFor(err), userMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sharing": s.svc.Sharing.Sharing()})
}

func (s *Server) handleRouteMonitoring(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decode(w, r, &req) {
		return
	}
	s.svc.Sharing.SetRouteMonitoring(req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"routeMonitoring": s.svc.Sharing.RouteMonitoring()})
}

func (s *Server) handleGuardianList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, GuardiansPayload{Guardians: s.svc.Guardians.List()})
}

func (s *Server) handleGuardianAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if !decode(w, r, &req) {
		return
	}
	g, err := s.svc.Guardians.Add(req.Name, req.Phone)
	if err != nil {
		writeError(w, statusFor(err), userMessage(err))
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleGuardianRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Guardians.Remove(r.PathValue("id")); err != nil {
		writeError(w, statusFor(err), userMessage(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSafetyScore(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	m := s.safety
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, safety.Evaluate(m))
}

func (s *Server) handleFakeCall(w http.ResponseWriter, r *http.Request) {
	var req fakecall.Request
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.FakeCall.Generate(r.Context(), req))
}

func (s *Server) handleFakeCallRing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CallerID string `json:"callerId"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.svc.Call.Ring(req.CallerID)
	ringing, caller := s.svc.Call.Ringing()
	writeJSON(w, http.StatusOK, map[string]any{"ringing": ringing, "callerId": caller})
}

func (s *Server) handleFakeCallEnd(w http.ResponseWriter, _ *http.Request) {
	if err := s.svc.Call.End(); err != nil {
		writeError(w, statusFor(err), userMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ringing": false})
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.authToken {
		return true
	}

	if r.Header.Get("X-WISE-Token") == s.authToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps the failure taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrProviderValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, guardian.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, voice.ErrNoSession), errors.Is(err, fakecall.ErrNotRinging):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnsupportedCapability):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// userMessage drops the taxonomy prefix from wrapped errors.
func userMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{domain.ErrProviderValidation, domain.ErrProviderDispatch} {
		if errors.Is(err, sentinel) {
			msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
		}
	}
	return msg
}

// NewHTTPServer builds the listener for host:port.
func NewHTTPServer(host string, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
