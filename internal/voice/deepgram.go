package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Sabith-07/WISE/internal/domain"
)

// DeepgramConfig controls the streaming listen endpoint.
type DeepgramConfig struct {
	APIKey     string
	APIBaseURL string
	Model      string
	Language   string
}

// DeepgramRecognizer captures the local microphone and streams it to
// Deepgram's live transcription websocket.
type DeepgramRecognizer struct {
	cfg     DeepgramConfig
	capture AudioCapture
	audio   AudioConfig
	dialer  *websocket.Dialer
}

func NewDeepgramRecognizer(cfg DeepgramConfig, capture AudioCapture, audio AudioConfig) *DeepgramRecognizer {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return &DeepgramRecognizer{
		cfg:     cfg,
		capture: capture,
		audio:   audio.withDefaults(),
		dialer:  websocket.DefaultDialer,
	}
}

func (r *DeepgramRecognizer) Start(ctx context.Context) (Session, error) {
	if strings.TrimSpace(r.cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: DEEPGRAM_API_KEY is not configured", domain.ErrUnsupportedCapability)
	}
	if r.capture == nil {
		return nil, fmt.Errorf("%w: no audio capture", domain.ErrUnsupportedCapability)
	}

	wsURL, err := buildListenURL(r.cfg, r.audio)
	if err != nil {
		return nil, err
	}

	stream, err := r.capture.Start(ctx, r.audio)
	if err != nil {
		return nil, fmt.Errorf("start capture: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+r.cfg.APIKey)
	conn, _, err := r.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		_ = stream.Stop()
		return nil, fmt.Errorf("connect to deepgram: %w", err)
	}

	s := &deepgramSession{
		conn:    conn,
		audio:   stream,
		results: make(chan domain.RecognitionResult, 64),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.wg.Add(2)
	go s.readLoop()
	go s.pumpLoop()
	go func() {
		s.wg.Wait()
		close(s.results)
		_ = conn.Close()
		close(s.done)
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

type deepgramSession struct {
	conn  *websocket.Conn
	audio AudioStream

	results chan domain.RecognitionResult
	quit    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

func (s *deepgramSession) Results() <-chan domain.RecognitionResult { return s.results }

func (s *deepgramSession) Wait() error {
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *deepgramSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		_ = s.audio.Stop()
		_ = s.conn.Close()
	})
	<-s.done
	return nil
}

func (s *deepgramSession) setErr(err error) {
	if err == nil {
		return
	}
	select {
	case <-s.quit:
		// Errors after a local close are expected.
		return
	default:
	}
	if isCleanClose(err) {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// isCleanClose reports whether err, possibly wrapped, is a close frame the
// server sends when a stream ends normally.
func isCleanClose(err error) bool {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Code {
	case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
		return true
	}
	return false
}

// pumpLoop is the only writer on the websocket.
func (s *deepgramSession) pumpLoop() {
	defer s.wg.Done()

	buf := make([]byte, 4096)
	for {
		n, err := s.audio.Read(buf)
		if n > 0 {
			if werr := s.conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				s.setErr(fmt.Errorf("send audio: %w", werr))
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.setErr(fmt.Errorf("audio capture: %w", err))
			}
			break
		}
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.setErr(fmt.Errorf("close stream: %w", err))
	}
}

func (s *deepgramSession) readLoop() {
	defer s.wg.Done()
	// The capture must stop once the socket is gone, or pumpLoop blocks.
	defer func() { _ = s.audio.Stop() }()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("read transcript: %w", err))
			return
		}

		var resp deepgramResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			continue
		}
		if strings.EqualFold(resp.Type, "Error") {
			msg := strings.TrimSpace(resp.Message)
			if msg == "" {
				msg = "deepgram returned an unknown error"
			}
			s.setErr(errors.New(msg))
			return
		}

		text := resp.transcript()
		if text == "" {
			continue
		}
		result := domain.RecognitionResult{Text: text, Final: resp.IsFinal || resp.SpeechFinal}
		select {
		case s.results <- result:
		case <-s.quit:
			return
		}
	}
}

type deepgramResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (r deepgramResponse) transcript() string {
	if len(r.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Channel.Alternatives[0].Transcript)
}

func buildListenURL(cfg DeepgramConfig, audio AudioConfig) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	u, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid deepgram base url: %w", err)
	}

	audio = audio.withDefaults()
	q := u.Query()
	q.Set("model", cfg.Model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(audio.SampleRate))
	q.Set("channels", strconv.Itoa(audio.Channels))
	// Only finalized results can trigger, but interim ones keep the UI live.
	q.Set("interim_results", "true")
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
