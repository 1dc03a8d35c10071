package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/fakecall"
	"github.com/Sabith-07/WISE/internal/safety"
)

// HTTPClient calls the server's REST endpoints.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a client targeting baseURL (e.g. "http://127.0.0.1:8080").
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// ToggleSOS sends POST /api/sos/toggle as a manual trigger.
func (c *HTTPClient) ToggleSOS(ctx context.Context) (domain.ActivationState, error) {
	var out struct {
		State domain.ActivationState `json:"state"`
	}
	if err := c.post(ctx, "/api/sos/toggle?source=manual", nil, &out); err != nil {
		return "", err
	}
	return out.State, nil
}

// ToggleVoice sends POST /api/voice/toggle. A refused start still carries
// the listener state in the reply.
func (c *HTTPClient) ToggleVoice(ctx context.Context) (ListeningReply, error) {
	var out ListeningReply
	err := c.post(ctx, "/api/voice/toggle", nil, &out)
	return out, err
}

// SetSharing sends POST /api/sharing.
func (c *HTTPClient) SetSharing(ctx context.Context, enabled bool) error {
	return c.post(ctx, "/api/sharing", map[string]bool{"enabled": enabled}, nil)
}

// SetRouteMonitoring sends POST /api/route-monitoring.
func (c *HTTPClient) SetRouteMonitoring(ctx context.Context, enabled bool) error {
	return c.post(ctx, "/api/route-monitoring", map[string]bool{"enabled": enabled}, nil)
}

// GenerateFakeCall sends POST /api/fake-call.
func (c *HTTPClient) GenerateFakeCall(ctx context.Context, req fakecall.Request) (fakecall.Result, error) {
	var out fakecall.Result
	err := c.post(ctx, "/api/fake-call", req, &out)
	return out, err
}

// RingFakeCall sends POST /api/fake-call/ring.
func (c *HTTPClient) RingFakeCall(ctx context.Context, callerID string) error {
	return c.post(ctx, "/api/fake-call/ring", map[string]string{"callerId": callerID}, nil)
}

// EndFakeCall sends POST /api/fake-call/end.
func (c *HTTPClient) EndFakeCall(ctx context.Context) error {
	return c.post(ctx, "/api/fake-call/end", nil, nil)
}

// SafetyScore fetches /api/safety-score.
func (c *HTTPClient) SafetyScore(ctx context.Context) (safety.Report, error) {
	var out safety.Report
	err := c.get(ctx, "/api/safety-score", &out)
	return out, err
}

func (c *HTTPClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// do runs req and decodes the body into out. Error replies surface the
// server's {"error": "..."} text when there is one; the body is still
// decoded into out so callers can read partial state.
func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if out != nil && len(data) > 0 {
		if jerr := json.Unmarshal(data, out); jerr != nil && resp.StatusCode < 300 {
			return jerr
		}
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, e.Error)
		}
		return fmt.Errorf("%s %s: %d %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}
