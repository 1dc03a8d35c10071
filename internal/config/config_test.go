package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("WISE_AUTH_TOKEN", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Voice.Keyword != "help" {
		t.Errorf("keyword = %q, want help", cfg.Voice.Keyword)
	}
	if cfg.Alert.UnavailableText != "Location unavailable" {
		t.Errorf("unavailable text = %q", cfg.Alert.UnavailableText)
	}
	if _, _, ok := cfg.StaticFix(); ok {
		t.Error("default config should have no static fix")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9090
broadcast:
  throttle: 250ms
voice:
  keyword: bachao
location:
  latitude: 12.97
  longitude: 77.59
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q, unset keys should keep defaults", cfg.Server.Host)
	}
	if cfg.Broadcast.Throttle != 250*time.Millisecond {
		t.Errorf("throttle = %v, want 250ms", cfg.Broadcast.Throttle)
	}
	if cfg.Voice.Keyword != "bachao" {
		t.Errorf("keyword = %q", cfg.Voice.Keyword)
	}
	lat, lng, ok := cfg.StaticFix()
	if !ok || lat != 12.97 || lng != 77.59 {
		t.Errorf("StaticFix() = %v, %v, %v", lat, lng, ok)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TWILIO_ACCOUNT_SID":             "AC123",
		"TWILIO_AUTH_TOKEN":              " secret ",
		"TWILIO_PHONE_NUMBER":            "+15005550006",
		"GEMINI_API_KEY":                 "gem",
		"WISE_EMERGENCY_WHATSAPP_NUMBER": "+919876543210",
	}
	cfg := Default()
	cfg.Voice.DeepgramAPIKey = "from-file"
	cfg.applyEnv(func(k string) string { return env[k] })

	if cfg.SMS.AccountSID != "AC123" || cfg.SMS.AuthToken != "secret" || cfg.SMS.From != "+15005550006" {
		t.Errorf("sms = %+v", cfg.SMS)
	}
	if cfg.AI.APIKey != "gem" {
		t.Errorf("ai key = %q", cfg.AI.APIKey)
	}
	if cfg.Alert.WhatsAppNumber != "+919876543210" {
		t.Errorf("whatsapp = %q", cfg.Alert.WhatsAppNumber)
	}
	if cfg.Voice.DeepgramAPIKey != "from-file" {
		t.Errorf("unset env var should not clear file value, got %q", cfg.Voice.DeepgramAPIKey)
	}
}

func TestMillis(t *testing.T) {
	got := Millis([]int{500, -1, 200})
	want := []time.Duration{500 * time.Millisecond, 0, 200 * time.Millisecond}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Millis()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("voice:\n  keyword: help\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(c *Config) {
			select {
			case reloaded <- c:
			default:
			}
		})
	}()

	// Rewrite until the watcher, which starts asynchronously, sees a change.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(600 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-reloaded:
			if c.Voice.Keyword != "bachao" {
				t.Errorf("keyword = %q, want bachao", c.Voice.Keyword)
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch: %v", err)
			}
			return
		case <-tick.C:
			if err := os.WriteFile(path, []byte("voice:\n  keyword: bachao\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("config was not reloaded")
		}
	}
}
