package logging

import "testing"

func TestNew(t *testing.T) {
	logger, err := New("debug", true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !logger.Core().Enabled(-1) {
		t.Error("debug level should be enabled")
	}

	logger, err = New("warn", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Core().Enabled(0) {
		t.Error("info should be disabled at warn level")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("loud", false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
}
