package device

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type recordingCommander struct {
	mu    sync.Mutex
	calls [][]time.Duration
}

func (r *recordingCommander) Vibrate(pattern []time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, pattern)
	return nil
}

func (r *recordingCommander) snapshot() [][]time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]time.Duration(nil), r.calls...)
}

func TestPulseRepeatsUntilStopped(t *testing.T) {
	defer goleak.VerifyNone(t)

	cmd := &recordingCommander{}
	p := NewPulse(cmd, 10*time.Millisecond)

	pattern := []time.Duration{5 * time.Millisecond, 5 * time.Millisecond}
	if err := p.Start(pattern); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !p.Running() {
		t.Fatal("expected pulse to be running after Start")
	}

	deadline := time.Now().Add(time.Second)
	for len(cmd.snapshot()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := len(cmd.snapshot()); n < 3 {
		t.Fatalf("expected at least 3 vibrate calls, got %d", n)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.Running() {
		t.Error("expected pulse to be stopped")
	}

	calls := cmd.snapshot()
	if last := calls[len(calls)-1]; last != nil {
		t.Errorf("last vibrate call should cancel (nil pattern), got %v", last)
	}

	time.Sleep(30 * time.Millisecond)
	if after := len(cmd.snapshot()); after != len(calls) {
		t.Errorf("vibrate called %d times after Stop", after-len(calls))
	}
}

func TestPulseZeroCycleUsesPatternLength(t *testing.T) {
	defer goleak.VerifyNone(t)

	cmd := &recordingCommander{}
	p := NewPulse(cmd, 0)
	if err := p.Start([]time.Duration{0}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if p.Running() {
		t.Error("zero-length pattern should not start a repeat loop")
	}
	_ = p.Stop()
}
