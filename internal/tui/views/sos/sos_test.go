package sos

import (
	"strings"
	"testing"

	"github.com/Sabith-07/WISE/internal/domain"
)

func TestSetStateStartsPulseOnce(t *testing.T) {
	m := New()
	if cmd := m.SetState(domain.ActivationActive, domain.TriggerVoice); cmd == nil {
		t.Fatal("expected a frame command on activation")
	}
	if cmd := m.SetState(domain.ActivationActive, domain.TriggerVoice); cmd != nil {
		t.Error("second activation should not start another frame loop")
	}
	if !strings.Contains(m.View(), "SOS ACTIVE") {
		t.Errorf("view missing active label:\n%s", m.View())
	}
	if !strings.Contains(m.View(), "voice") {
		t.Errorf("view missing source:\n%s", m.View())
	}
}

func TestPulseMovesTowardTarget(t *testing.T) {
	m := New()
	m.SetState(domain.ActivationActive, domain.TriggerManual)

	var peak float64
	for i := 0; i < 30; i++ {
		m, _ = m.Update(FrameMsg{})
		if m.Level() > peak {
			peak = m.Level()
		}
	}
	if peak < 0.5 {
		t.Errorf("pulse peak = %.2f, want >= 0.5", peak)
	}
}

func TestDeactivateStopsPulse(t *testing.T) {
	m := New()
	m.SetState(domain.ActivationActive, domain.TriggerManual)
	m, _ = m.Update(FrameMsg{})

	if cmd := m.SetState(domain.ActivationInactive, ""); cmd != nil {
		t.Error("deactivation should not schedule frames")
	}
	m, cmd := m.Update(FrameMsg{})
	if cmd != nil {
		t.Error("frame after deactivation should end the loop")
	}
	if m.Level() != 0 {
		t.Errorf("level = %.2f, want 0", m.Level())
	}
	if !strings.Contains(m.View(), "press s to send an alert") {
		t.Errorf("idle view:\n%s", m.View())
	}
}
