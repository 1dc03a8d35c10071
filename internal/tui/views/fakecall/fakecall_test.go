package fakecall

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Sabith-07/WISE/internal/fakecall"
)

func typeText(m Model, s string) Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func TestFormFillsBothFields(t *testing.T) {
	m := New()
	m.Open()
	m = typeText(m, "Mom")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, "Come home, dinner is ready")

	req := m.Request()
	if req.CallerID != "Mom" {
		t.Errorf("CallerID = %q, want Mom", req.CallerID)
	}
	if req.PreRecordedMessage != "Come home, dinner is ready" {
		t.Errorf("PreRecordedMessage = %q", req.PreRecordedMessage)
	}
	if err := req.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestSetResult(t *testing.T) {
	m := New()
	m.Pending = true

	m.SetResult(fakecall.Result{Error: "AI service is unavailable"}, nil)
	if m.Pending || m.Err != "AI service is unavailable" || m.Result != nil {
		t.Errorf("failed result: %+v", m)
	}
	if !strings.Contains(m.View(), "AI service is unavailable") {
		t.Errorf("view missing error:\n%s", m.View())
	}

	m.SetResult(fakecall.Result{}, errors.New("connection refused"))
	if m.Err != "connection refused" {
		t.Errorf("Err = %q", m.Err)
	}

	m.SetResult(fakecall.Result{Success: true, Data: &fakecall.Scenario{ScenarioDescription: "Mom asks you to pick up milk."}}, nil)
	if m.Err != "" || m.Result == nil {
		t.Fatalf("success result: %+v", m)
	}
	if m.View() == "" {
		t.Error("empty view")
	}
}

func TestRingingBanner(t *testing.T) {
	m := New()
	m.Ringing, m.Caller = true, "Mom"
	if !strings.Contains(m.View(), "Incoming call from Mom") {
		t.Errorf("view missing ringing banner:\n%s", m.View())
	}
}
