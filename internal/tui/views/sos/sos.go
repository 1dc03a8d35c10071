// Package sos renders the emergency button. While the alert is active the
// button pulses on a damped spring.
package sos

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/tui/theme"
)

const (
	fps       = 30
	frequency = 6.0
	damping   = 0.4
	barWidth  = 24
)

// FrameMsg advances the pulse by one frame.
type FrameMsg struct{}

// Model is the SOS button.
type Model struct {
	State  domain.ActivationState
	Source domain.TriggerSource

	spring  harmonica.Spring
	pos     float64
	vel     float64
	target  float64
	ticking bool
}

func New() Model {
	return Model{
		State:  domain.ActivationInactive,
		spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping),
	}
}

// Active reports whether the button shows an alert in progress.
func (m Model) Active() bool { return m.State == domain.ActivationActive }

// SetState applies a new activation state and returns the frame command
// that starts the pulse, if one is needed.
func (m *Model) SetState(state domain.ActivationState, source domain.TriggerSource) tea.Cmd {
	m.State = state
	m.Source = source
	if !m.Active() {
		m.pos, m.vel, m.target = 0, 0, 0
		return nil
	}
	if m.ticking {
		return nil
	}
	m.ticking = true
	m.target = 1
	return frame()
}

// Update steps the spring on FrameMsg. The pulse flips direction each time
// it settles near its target and stops once the alert is inactive.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(FrameMsg); !ok {
		return m, nil
	}
	if !m.Active() {
		m.ticking = false
		return m, nil
	}
	m.pos, m.vel = m.spring.Update(m.pos, m.vel, m.target)
	if abs(m.pos-m.target) < 0.05 && abs(m.vel) < 0.5 {
		m.target = 1 - m.target
	}
	return m, frame()
}

// Level is the current pulse intensity, clamped to [0, 1].
func (m Model) Level() float64 {
	switch {
	case m.pos < 0:
		return 0
	case m.pos > 1:
		return 1
	}
	return m.pos
}

func (m Model) View() string {
	if !m.Active() {
		btn := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorBright).
			Background(theme.ColorSOSIdle).
			Padding(1, 4).
			Render("SOS")
		return lipgloss.JoinVertical(lipgloss.Center, btn, theme.StyleDimmed.Render("press s to send an alert"))
	}

	color := theme.ColorSOSActive
	if m.Level() > 0.5 {
		color = theme.ColorSOSGlow
	}
	btn := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorBright).
		Background(color).
		Padding(1, 4).
		Render("SOS ACTIVE")

	filled := int(m.Level() * barWidth)
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		theme.StyleDimmed.Render(strings.Repeat("░", barWidth-filled))

	caption := "alert sent"
	if m.Source != "" {
		caption += " (" + string(m.Source) + ")"
	}
	caption += " · press s to cancel"
	return lipgloss.JoinVertical(lipgloss.Center, btn, bar, theme.StyleDimmed.Render(caption))
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/fps, func(time.Time) tea.Msg { return FrameMsg{} })
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
