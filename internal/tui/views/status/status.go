package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Sabith-07/WISE/internal/capability"
	"github.com/Sabith-07/WISE/internal/session"
	"github.com/Sabith-07/WISE/internal/tui/theme"
)

// Model holds the status bar state.
type Model struct {
	Connected    bool
	State        session.State
	Capabilities capability.Report
	Width        int
}

func New() Model {
	return Model{State: session.NewState()}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	if m.Connected {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	} else {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Connecting...")
	}

	s := m.State
	listening := lipgloss.NewStyle().Foreground(theme.ListeningColor(s.Listening)).Render(string(s.Listening))
	voice := "voice: " + listening
	if s.ListeningReason != "" {
		voice += theme.StyleDimmed.Render(" (" + string(s.ListeningReason) + ")")
	}

	parts := []string{
		connStr,
		voice,
		"sharing: " + theme.OnOff(s.Sharing),
		"route: " + theme.OnOff(s.RouteMonitoring),
		location(s),
	}
	line := strings.Join(parts, lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | "))

	caps := m.capabilities()

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(lipgloss.JoinVertical(lipgloss.Left, line, caps))
}

func location(s session.State) string {
	switch {
	case s.Position != nil:
		return fmt.Sprintf("%.5f, %.5f", s.Position.Latitude, s.Position.Longitude)
	case s.LocationError != "":
		return lipgloss.NewStyle().Foreground(theme.ColorWarning).Render(s.LocationError)
	default:
		return theme.StyleDimmed.Render("no fix")
	}
}

func (m Model) capabilities() string {
	c := m.Capabilities
	render := func(name string, color lipgloss.Color) string {
		return lipgloss.NewStyle().Foreground(color).Render(name)
	}
	return theme.StyleDimmed.Render("capabilities: ") + strings.Join([]string{
		render("mic", theme.AvailabilityColor(c.Microphone)),
		render("speech", theme.AvailabilityColor(c.Speech)),
		render("gps", theme.AvailabilityColor(c.Geolocation)),
		render("vibrate", theme.AvailabilityColor(c.Vibration)),
		render("sms", theme.AvailabilityColor(c.SMS)),
		render("ai", theme.AvailabilityColor(c.AI)),
	}, " ")
}
