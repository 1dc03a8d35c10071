// Package theme provides the Lip Gloss palette and shared styles for the
// wise-tui console. It is a leaf package with no internal imports besides
// domain, to avoid import cycles between views.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Sabith-07/WISE/internal/domain"
)

// SOS colors.
var (
	ColorSOSIdle   = lipgloss.Color("#7f1d1d")
	ColorSOSActive = lipgloss.Color("#ef4444")
	ColorSOSGlow   = lipgloss.Color("#fca5a5")
)

// Listening colors.
var (
	ColorListening  = lipgloss.Color("#22c55e")
	ColorRequesting = lipgloss.Color("#d97706")
	ColorIdle       = lipgloss.Color("#4b5563")
	ColorErrored    = lipgloss.Color("#dc2626")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// ListeningColor returns the color for a listener state.
func ListeningColor(s domain.ListeningState) lipgloss.Color {
	switch s {
	case domain.ListeningActive:
		return ColorListening
	case domain.ListeningRequestingPermission:
		return ColorRequesting
	case domain.ListeningError:
		return ColorErrored
	default:
		return ColorIdle
	}
}

// AvailabilityColor colors a capability probe result.
func AvailabilityColor(a domain.Availability) lipgloss.Color {
	switch a {
	case domain.Available:
		return ColorHealthy
	case domain.Unavailable:
		return ColorDanger
	default:
		return ColorDimmed
	}
}

// NoticeColor colors a notice by variant.
func NoticeColor(v domain.NoticeVariant) lipgloss.Color {
	if v == domain.NoticeDestructive {
		return ColorDanger
	}
	return ColorBright
}

// OnOff renders a boolean toggle.
func OnOff(on bool) string {
	if on {
		return lipgloss.NewStyle().Foreground(ColorHealthy).Render("on")
	}
	return StyleDimmed.Render("off")
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)
)
