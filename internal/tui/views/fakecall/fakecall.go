// Package fakecall is the overlay for setting up a fake incoming call:
// a two-field form, the generated scenario and the ringing state.
package fakecall

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/Sabith-07/WISE/internal/fakecall"
	"github.com/Sabith-07/WISE/internal/tui/theme"
)

const wrapWidth = 72

type field int

const (
	fieldCaller field = iota
	fieldMessage
)

type Model struct {
	caller  textinput.Model
	message textinput.Model
	focus   field

	Pending bool
	Err     string
	Result  *fakecall.Scenario

	Ringing bool
	Caller  string

	renderer *glamour.TermRenderer
}

func New() Model {
	caller := textinput.New()
	caller.Placeholder = "Mom"
	caller.Prompt = "Caller ID: "
	caller.CharLimit = 30

	message := textinput.New()
	message.Placeholder = "Hey, where are you? I need you home now."
	message.Prompt = "Message:   "
	message.CharLimit = 300
	message.Width = wrapWidth

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(wrapWidth),
	)

	return Model{caller: caller, message: message, renderer: renderer}
}

// Open focuses the caller field and clears the last result.
func (m *Model) Open() tea.Cmd {
	m.focus = fieldCaller
	m.message.Blur()
	m.Err = ""
	return m.caller.Focus()
}

// Request returns the form contents.
func (m Model) Request() fakecall.Request {
	return fakecall.Request{
		CallerID:           strings.TrimSpace(m.caller.Value()),
		PreRecordedMessage: strings.TrimSpace(m.message.Value()),
	}
}

// SetResult records a generate reply.
func (m *Model) SetResult(res fakecall.Result, err error) {
	m.Pending = false
	switch {
	case err != nil:
		m.Err, m.Result = err.Error(), nil
	case !res.Success:
		m.Err, m.Result = res.Error, nil
	default:
		m.Err, m.Result = "", res.Data
	}
}

// Update moves focus on tab / shift+tab and sends everything else to the
// focused field.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "tab", "shift+tab", "down", "up":
			return m, m.toggleFocus()
		}
	}
	var cmd tea.Cmd
	if m.focus == fieldCaller {
		m.caller, cmd = m.caller.Update(msg)
	} else {
		m.message, cmd = m.message.Update(msg)
	}
	return m, cmd
}

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == fieldCaller {
		m.focus = fieldMessage
		m.caller.Blur()
		return m.message.Focus()
	}
	m.focus = fieldCaller
	m.message.Blur()
	return m.caller.Focus()
}

func (m Model) View() string {
	lines := []string{
		theme.StyleHeader.Render("Fake call"),
		m.caller.View(),
		m.message.View(),
		"",
	}

	switch {
	case m.Pending:
		lines = append(lines, theme.StyleDimmed.Render("Generating scenario..."))
	case m.Err != "":
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorDanger).Render(m.Err))
	case m.Result != nil:
		lines = append(lines, m.renderScenario())
	}

	if m.Ringing {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorWarning).Bold(true).
			Render(fmt.Sprintf("Incoming call from %s... (ctrl+e to end)", m.Caller)))
	}

	lines = append(lines, theme.StyleDimmed.Render("tab:field  enter:generate  ctrl+r:ring  ctrl+e:end call  esc:close"))
	return theme.StyleBorder.Padding(0, 1).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderScenario() string {
	md := fmt.Sprintf("### Scenario\n\n%s\n", m.Result.ScenarioDescription)
	if m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
