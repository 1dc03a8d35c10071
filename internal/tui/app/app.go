package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/fakecall"
	"github.com/Sabith-07/WISE/internal/session"
	"github.com/Sabith-07/WISE/internal/tui/client"
	"github.com/Sabith-07/WISE/internal/tui/theme"
	fakecallview "github.com/Sabith-07/WISE/internal/tui/views/fakecall"
	"github.com/Sabith-07/WISE/internal/tui/views/sos"
	"github.com/Sabith-07/WISE/internal/tui/views/status"
	"github.com/Sabith-07/WISE/internal/ws"
)

const maxNotices = 4

// Stream is the server push channel.
type Stream interface {
	Listen(ctx context.Context) tea.Cmd
	ReadLoop(ctx context.Context) tea.Cmd
}

// API is the subset of the REST surface the console drives.
type API interface {
	ToggleSOS(ctx context.Context) (domain.ActivationState, error)
	ToggleVoice(ctx context.Context) (client.ListeningReply, error)
	SetSharing(ctx context.Context, enabled bool) error
	SetRouteMonitoring(ctx context.Context, enabled bool) error
	GenerateFakeCall(ctx context.Context, req fakecall.Request) (fakecall.Result, error)
	RingFakeCall(ctx context.Context, callerID string) error
	EndFakeCall(ctx context.Context) error
}

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayFakeCall
)

type actionDoneMsg struct {
	action string
	err    error
}

type fakeCallDoneMsg struct {
	res fakecall.Result
	err error
}

// Model is the root Bubble Tea model.
type Model struct {
	ws     Stream
	api    API
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int

	state     session.State
	guardians []domain.Guardian
	notices   []domain.Notice
	lastCmd   string
	overlay   Overlay

	statusBar status.Model
	button    sos.Model
	fakeCall  fakecallview.Model

	connected bool
}

// New creates the root model.
func New(stream Stream, api API) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		ws:        stream,
		api:       api,
		ctx:       ctx,
		cancel:    cancel,
		keys:      DefaultKeyMap(),
		state:     session.NewState(),
		statusBar: status.New(),
		button:    sos.New(),
		fakeCall:  fakecallview.New(),
	}
}

// Init starts the WebSocket connection.
func (m Model) Init() tea.Cmd {
	return m.ws.Listen(m.ctx)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sos.FrameMsg:
		var cmd tea.Cmd
		m.button, cmd = m.button.Update(msg)
		return m, cmd

	case client.WSConnectedMsg:
		m.connected = true
		m.statusBar.Connected = true
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSDisconnectedMsg:
		m.connected = false
		m.statusBar.Connected = false
		return m, m.ws.Listen(m.ctx)

	case client.WSSnapshotMsg:
		m.guardians = msg.Payload.Guardians
		m.statusBar.Capabilities = msg.Payload.Capabilities
		cmd := m.applyState(msg.Payload.State)
		return m, tea.Batch(cmd, m.ws.ReadLoop(m.ctx))

	case client.WSStateMsg:
		cmd := m.applyState(msg.Payload.State)
		return m, tea.Batch(cmd, m.ws.ReadLoop(m.ctx))

	case client.WSGuardiansMsg:
		m.guardians = msg.Payload.Guardians
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSNoticeMsg:
		m.pushNotice(msg.Notice)
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSDeviceMsg:
		m.lastCmd = describeDevice(msg)
		return m, m.ws.ReadLoop(m.ctx)

	case client.WSErrorMsg:
		m.pushNotice(domain.Notice{Title: "Error", Description: msg.Payload.Message, Variant: domain.NoticeDestructive})
		return m, m.ws.ReadLoop(m.ctx)

	case actionDoneMsg:
		if msg.err != nil {
			m.pushNotice(domain.Notice{
				Title:       msg.action + " failed",
				Description: msg.err.Error(),
				Variant:     domain.NoticeDestructive,
			})
		}
		return m, nil

	case fakeCallDoneMsg:
		m.fakeCall.SetResult(msg.res, msg.err)
		return m, nil
	}

	return m, nil
}

// applyState replaces the mirrored session and syncs the views.
func (m *Model) applyState(s session.State) tea.Cmd {
	m.state = s
	m.statusBar.State = s
	m.fakeCall.Ringing = s.FakeCallRinging
	m.fakeCall.Caller = s.FakeCallCaller
	return m.button.SetState(s.Activation, s.ActivationSource)
}

func (m *Model) pushNotice(n domain.Notice) {
	m.notices = append([]domain.Notice{n}, m.notices...)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[:maxNotices]
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.overlay == OverlayFakeCall {
		return m.handleFakeCallKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.SOS):
		return m, m.do("SOS", func(ctx context.Context) error {
			_, err := m.api.ToggleSOS(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Voice):
		return m, m.do("Voice trigger", func(ctx context.Context) error {
			_, err := m.api.ToggleVoice(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Sharing):
		enable := !m.state.Sharing
		return m, m.do("Location sharing", func(ctx context.Context) error {
			return m.api.SetSharing(ctx, enable)
		})

	case key.Matches(msg, m.keys.Route):
		enable := !m.state.RouteMonitoring
		return m, m.do("Route monitoring", func(ctx context.Context) error {
			return m.api.SetRouteMonitoring(ctx, enable)
		})

	case key.Matches(msg, m.keys.FakeCall):
		m.overlay = OverlayFakeCall
		return m, m.fakeCall.Open()
	}

	return m, nil
}

func (m Model) handleFakeCallKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Escape):
		m.overlay = OverlayNone
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		req := m.fakeCall.Request()
		if err := req.Validate(); err != nil {
			m.fakeCall.SetResult(fakecall.Result{Error: validationText(err)}, nil)
			return m, nil
		}
		m.fakeCall.Pending = true
		api, ctx := m.api, m.ctx
		return m, func() tea.Msg {
			res, err := api.GenerateFakeCall(ctx, req)
			return fakeCallDoneMsg{res: res, err: err}
		}

	case key.Matches(msg, m.keys.Ring):
		caller := m.fakeCall.Request().CallerID
		if caller == "" {
			caller = "Unknown"
		}
		return m, m.do("Fake call", func(ctx context.Context) error {
			return m.api.RingFakeCall(ctx, caller)
		})

	case key.Matches(msg, m.keys.EndCall):
		return m, m.do("End call", m.api.EndFakeCall)
	}

	var cmd tea.Cmd
	m.fakeCall, cmd = m.fakeCall.Update(msg)
	return m, cmd
}

// do runs fn off the update loop. State changes come back over the stream;
// only failures are reported here.
func (m Model) do(action string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

// validationText drops the error class prefix so the form shows only the
// user-facing sentence.
func validationText(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

func describeDevice(msg client.WSDeviceMsg) string {
	switch msg.Type {
	case ws.MsgOpenURL:
		var p ws.OpenURLPayload
		if json.Unmarshal(msg.Raw, &p) == nil {
			return "open " + p.URL
		}
	case ws.MsgVibrate:
		var p ws.VibratePayload
		if json.Unmarshal(msg.Raw, &p) == nil && len(p.PatternMS) == 0 {
			return "vibration stopped"
		}
		return "vibrating"
	case ws.MsgRingtone:
		var p ws.RingtonePayload
		if json.Unmarshal(msg.Raw, &p) == nil && !p.Play {
			return "ringtone stopped"
		}
		return "ringtone playing"
	case ws.MsgLocate:
		return "location requested"
	}
	return string(msg.Type)
}

// View renders the full console.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if !m.connected {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.statusBar.View(),
			theme.StyleDimmed.Render("  Waiting for the WISE server..."),
		)
	}

	sections := []string{
		m.statusBar.View(),
		lipgloss.PlaceHorizontal(max(m.width, 40), lipgloss.Center, m.button.View()),
	}

	if m.overlay == OverlayFakeCall {
		sections = append(sections, m.fakeCall.View())
	} else {
		sections = append(sections, m.renderGuardians(), m.renderNotices())
		if m.state.FakeCallRinging {
			sections = append(sections, lipgloss.NewStyle().Foreground(theme.ColorWarning).Bold(true).
				Render(fmt.Sprintf("  Incoming call from %s", m.state.FakeCallCaller)))
		}
	}

	if m.lastCmd != "" {
		sections = append(sections, theme.StyleDimmed.Render("  device: "+m.lastCmd))
	}
	if m.overlay == OverlayNone {
		sections = append(sections, theme.StyleDimmed.Render("  s:SOS  v:voice  l:share location  r:route  f:fake call  q:quit"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderGuardians() string {
	lines := []string{theme.StyleHeader.Render("Guardians")}
	if len(m.guardians) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("  none"))
	}
	for _, g := range m.guardians {
		line := "  " + g.Name
		if g.Phone != "" {
			line += theme.StyleDimmed.Render("  " + g.Phone)
		}
		lines = append(lines, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderNotices() string {
	if len(m.notices) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.notices))
	for _, n := range m.notices {
		title := lipgloss.NewStyle().Bold(true).Foreground(theme.NoticeColor(n.Variant)).Render(n.Title)
		line := "  " + title
		if n.Description != "" {
			line += "  " + n.Description
		}
		lines = append(lines, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
