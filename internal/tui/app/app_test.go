package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/fakecall"
	"github.com/Sabith-07/WISE/internal/session"
	"github.com/Sabith-07/WISE/internal/tui/client"
	"github.com/Sabith-07/WISE/internal/ws"
)

type nopStream struct{}

func (nopStream) Listen(context.Context) tea.Cmd   { return nil }
func (nopStream) ReadLoop(context.Context) tea.Cmd { return nil }

type fakeAPI struct {
	toggles  int
	voice    int
	sharing  []bool
	route    []bool
	rung     []string
	ended    int
	requests []fakecall.Request
	err      error
}

func (f *fakeAPI) ToggleSOS(context.Context) (domain.ActivationState, error) {
	f.toggles++
	return domain.ActivationActive, f.err
}

func (f *fakeAPI) ToggleVoice(context.Context) (client.ListeningReply, error) {
	f.voice++
	return client.ListeningReply{State: domain.ListeningActive}, f.err
}

func (f *fakeAPI) SetSharing(_ context.Context, enabled bool) error {
	f.sharing = append(f.sharing, enabled)
	return f.err
}

func (f *fakeAPI) SetRouteMonitoring(_ context.Context, enabled bool) error {
	f.route = append(f.route, enabled)
	return f.err
}

func (f *fakeAPI) GenerateFakeCall(_ context.Context, req fakecall.Request) (fakecall.Result, error) {
	f.requests = append(f.requests, req)
	return fakecall.Result{Success: true, Data: &fakecall.Scenario{ScenarioDescription: "Mom needs help with groceries."}}, f.err
}

func (f *fakeAPI) RingFakeCall(_ context.Context, caller string) error {
	f.rung = append(f.rung, caller)
	return f.err
}

func (f *fakeAPI) EndFakeCall(context.Context) error {
	f.ended++
	return f.err
}

func newModel(api API) Model {
	m := New(nopStream{}, api)
	m.width = 100
	m.height = 30
	m.connected = true
	return m
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	next, _ := m.Update(cmd())
	return next.(Model)
}

func TestDisconnectedView(t *testing.T) {
	m := New(nopStream{}, &fakeAPI{})
	m.width = 80
	m.height = 24

	view := m.View()
	if !strings.Contains(view, "Waiting for the WISE server") {
		t.Errorf("disconnected view should say it is waiting, got:\n%s", view)
	}
}

func TestSnapshotMirrorsState(t *testing.T) {
	m := newModel(&fakeAPI{})

	state := session.NewState()
	state.Activation = domain.ActivationActive
	state.ActivationSource = domain.TriggerVoice
	state.Sharing = true

	next, _ := m.Update(client.WSSnapshotMsg{Payload: ws.SnapshotPayload{
		State:     state,
		Guardians: []domain.Guardian{{ID: "1", Name: "Asha", Phone: "+919876543210"}},
	}})
	m = next.(Model)

	if !m.button.Active() {
		t.Error("button should be active after snapshot")
	}
	if !m.state.Sharing {
		t.Error("sharing not mirrored")
	}
	view := m.View()
	for _, want := range []string{"SOS ACTIVE", "Asha", "+919876543210"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestStateMessageDeactivates(t *testing.T) {
	m := newModel(&fakeAPI{})
	active := session.NewState()
	active.Activation = domain.ActivationActive
	next, _ := m.Update(client.WSStateMsg{Type: ws.MsgActivation, Payload: ws.StatePayload{State: active}})
	m = next.(Model)

	next, _ = m.Update(client.WSStateMsg{Type: ws.MsgActivation, Payload: ws.StatePayload{State: session.NewState()}})
	m = next.(Model)
	if m.button.Active() {
		t.Error("button should be inactive")
	}
}

func TestKeysDriveAPI(t *testing.T) {
	api := &fakeAPI{}
	m := newModel(api)

	m, cmd := press(t, m, runes("s"))
	m = run(t, m, cmd)
	if api.toggles != 1 {
		t.Errorf("toggles = %d, want 1", api.toggles)
	}

	m, cmd = press(t, m, runes("v"))
	m = run(t, m, cmd)
	if api.voice != 1 {
		t.Errorf("voice toggles = %d, want 1", api.voice)
	}

	m, cmd = press(t, m, runes("l"))
	m = run(t, m, cmd)
	m.state.Sharing = true
	m, cmd = press(t, m, runes("l"))
	m = run(t, m, cmd)
	if len(api.sharing) != 2 || !api.sharing[0] || api.sharing[1] {
		t.Errorf("sharing calls = %v, want [true false]", api.sharing)
	}

	m, cmd = press(t, m, runes("r"))
	run(t, m, cmd)
	if len(api.route) != 1 || !api.route[0] {
		t.Errorf("route calls = %v, want [true]", api.route)
	}
}

func TestActionFailureBecomesNotice(t *testing.T) {
	api := &fakeAPI{err: errors.New("POST /api/sharing: Location sharing is not supported")}
	m := newModel(api)

	m, cmd := press(t, m, runes("l"))
	m = run(t, m, cmd)

	if len(m.notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(m.notices))
	}
	n := m.notices[0]
	if n.Variant != domain.NoticeDestructive || n.Title != "Location sharing failed" {
		t.Errorf("notice = %+v", n)
	}
}

func TestNoticesAreCapped(t *testing.T) {
	m := newModel(&fakeAPI{})
	for i := 0; i < maxNotices+2; i++ {
		next, _ := m.Update(client.WSNoticeMsg{Notice: domain.Notice{Title: "SOS Activated!"}})
		m = next.(Model)
	}
	if len(m.notices) != maxNotices {
		t.Errorf("notices = %d, want %d", len(m.notices), maxNotices)
	}
}

func TestDeviceCommandShown(t *testing.T) {
	m := newModel(&fakeAPI{})
	raw, _ := json.Marshal(ws.OpenURLPayload{URL: "https://wa.me/?text=help", Target: "_blank"})
	next, _ := m.Update(client.WSDeviceMsg{Type: ws.MsgOpenURL, Raw: raw})
	m = next.(Model)

	if m.lastCmd != "open https://wa.me/?text=help" {
		t.Errorf("lastCmd = %q", m.lastCmd)
	}
}

func TestFakeCallOverlay(t *testing.T) {
	api := &fakeAPI{}
	m := newModel(api)

	m, _ = press(t, m, runes("f"))
	if m.overlay != OverlayFakeCall {
		t.Fatal("f should open the fake call overlay")
	}

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("empty form should not call the API")
	}
	if m.fakeCall.Err != "Caller ID and message are required." {
		t.Errorf("form error = %q", m.fakeCall.Err)
	}

	// q is text inside the form, not quit.
	m, cmd = press(t, m, runes("q"))
	if cmd != nil {
		if _, quit := cmd().(tea.QuitMsg); quit {
			t.Fatal("q inside the form must not quit")
		}
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})

	m, _ = press(t, m, runes("Mom"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(t, m, runes("Please call me back now"))

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.fakeCall.Pending {
		t.Error("form should be pending while generating")
	}
	m = run(t, m, cmd)
	if len(api.requests) != 1 || api.requests[0].CallerID != "Mom" {
		t.Fatalf("requests = %+v", api.requests)
	}
	if m.fakeCall.Result == nil || m.fakeCall.Pending {
		t.Errorf("result not applied: %+v", m.fakeCall)
	}

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m = run(t, m, cmd)
	if len(api.rung) != 1 || api.rung[0] != "Mom" {
		t.Errorf("rung = %v", api.rung)
	}

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlE})
	m = run(t, m, cmd)
	if api.ended != 1 {
		t.Errorf("ended = %d", api.ended)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.overlay != OverlayNone {
		t.Error("esc should close the overlay")
	}
}

func TestQuit(t *testing.T) {
	m := newModel(&fakeAPI{})
	_, cmd := press(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
	if m.ctx.Err() == nil {
		t.Error("quit should cancel the model context")
	}
}
