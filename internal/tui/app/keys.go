package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the console.
type KeyMap struct {
	SOS      key.Binding
	Voice    key.Binding
	Sharing  key.Binding
	Route    key.Binding
	FakeCall key.Binding
	Submit   key.Binding
	Ring     key.Binding
	EndCall  key.Binding
	Escape   key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		SOS: key.NewBinding(
			key.WithKeys("s", " "),
			key.WithHelp("s", "toggle SOS"),
		),
		Voice: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "voice trigger"),
		),
		Sharing: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "share location"),
		),
		Route: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "route monitoring"),
		),
		FakeCall: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "fake call"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "generate"),
		),
		Ring: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "ring"),
		),
		EndCall: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "end call"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close overlay"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
