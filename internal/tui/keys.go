package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit    key.Binding
	Refresh key.Binding
	Open    key.Binding
	Dismiss key.Binding
	Sound   key.Binding
}

var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open newest toast")),
	Dismiss: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss newest toast")),
	Sound:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "toggle sound")),
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Refresh, k.Open, k.Dismiss, k.Sound, k.Quit}
}
