package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Cancel     key.Binding
	DeleteLast key.Binding
	Help       key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel drag"),
	),
	DeleteLast: key.NewBinding(
		key.WithKeys("backspace", "u"),
		key.WithHelp("u", "delete last connection"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Cancel, k.DeleteLast, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Cancel, k.DeleteLast},
		{k.Help, k.Quit},
	}
}
