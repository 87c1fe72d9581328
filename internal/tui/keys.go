package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle key.Binding
	UpDown key.Binding
	Select key.Binding
	Focus  key.Binding
	Reload key.Binding
	Help   key.Binding
	Quit   key.Binding
	Up     key.Binding
	Down   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Toggle: key.NewBinding(key.WithKeys("b", "[", "ctrl+b"), key.WithHelp("b", "sidebar")),
		UpDown: key.NewBinding(key.WithKeys("up", "down", "j", "k"), key.WithHelp("j/k", "navigate")),
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "filter")),
		Focus:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Up:     key.NewBinding(key.WithKeys("up", "k")),
		Down:   key.NewBinding(key.WithKeys("down", "j")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.UpDown, k.Select, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Focus, k.Reload},
		{k.UpDown, k.Select, k.Help, k.Quit},
	}
}
