package tui

import "github.com/charmbracelet/bubbles/key"

type historyKeys struct {
	Switch key.Binding
	Status key.Binding
	Up     key.Binding
	Down   key.Binding
	Quit   key.Binding
}

func newHistoryKeys() historyKeys {
	return historyKeys{
		Switch: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		Status: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle status")),
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k historyKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Switch, k.Status, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k historyKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
