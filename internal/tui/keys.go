package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Toggle     key.Binding
	Add        key.Binding
	Priority   key.Binding
	History    key.Binding
	Open       key.Binding
	NextFilter key.Binding
	PrevFilter key.Binding
	Tags       key.Binding
	Reload     key.Binding
	Back       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:     key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "complete/reopen")),
		Add:        key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Priority:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "cycle priority")),
		History:    key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "history")),
		Open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		NextFilter: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next filter")),
		PrevFilter: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev filter")),
		Tags:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "filter tags")),
		Reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Add, k.NextFilter, k.Tags, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Back},
		{k.Toggle, k.Priority, k.History, k.Add},
		{k.NextFilter, k.PrevFilter, k.Tags, k.Reload},
		{k.Help, k.Quit},
	}
}
