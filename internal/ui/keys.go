package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Escape     key.Binding
	ViewLogs   key.Binding

	CycleFilter key.Binding
	Open        key.Binding
	Book        key.Binding
	Finish      key.Binding
	Cancel      key.Binding
	Favorite    key.Binding

	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// log screen only
	ToggleFollow key.Binding
}

func bind(label, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(label, desc))
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit:       bind("q", "Quit", "ctrl+c", "q"),
		Help:       bind("h/?", "Toggle help", "h", "?"),
		CycleTheme: bind("T", "Cycle theme", "T"),
		Escape:     bind("esc", "Back to list", "esc"),
		ViewLogs:   bind("l", "Engine log", "l"),

		CycleFilter: bind("c", "Cycle category", "c"),
		Open:        bind("enter", "Point details", "enter"),
		Book:        bind("b", "Book feeding", "b"),
		Finish:      bind("f", "Finish feeding", "f"),
		Cancel:      bind("x", "Cancel feeding", "x"),
		Favorite:    bind("s", "Toggle favorite", "s"),

		Up:     bind("k/up", "Move up", "k", "up"),
		Down:   bind("j/down", "Move down", "j", "down"),
		Top:    bind("g", "First point", "g", "home"),
		Bottom: bind("G", "Last point", "G", "end"),

		ToggleFollow: bind("space", "Follow log", " "),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Book, k.Finish, k.Cancel, k.Favorite, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap. The groups line up with helpTitles.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.Open, k.Escape},
		{k.Book, k.Finish, k.Cancel, k.Favorite, k.CycleFilter},
		{k.ViewLogs, k.ToggleFollow, k.CycleTheme, k.Help, k.Quit},
	}
}
