package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Start      key.Binding
	Pause      key.Binding
	Record     key.Binding
	Reset      key.Binding
	New        key.Binding
	EditBudget key.Binding
	UnitsUp    key.Binding
	UnitsDown  key.Binding
	Delete     key.Binding
	Export     key.Binding
	SignOut    key.Binding
	Tab1       key.Binding
	Tab2       key.Binding
	Tab3       key.Binding
	Tab4       key.Binding
	Tab        key.Binding
	Help       key.Binding
	Enter      key.Binding
	Back       key.Binding
	Up         key.Binding
	Down       key.Binding
	Left       key.Binding
	Right      key.Binding
	Quit       key.Binding
}

// keys is shared by every view; bindings only fire in views that check them.
var keys = keyMap{
	// tracker
	Start:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
	Pause:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause/resume")),
	Record:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "record unit")),
	Reset:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "reset")),
	New:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new goal")),
	EditBudget: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit budget")),
	UnitsUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more units")),
	UnitsDown:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "fewer units")),

	// history and app
	Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Export:  key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "export")),
	SignOut: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "sign out")),

	// navigation
	Tab1:  key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "tracker")),
	Tab2:  key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "stats")),
	Tab3:  key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "history")),
	Tab4:  key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "settings")),
	Tab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Back:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
	Right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Pause, k.Record, k.New, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Pause, k.Record, k.Reset},
		{k.New, k.EditBudget, k.UnitsUp, k.UnitsDown},
		{k.Delete, k.Export, k.SignOut},
		{k.Tab1, k.Tab2, k.Tab3, k.Tab4},
		{k.Up, k.Down, k.Enter, k.Back, k.Quit},
	}
}
