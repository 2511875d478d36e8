package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	NextPane    key.Binding
	PrevPane    key.Binding
	Toggle      key.Binding
	Build       key.Binding
	BuildAll    key.Binding
	BuildForced key.Binding
	SavePreset  key.Binding
	OutputDir   key.Binding
	Rescan      key.Binding
	ClearSel    key.Binding
	Quit        key.Binding
}

var keys = keyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	NextPane:    key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next pane")),
	PrevPane:    key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("shift+tab", "prev pane")),
	Toggle:      key.NewBinding(key.WithKeys(" ", "space", "enter"), key.WithHelp("space", "toggle/run")),
	Build:       key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "build selected")),
	BuildAll:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "build all")),
	BuildForced: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "build all forced")),
	SavePreset:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save preset")),
	OutputDir:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "output dir")),
	Rescan:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
	ClearSel:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear selection")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Toggle, k.Build, k.BuildAll, k.BuildForced, k.SavePreset, k.OutputDir, k.Rescan, k.ClearSel, k.Quit}
}
