package top

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/treetop/internal/screen"
)

type keyMap struct {
	Quit       key.Binding
	Refresh    key.Binding
	NextScreen key.Binding
	PrevScreen key.Binding
	CycleSort  key.Binding
	Invert     key.Binding
	Pause      key.Binding
	Up         key.Binding
	Down       key.Binding
	First      key.Binding
	Last       key.Binding
	Help       key.Binding
	Close      key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	NextScreen: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next screen"),
	),
	PrevScreen: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous screen"),
	),
	CycleSort: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sort column"),
	),
	Invert: key.NewBinding(
		key.WithKeys("I"),
		key.WithHelp("I", "invert sort"),
	),
	Pause: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "pause"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	First: key.NewBinding(
		key.WithKeys("home"),
		key.WithHelp("home", "first row"),
	),
	Last: key.NewBinding(
		key.WithKeys("end"),
		key.WithHelp("end", "last row"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Close: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close help"),
	),
}

// ShortHelp is the footer hint line.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.NextScreen, k.CycleSort, k.Invert, k.Pause, k.Help}
}

// FullHelp is the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Refresh, k.Pause, k.Help},
		{k.NextScreen, k.PrevScreen, k.CycleSort, k.Invert},
		{k.Up, k.Down, k.First, k.Last},
	}
}

// HandleKeyMsg processes keyboard input. It returns true when the key was
// handled.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	// Help toggle takes priority
	if key.Matches(msg, keys.Help) {
		m.showHelp = !m.showHelp
		return true, nil
	}
	if m.showHelp && key.Matches(msg, keys.Close) {
		m.showHelp = false
		return true, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return true, tea.Quit

	case key.Matches(msg, keys.Refresh):
		return true, m.refreshCmd()

	case key.Matches(msg, keys.Pause):
		m.paused = !m.paused
		return true, nil

	case key.Matches(msg, keys.NextScreen):
		return true, m.navigate(func(s *screen.Set) { s.Next() }, true)

	case key.Matches(msg, keys.PrevScreen):
		return true, m.navigate(func(s *screen.Set) { s.Prev() }, true)

	case key.Matches(msg, keys.CycleSort):
		return true, m.navigate(func(s *screen.Set) { s.CycleSort() }, false)

	case key.Matches(msg, keys.Invert):
		return true, m.navigate(func(s *screen.Set) { s.Invert() }, false)

	case key.Matches(msg, keys.Up):
		m.moveSelection(-1)
		return true, nil

	case key.Matches(msg, keys.Down):
		m.moveSelection(1)
		return true, nil

	case key.Matches(msg, keys.First):
		m.selected = 0
		m.syncViewport()
		return true, nil

	case key.Matches(msg, keys.Last):
		m.selected = len(m.frame.Rows) - 1
		if m.selected < 0 {
			m.selected = 0
		}
		m.syncViewport()
		return true, nil
	}

	return false, nil
}
