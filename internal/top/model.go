package top

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/treetop/internal/refresh"
	"github.com/rileyhilliard/treetop/internal/screen"
)

// Lines taken by everything except the table body: tab bar, column header
// and the two footer lines. Meter lines are added on top.
const chromeLines = 4

// Model is the Bubble Tea model for the live table view.
type Model struct {
	ctx     context.Context
	cycle   *refresh.Cycle
	frame   refresh.Frame
	history *History

	help      help.Model
	body      viewport.Model
	bodyReady bool

	interval time.Duration
	timeout  time.Duration
	width    int
	height   int
	selected int

	lastUpdate time.Time
	paused     bool
	refreshing bool
	showHelp   bool
	quitting   bool

	// err is set when a refresh was cancelled and the program must stop.
	err error
}

// tickMsg signals a periodic refresh.
type tickMsg time.Time

// frameMsg carries the result of one refresh cycle.
type frameMsg struct {
	frame refresh.Frame
	err   error
}

// NewModel creates a model over cycle. The first frame is rendered from the
// state the cycle already holds; the first refresh runs from Init.
func NewModel(ctx context.Context, cycle *refresh.Cycle, interval, timeout time.Duration) Model {
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return Model{
		ctx:      ctx,
		cycle:    cycle,
		frame:    cycle.Frame(),
		history:  NewHistory(DefaultHistorySize),
		help:     help.New(),
		interval: interval,
		timeout:  timeout,
		// Init starts the first refresh.
		refreshing: true,
	}
}

// Init starts the tick timer and the first refresh.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.runCycle())
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resizeBody()

	case tickMsg:
		cmds := []tea.Cmd{m.tickCmd()}
		if !m.paused && !m.refreshing {
			cmds = append(cmds, m.refreshCmd())
		}
		return m, tea.Batch(cmds...)

	case frameMsg:
		m.refreshing = false
		if msg.err != nil {
			m.err = msg.err
			m.quitting = true
			return m, tea.Quit
		}
		m.setFrame(msg.frame)
		m.lastUpdate = time.Now()
		if msg.frame.Err == nil {
			m.history.Push(msg.frame.Confidence)
		}
	}

	return m, nil
}

// View renders the screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderTop()
}

// Frame returns the frame being shown.
func (m Model) Frame() refresh.Frame { return m.frame }

// Paused reports whether periodic refreshes are suspended.
func (m Model) Paused() bool { return m.paused }

// Selected returns the index of the highlighted row.
func (m Model) Selected() int { return m.selected }

// Err returns the error that stopped the program, if any.
func (m Model) Err() error { return m.err }

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshCmd marks a refresh as in flight and returns the command running it.
func (m *Model) refreshCmd() tea.Cmd {
	m.refreshing = true
	return m.runCycle()
}

func (m Model) runCycle() tea.Cmd {
	ctx, cycle, timeout := m.ctx, m.cycle, m.timeout
	return func() tea.Msg {
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		frame, err := cycle.Run(runCtx)
		return frameMsg{frame: frame, err: err}
	}
}

// navigate applies fn to the screens and redraws. Switching screens also
// fetches, since the new table's metrics were not part of the last fetch.
func (m *Model) navigate(fn func(s *screen.Set), switched bool) tea.Cmd {
	prev := m.frame.ScreenIndex
	m.setFrame(m.cycle.Update(fn))
	if !switched || m.frame.ScreenIndex == prev {
		return nil
	}
	m.selected = 0
	m.syncViewport()
	if m.refreshing {
		return nil
	}
	return m.refreshCmd()
}

func (m *Model) setFrame(f refresh.Frame) {
	m.frame = f
	if m.selected >= len(f.Rows) {
		m.selected = len(f.Rows) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	m.syncViewport()
}

func (m *Model) moveSelection(delta int) {
	m.selected += delta
	if m.selected >= len(m.frame.Rows) {
		m.selected = len(m.frame.Rows) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	m.syncViewport()
}

func (m *Model) bodyHeight() int {
	h := m.height - chromeLines - len(meterLines(m.frame.Meters))
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) resizeBody() {
	if !m.bodyReady {
		m.body = viewport.New(m.width, m.bodyHeight())
		m.bodyReady = true
	} else {
		m.body.Width = m.width
		m.body.Height = m.bodyHeight()
	}
	m.syncViewport()
}

// syncViewport refreshes the body content and scrolls the selected row
// into view.
func (m *Model) syncViewport() {
	if !m.bodyReady {
		return
	}
	m.body.Height = m.bodyHeight()
	m.body.SetContent(m.renderRows())
	switch {
	case m.selected < m.body.YOffset:
		m.body.SetYOffset(m.selected)
	case m.selected >= m.body.YOffset+m.body.Height:
		m.body.SetYOffset(m.selected - m.body.Height + 1)
	}
}
