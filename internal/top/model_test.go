package top

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/meter"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/metric/metrictest"
	"github.com/rileyhilliard/treetop/internal/platform"
	"github.com/rileyhilliard/treetop/internal/refresh"
	"github.com/rileyhilliard/treetop/internal/screen"
)

func testSource() *metrictest.Source {
	src := metrictest.New("lab-box")
	src.SetScalar("hinv.ncpu", metric.Uint32Value(4))
	src.SetScalar("mmv.treetop.server.inferring.output.confidence", metric.DoubleValue(93))
	src.SetScalar("mmv.treetop.server.target.valueset", metric.StringValue("3,2,1"))
	src.SetInstances(metric.StaticName(metric.ModelFeatures), metric.TypeString,
		metrictest.Inst(0, metric.StringValue("kernel.all.load")),
		metrictest.Inst(1, metric.StringValue("mem.util.free")))
	src.SetInstances(metric.StaticName(metric.ModelImportance), metric.TypeFloat,
		metrictest.Inst(0, metric.FloatValue(0.5)),
		metrictest.Inst(1, metric.FloatValue(12)))
	return src
}

func newCycle(t *testing.T, src *metrictest.Source) *refresh.Cycle {
	t.Helper()
	reg := metric.NewRegistry(nil)
	screens, err := screen.Build(config.DefaultConfig(), reg, nil)
	require.NoError(t, err)
	meters, err := meter.NewSet(nil, reg)
	require.NoError(t, err)
	p := platform.New(reg, src, nil)
	require.NoError(t, p.Init(context.Background()))
	return refresh.New(p, screens, meters, refresh.Options{})
}

// refreshed returns a model that has received one completed refresh.
func refreshed(t *testing.T) Model {
	t.Helper()
	cycle := newCycle(t, testSource())
	m := NewModel(context.Background(), cycle, time.Second, time.Second)
	frame, err := cycle.Run(context.Background())
	require.NoError(t, err)
	updated, _ := m.Update(frameMsg{frame: frame})
	return updated.(Model)
}

func press(m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	cycle := newCycle(t, testSource())
	m := NewModel(context.Background(), cycle, 0, 0)

	assert.Equal(t, 1500*time.Millisecond, m.interval)
	assert.Equal(t, 5*time.Second, m.timeout)
	assert.True(t, m.refreshing)
	assert.Equal(t, "Model", m.Frame().Screen)
	assert.Empty(t, m.Frame().Rows)
	assert.NotNil(t, m.Init())
}

func TestUpdate_FrameMsg(t *testing.T) {
	m := refreshed(t)

	assert.False(t, m.refreshing)
	assert.Len(t, m.Frame().Rows, 2)
	assert.Equal(t, 1, m.history.Len(), "confidence is recorded")
	assert.False(t, m.lastUpdate.IsZero())
}

func TestUpdate_FrameMsgError(t *testing.T) {
	m := refreshed(t)
	updated, cmd := m.Update(frameMsg{err: context.Canceled})
	m = updated.(Model)

	assert.True(t, m.quitting)
	assert.ErrorIs(t, m.Err(), context.Canceled)
	assert.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

func TestUpdate_StaleFrameSkipsHistory(t *testing.T) {
	m := refreshed(t)
	frame := m.Frame()
	frame.Err = stderrors.New("connection refused")

	updated, _ := m.Update(frameMsg{frame: frame})
	m = updated.(Model)
	assert.Equal(t, 1, m.history.Len())
	assert.Contains(t, m.View(), "STALE")
}

func TestUpdate_TickWhilePaused(t *testing.T) {
	m := refreshed(t)
	m, _ = press(m, runes("p"))
	require.True(t, m.Paused())

	updated, cmd := m.Update(tickMsg(time.Now()))
	m = updated.(Model)
	assert.NotNil(t, cmd, "the tick keeps running")
	assert.False(t, m.refreshing, "no refresh while paused")

	m, _ = press(m, runes("p"))
	updated, _ = m.Update(tickMsg(time.Now()))
	assert.True(t, updated.(Model).refreshing)
}

func TestKeys_ScreenNavigation(t *testing.T) {
	m := refreshed(t)

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "Local", m.Frame().Screen)
	assert.NotNil(t, cmd, "switching screens fetches")
	assert.True(t, m.refreshing)

	m, cmd = press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "Model", m.Frame().Screen)
	assert.Nil(t, cmd, "a refresh is already in flight")
	assert.Len(t, m.Frame().Rows, 2, "the model table kept its rows")
}

func TestKeys_Sort(t *testing.T) {
	m := refreshed(t)
	require.Contains(t, m.Frame().Rows[0][2], "mem.util.free")

	m, cmd := press(m, runes("I"))
	assert.Nil(t, cmd)
	assert.Equal(t, "asc", m.Frame().Sort.Direction)
	assert.Contains(t, m.Frame().Rows[0][2], "kernel.all.load")

	m, _ = press(m, runes("s"))
	assert.Equal(t, "MODEL_MUTUALINFO", m.Frame().Sort.Key)
	assert.Equal(t, 1, m.Frame().SortIndex)
}

func TestKeys_Selection(t *testing.T) {
	m := refreshed(t)
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.Selected(), "clamped at the top")

	m, _ = press(m, runes("j"))
	assert.Equal(t, 1, m.Selected())
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.Selected(), "clamped at the bottom")

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyHome})
	assert.Equal(t, 0, m.Selected())
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnd})
	assert.Equal(t, 1, m.Selected())
}

func TestKeys_HelpAndQuit(t *testing.T) {
	m := refreshed(t)

	m, _ = press(m, runes("?"))
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.showHelp)

	m, cmd := press(m, runes("q"))
	assert.True(t, m.quitting)
	assert.NotNil(t, cmd)
}

func TestKeys_Refresh(t *testing.T) {
	m := refreshed(t)
	m, cmd := press(m, runes("r"))
	require.NotNil(t, cmd)
	assert.True(t, m.refreshing)

	msg, ok := cmd().(frameMsg)
	require.True(t, ok)
	assert.NoError(t, msg.err)
	assert.Len(t, msg.frame.Rows, 2)
}

func TestView_WithWindow(t *testing.T) {
	m := refreshed(t)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	m = updated.(Model)

	out := m.View()
	for _, want := range []string{"Model", "Processes", "IMPORTANCE", "kernel.all.load", "MODEL_IMPORTANCE", "2 rows", "Host: "} {
		assert.Contains(t, out, want)
	}
}

func TestMeterLines(t *testing.T) {
	readings := []meter.Reading{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	lines := meterLines(readings)
	require.Len(t, lines, 2)
	assert.Equal(t, "a", lines[0][0].Name)
	assert.Equal(t, "c", lines[0][1].Name)
	assert.Len(t, lines[1], 1)
	assert.Empty(t, meterLines(nil))
}

func TestUpdateAge(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "never", updateAge(time.Time{}, now))
	assert.Equal(t, "just now", updateAge(now, now))
	assert.Equal(t, "1s ago", updateAge(now.Add(-time.Second), now))
	assert.Equal(t, "42s ago", updateAge(now.Add(-42*time.Second), now))
}
