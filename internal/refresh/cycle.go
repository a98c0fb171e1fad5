// Package refresh runs one refresh cycle: decide which metrics the active
// screen and the meters need, fetch them, reconcile the active table and
// render the result into a Frame the view can draw without touching any
// shared state.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/logger"
	"github.com/rileyhilliard/treetop/internal/meter"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/platform"
	"github.com/rileyhilliard/treetop/internal/row"
	"github.com/rileyhilliard/treetop/internal/screen"
	"github.com/rileyhilliard/treetop/internal/table"
	"github.com/rileyhilliard/treetop/internal/telemetry"
)

// Frame is a rendered snapshot of the active screen and the meters.
type Frame struct {
	// Timestamp is the source time of the last successful fetch.
	Timestamp time.Time
	// Err is the error of the last fetch, nil when it succeeded.
	Err error

	Screen      string
	ScreenIndex int
	Screens     []string

	Columns []row.Field
	Titles  []string
	// SortIndex is the position of the sort column in Columns, -1 if absent.
	SortIndex int
	Sort      config.SortConfig

	// Rows holds the cell text of every visible row in sorted order.
	// Missing flags the cells whose value was unavailable.
	Rows    [][]string
	Missing [][]bool

	Meters []meter.Reading
	// Confidence is the model confidence in percent, 0 when unknown.
	Confidence float64
	Stats      table.Stats

	Cycles   int
	Failures int
}

// Stale reports whether the frame shows data from before a failed fetch.
func (f Frame) Stale() bool { return f.Err != nil }

// Options configures a Cycle.
type Options struct {
	// Telemetry, when set, receives the outcome of every cycle.
	Telemetry *telemetry.Exporter
	Log       logger.Logger
}

// Cycle owns the platform, screens and meters between refreshes. Run and
// Update serialise on an internal lock, so the view may call Update while a
// Run is in flight.
type Cycle struct {
	mu sync.Mutex

	platform  *platform.Platform
	screens   *screen.Set
	meters    *meter.Set
	telemetry *telemetry.Exporter
	log       logger.Logger

	enabled   map[metric.ID]bool
	stats     table.Stats
	lastErr   error
	reachable bool
	cycles    int
	failures  int
}

// New returns a cycle over an initialised platform.
func New(p *platform.Platform, screens *screen.Set, meters *meter.Set, opts Options) *Cycle {
	log := opts.Log
	if log == nil {
		log = logger.Noop()
	}
	return &Cycle{
		platform:  p,
		screens:   screens,
		meters:    meters,
		telemetry: opts.Telemetry,
		log:       log,
		enabled:   make(map[metric.ID]bool),
		reachable: true,
	}
}

// Run performs one refresh. A failed fetch is logged, counted and reported
// through Frame.Err while the previous rows stay in place. A fetch cut off
// by a deadline counts as failed; only cancellation is returned as an error.
func (c *Cycle) Run(ctx context.Context) (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.syncEnabled()
	c.cycles++

	if _, err := c.platform.Fetch(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return Frame{}, err
		}
		c.failures++
		c.lastErr = err
		c.reachable = false
		c.log.Warn("refresh failed: %v", err)
		if c.telemetry != nil {
			c.telemetry.RecordFailure()
		}
		return c.render(), nil
	}
	c.lastErr = nil
	c.reachable = true

	tbl := c.screens.ActiveTable()
	c.stats = tbl.Reconcile(c.platform.Provider())
	c.log.Debug("reconciled %s: %s", tbl.Name(), c.stats)
	tbl.Sort(c.screens.Active().Sorter)

	c.publish()
	return c.render(), nil
}

// Update applies fn to the screens, typically navigation or a sort change,
// and re-renders from the rows already held. Nothing is fetched.
func (c *Cycle) Update(fn func(s *screen.Set)) Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn != nil {
		fn(c.screens)
	}
	c.screens.ActiveTable().Sort(c.screens.Active().Sorter)
	return c.render()
}

// Frame renders the current state without fetching.
func (c *Cycle) Frame() Frame {
	return c.Update(nil)
}

// SortStates returns the sort of every screen, keyed by screen name.
func (c *Cycle) SortStates() map[string]config.SortConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]config.SortConfig, len(c.screens.Screens()))
	for _, sc := range c.screens.Screens() {
		out[sc.Name] = c.screens.SortState(sc)
	}
	return out
}

// Screens returns the screen set. Callers must not mutate it outside Update.
func (c *Cycle) Screens() *screen.Set { return c.screens }

// syncEnabled enables exactly the metrics read by the active table and the
// meters. Metrics of inactive tables are dropped from the fetch.
func (c *Cycle) syncEnabled() {
	want := make(map[metric.ID]bool)
	for _, id := range c.screens.ActiveTable().Metrics() {
		want[id] = true
	}
	for _, id := range c.meters.Metrics() {
		want[id] = true
	}

	reg := c.platform.Registry()
	for id := range c.enabled {
		if !want[id] {
			reg.Enable(id, false)
		}
	}
	for id := range want {
		reg.Enable(id, true)
	}
	c.enabled = want
}

func (c *Cycle) publish() {
	if c.telemetry == nil {
		return
	}
	p := c.platform
	rows := make(map[string]int, len(c.screens.Screens()))
	for _, sc := range c.screens.Screens() {
		rows[sc.Name] = c.screens.Table(sc.Table).Len()
	}

	cyc := telemetry.Cycle{
		Timestamp:      p.Timestamp(),
		Rows:           rows,
		SampleInterval: -1,
		SampleCount:    p.SampleCount(),
		TrainingWindow: -1,
		Target:         p.TargetMetric(),
	}
	if c.known(metric.SamplingInterval) {
		cyc.SampleInterval = p.SampleInterval()
	}
	if c.known(metric.TrainingWindow) {
		cyc.TrainingWindow = p.TrainingWindow()
	}
	c.telemetry.RecordCycle(cyc)
}

func (c *Cycle) known(id metric.ID) bool {
	_, ok := c.platform.Provider().Value(id)
	return ok
}

func (c *Cycle) render() Frame {
	sc := c.screens.Active()
	fields := c.screens.Fields()

	f := Frame{
		Timestamp:   c.platform.Timestamp(),
		Err:         c.lastErr,
		Screen:      sc.Name,
		ScreenIndex: c.screens.ActiveIndex(),
		Columns:     append([]row.Field(nil), sc.Columns...),
		SortIndex:   -1,
		Sort:        c.screens.SortState(sc),
		Meters:      c.meters.Read(c.platform, c.reachable),
		Confidence:  c.platform.Confidence(),
		Stats:       c.stats,
		Cycles:      c.cycles,
		Failures:    c.failures,
	}
	for _, s := range c.screens.Screens() {
		f.Screens = append(f.Screens, s.Name)
	}
	for i, col := range sc.Columns {
		f.Titles = append(f.Titles, row.FormatTitle(fields.Info(col)))
		if col == sc.Sorter.Key {
			f.SortIndex = i
		}
	}

	for _, r := range c.screens.ActiveTable().Visible() {
		cells := make([]string, len(sc.Columns))
		missing := make([]bool, len(sc.Columns))
		for i, col := range sc.Columns {
			cells[i] = r.FieldValue(col)
			missing[i] = r.Missing(col)
		}
		f.Rows = append(f.Rows, cells)
		f.Missing = append(f.Missing, missing)
	}
	return f
}
