package feature

import (
	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/logger"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/row"
	"github.com/rileyhilliard/treetop/internal/table"
)

// Table reconciles the instances of one Kind's features metric into rows.
type Table struct {
	kind Kind
	rows *table.Table[*Feature]
	log  logger.Logger
}

// NewTable returns an empty table of kind k. A nil logger discards messages.
func NewTable(k Kind, log logger.Logger) *Table {
	if log == nil {
		log = logger.Noop()
	}
	return &Table{kind: k, rows: table.New[*Feature](), log: log}
}

func (t *Table) Name() string { return t.kind.String() }

// Kind returns the table's kind.
func (t *Table) Kind() Kind { return t.kind }

func (t *Table) Metrics() []metric.ID { return t.kind.Metrics() }

func (t *Table) Len() int { return t.rows.Len() }

// Get returns the row for instance id.
func (t *Table) Get(id int) (*Feature, bool) { return t.rows.Get(id) }

// Rows returns every row in the current order.
func (t *Table) Rows() []*Feature { return t.rows.Rows() }

func (t *Table) Sort(s table.Sorter) { t.rows.Sort(s) }

func (t *Table) Visible() []row.Row { return table.AsRows(t.rows.Visible()) }

// Reconcile walks the features metric and creates, updates or retires rows.
// An instance whose companion values are missing still gets a row; the
// missing fields hold the unavailable sentinel.
func (t *Table) Reconcile(p *metric.Provider) table.Stats {
	ki := t.kind.Info()
	var st table.Stats

	c := metric.NewCursor()
	for p.Iterate(ki.Features, &c) {
		f, created := t.rows.Upsert(c.Instance, func(id int) *Feature {
			return New(t.kind, id)
		})
		if created {
			st.Created++
		}
		st.Seen++
		st.MissingFields += t.update(f, p, c.Offset)
	}

	st.Retired = t.rows.Cleanup()
	if st.Created > 0 || st.Retired > 0 {
		t.log.Debug("%s table: %s", t.kind, st)
	}
	return st
}

func (t *Table) update(f *Feature, p *metric.Provider, offset int) int {
	ki := t.kind.Info()
	id := f.ID()
	if offset < 0 {
		offset = 0
	}

	f.Name = p.InstanceString(ki.Features, id, offset, UnknownName)

	missing := 0
	f.Value = p.InstanceFloat(ki.Value, id, offset)
	if metric.IsUnavailable(f.Value) {
		missing += missingField(t.log, p, ki.Value, id)
	}
	if ki.MutualInfo >= 0 {
		f.MutualInfo = p.InstanceFloat(ki.MutualInfo, id, offset)
		if metric.IsUnavailable(f.MutualInfo) {
			missing += missingField(t.log, p, ki.MutualInfo, id)
		}
	}
	if ki.Direction >= 0 {
		f.Direction = p.InstanceString(ki.Direction, id, offset, "")
		if f.Direction == "" {
			missing += missingField(t.log, p, ki.Direction, id)
		}
	}
	return missing
}

// missingField logs a companion metric with no value for instance id and
// returns 1 for the stats.
func missingField(log logger.Logger, p *metric.Provider, companion metric.ID, id int) int {
	log.Debug("%s", errors.InstanceMissingField(p.Registry().Name(companion), id).Message)
	return 1
}
