package feature

import (
	"fmt"

	"github.com/rileyhilliard/treetop/internal/logger"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/row"
	"github.com/rileyhilliard/treetop/internal/table"
)

// Column is a dynamic numeric column read from a metric that shares the
// model features instance domain.
type Column struct {
	Field  row.Field
	Metric metric.ID
}

// Process presents one model feature as a process: its instance id is the
// PID and the feature name first reported for it is the COMMAND.
type Process struct {
	row.Base

	Command    string
	Importance float64
	MutualInfo float64
	dynamic    map[row.Field]float64
}

// NewProcess returns a process row with every value unavailable.
func NewProcess(id int) *Process {
	return &Process{
		Base:       row.NewBase(id),
		Importance: metric.Unavailable(),
		MutualInfo: metric.Unavailable(),
		dynamic:    make(map[row.Field]float64),
	}
}

// Dynamic returns the value of a dynamic column, or the unavailable sentinel.
func (p *Process) Dynamic(f row.Field) float64 {
	if v, ok := p.dynamic[f]; ok {
		return v
	}
	return metric.Unavailable()
}

func (p *Process) FieldValue(field row.Field) string {
	switch field {
	case row.PID:
		return fmt.Sprintf("%*d ", row.PIDWidth-1, p.ID())
	case row.Command:
		return row.FormatText(p.Command, row.CommandWidth)
	case row.ModelImportance:
		return row.FormatValue(p.Importance)
	case row.ModelMutualInfo:
		return row.FormatValue(p.MutualInfo)
	}
	if row.IsDynamic(field) {
		return row.FormatValue(p.Dynamic(field))
	}
	return row.NA
}

func (p *Process) Missing(field row.Field) bool {
	switch field {
	case row.PID:
		return false
	case row.Command:
		return p.Command == ""
	case row.ModelImportance:
		return metric.IsUnavailable(p.Importance)
	case row.ModelMutualInfo:
		return metric.IsUnavailable(p.MutualInfo)
	}
	return metric.IsUnavailable(p.Dynamic(field))
}

func (p *Process) CompareByKey(other row.Row, field row.Field) int {
	o, ok := other.(*Process)
	if !ok {
		return 0
	}
	switch field {
	case row.PID:
		return compareInts(p.ID(), o.ID())
	case row.Command:
		return row.CompareString(p.Command, o.Command)
	case row.ModelImportance:
		return row.CompareFloat(p.Importance, o.Importance)
	case row.ModelMutualInfo:
		return row.CompareFloat(p.MutualInfo, o.MutualInfo)
	}
	return row.CompareFloat(p.Dynamic(field), o.Dynamic(field))
}

func (p *Process) SortKeyString() string {
	return p.Command
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ProcessTable reconciles the model features metric into process rows.
type ProcessTable struct {
	rows    *table.Table[*Process]
	columns []Column
	log     logger.Logger
	// tasks counts rows seen in the last cycle.
	tasks int
}

// NewProcessTable returns an empty process table reading the given dynamic
// columns. A nil logger discards messages.
func NewProcessTable(columns []Column, log logger.Logger) *ProcessTable {
	if log == nil {
		log = logger.Noop()
	}
	return &ProcessTable{
		rows:    table.New[*Process](),
		columns: append([]Column(nil), columns...),
		log:     log,
	}
}

func (t *ProcessTable) Name() string { return "processes" }

func (t *ProcessTable) Metrics() []metric.ID {
	ids := []metric.ID{metric.ModelFeatures, metric.ModelImportance, metric.ModelMutualInfo}
	for _, c := range t.columns {
		ids = append(ids, c.Metric)
	}
	return ids
}

func (t *ProcessTable) Len() int { return t.rows.Len() }

// Tasks returns the number of processes seen in the last cycle.
func (t *ProcessTable) Tasks() int { return t.tasks }

// Get returns the row for instance id.
func (t *ProcessTable) Get(id int) (*Process, bool) { return t.rows.Get(id) }

// Rows returns every row in the current order.
func (t *ProcessTable) Rows() []*Process { return t.rows.Rows() }

func (t *ProcessTable) Sort(s table.Sorter) { t.rows.Sort(s) }

func (t *ProcessTable) Visible() []row.Row { return table.AsRows(t.rows.Visible()) }

// Reconcile walks the model features metric. COMMAND is set only when a row
// is created; the numeric columns are refreshed every cycle.
func (t *ProcessTable) Reconcile(p *metric.Provider) table.Stats {
	var st table.Stats

	c := metric.NewCursor()
	for p.Iterate(metric.ModelFeatures, &c) {
		id := c.Instance
		offset := c.Offset
		if offset < 0 {
			offset = 0
		}

		proc, created := t.rows.Upsert(id, NewProcess)
		if created {
			proc.Command = p.InstanceString(metric.ModelFeatures, id, offset, UnknownName)
			st.Created++
		}
		st.Seen++

		proc.Importance = p.InstanceFloat(metric.ModelImportance, id, offset)
		proc.MutualInfo = p.InstanceFloat(metric.ModelMutualInfo, id, offset)
		if metric.IsUnavailable(proc.Importance) {
			st.MissingFields += missingField(t.log, p, metric.ModelImportance, id)
		}
		if metric.IsUnavailable(proc.MutualInfo) {
			st.MissingFields += missingField(t.log, p, metric.ModelMutualInfo, id)
		}
		for _, col := range t.columns {
			v := p.InstanceFloat(col.Metric, id, offset)
			proc.dynamic[col.Field] = v
			if metric.IsUnavailable(v) {
				st.MissingFields += missingField(t.log, p, col.Metric, id)
			}
		}
	}

	st.Retired = t.rows.Cleanup()
	t.tasks = st.Seen
	if st.Created > 0 || st.Retired > 0 {
		t.log.Debug("process table: %s", st)
	}
	return st
}
