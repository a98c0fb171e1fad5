// Package screen defines the screens treetop can show. A screen is a named
// view over one table: its columns, in order, and its sort state. The
// default screens mirror the server's four feature tables plus a process
// style listing; configuration can add columns and screens on top.
package screen

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/feature"
	"github.com/rileyhilliard/treetop/internal/logger"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/row"
	"github.com/rileyhilliard/treetop/internal/table"
)

// Table names.
const (
	TableModel     = "model"
	TableLocal     = "local"
	TableMinima    = "minima"
	TableMaxima    = "maxima"
	TableProcesses = "processes"
)

// tableOrder fixes the order Tables returns reconcilers in.
var tableOrder = []string{TableModel, TableLocal, TableMinima, TableMaxima, TableProcesses}

// tableFields lists the static fields each table can render.
var tableFields = map[string][]row.Field{
	TableModel:     {row.ModelFeature, row.ModelImportance, row.ModelMutualInfo},
	TableLocal:     {row.LocalFeature, row.LocalImportance, row.LocalMutualInfo},
	TableMinima:    {row.OptMinFeature, row.OptMinChange, row.OptMinDirection},
	TableMaxima:    {row.OptMaxFeature, row.OptMaxChange, row.OptMaxDirection},
	TableProcesses: {row.PID, row.Command, row.ModelImportance, row.ModelMutualInfo},
}

// Screen is one view: a table, the columns drawn from it and how it is sorted.
type Screen struct {
	Name    string
	Table   string
	Columns []row.Field
	Sorter  table.Sorter
	// Dynamic is set for screens defined in configuration.
	Dynamic bool
}

type definition struct {
	name    string
	table   string
	columns []row.Field
	sortKey row.Field
}

var defaults = []definition{
	{"Model", TableModel, []row.Field{row.ModelImportance, row.ModelMutualInfo, row.ModelFeature}, row.ModelImportance},
	{"Local", TableLocal, []row.Field{row.LocalImportance, row.LocalMutualInfo, row.LocalFeature}, row.LocalImportance},
	{"Minima", TableMinima, []row.Field{row.OptMinChange, row.OptMinDirection, row.OptMinFeature}, row.OptMinChange},
	{"Maxima", TableMaxima, []row.Field{row.OptMaxChange, row.OptMaxDirection, row.OptMaxFeature}, row.OptMaxChange},
	{"Processes", TableProcesses, []row.Field{row.PID, row.ModelImportance, row.ModelMutualInfo, row.Command}, row.ModelImportance},
}

// Set holds every screen, the tables behind them and which screen is active.
type Set struct {
	fields  *row.Fields
	screens []*Screen
	tables  map[string]table.Reconciler
	active  int
}

// Build creates the default screens plus those in cfg. Each configured
// column registers its metric in reg and becomes a dynamic field; the
// processes table reads every dynamic column.
func Build(cfg *config.Config, reg *metric.Registry, log logger.Logger) (*Set, error) {
	if log == nil {
		log = logger.Noop()
	}
	s := &Set{
		fields: row.NewFields(),
		tables: make(map[string]table.Reconciler),
	}

	var columns []feature.Column
	for _, c := range cfg.Columns {
		id := reg.Register(c.Metric)
		f := s.fields.AddDynamic(c.Name, c.Title, c.Description, c.Width, id)
		columns = append(columns, feature.Column{Field: f, Metric: id})
	}

	s.tables[TableModel] = feature.NewTable(feature.Model, log)
	s.tables[TableLocal] = feature.NewTable(feature.Local, log)
	s.tables[TableMinima] = feature.NewTable(feature.OptMin, log)
	s.tables[TableMaxima] = feature.NewTable(feature.OptMax, log)
	s.tables[TableProcesses] = feature.NewProcessTable(columns, log)

	for _, d := range defaults {
		cols := d.columns
		if d.table == TableProcesses {
			cols = append(append([]row.Field(nil), cols...), s.fields.Dynamic()...)
		}
		s.screens = append(s.screens, &Screen{
			Name:    d.name,
			Table:   d.table,
			Columns: cols,
			Sorter:  s.defaultSorter(d.sortKey),
		})
	}

	for _, sc := range cfg.Screens {
		screen, err := s.fromConfig(sc)
		if err != nil {
			return nil, err
		}
		s.screens = append(s.screens, screen)
	}

	for name, sort := range cfg.Sort {
		screen := s.Find(name)
		if screen == nil {
			log.Debug("ignoring saved sort for unknown screen %s", name)
			continue
		}
		if err := s.applySort(screen, sort.Key, sort.Direction); err != nil {
			log.Warn("ignoring saved sort for screen %s: %v", name, err)
		}
	}

	return s, nil
}

func (s *Set) fromConfig(sc config.ScreenConfig) (*Screen, error) {
	tableName := strings.ToLower(sc.Table)
	allowed, ok := s.allowed(tableName)
	if !ok {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Screen '%s' uses unknown table '%s'", sc.Name, sc.Table),
			"Use one of: "+strings.Join(tableOrder, ", "))
	}
	if s.Find(sc.Name) != nil {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Screen '%s' is already defined", sc.Name),
			"Pick a different screen name.")
	}

	screen := &Screen{Name: sc.Name, Table: tableName, Dynamic: true}
	for _, name := range sc.Columns {
		f, ok := s.fields.ByName(name)
		if !ok || !containsField(allowed, f) {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Screen '%s' can't show column '%s'", sc.Name, name),
				"Columns for the "+tableName+" table: "+s.fieldNames(allowed))
		}
		screen.Columns = append(screen.Columns, f)
	}
	if len(screen.Columns) == 0 {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Screen '%s' has no columns", sc.Name),
			"List at least one column.")
	}

	screen.Sorter = s.defaultSorter(screen.Columns[0])
	if sc.SortKey != "" || sc.Direction != "" {
		if err := s.applySort(screen, sc.SortKey, sc.Direction); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Screen '%s' has an invalid sort", sc.Name),
				"sort_key must be one of the screen's columns.")
		}
	}
	return screen, nil
}

// applySort sets the sort of screen from configuration names. An empty key
// keeps the current one; an empty direction uses the column's default.
func (s *Set) applySort(screen *Screen, key, direction string) error {
	field := screen.Sorter.Key
	if key != "" {
		f, ok := s.fields.ByName(key)
		if !ok || !containsField(screen.Columns, f) {
			return fmt.Errorf("column '%s' is not on screen %s", key, screen.Name)
		}
		field = f
	}
	dir, err := ParseDirection(direction)
	if err != nil {
		return err
	}
	if dir == 0 {
		dir = s.defaultSorter(field).Direction
	}
	screen.Sorter = table.Sorter{Key: field, Direction: dir}
	return nil
}

// allowed returns the fields a table can render. Dynamic columns are only
// read by the processes table.
func (s *Set) allowed(tableName string) ([]row.Field, bool) {
	fields, ok := tableFields[tableName]
	if !ok {
		return nil, false
	}
	if tableName == TableProcesses {
		fields = append(append([]row.Field(nil), fields...), s.fields.Dynamic()...)
	}
	return fields, true
}

func (s *Set) defaultSorter(f row.Field) table.Sorter {
	if s.fields.Info(f).DefaultSortDesc {
		return table.Sorter{Key: f, Direction: table.Descending}
	}
	return table.Sorter{Key: f, Direction: table.Ascending}
}

func (s *Set) fieldNames(fields []row.Field) string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, s.fields.Info(f).Name)
	}
	return strings.Join(names, ", ")
}

// Fields returns the column table, dynamic columns included.
func (s *Set) Fields() *row.Fields { return s.fields }

// Screens returns every screen in display order.
func (s *Set) Screens() []*Screen { return s.screens }

// Active returns the screen being shown.
func (s *Set) Active() *Screen { return s.screens[s.active] }

// ActiveIndex returns the position of the active screen.
func (s *Set) ActiveIndex() int { return s.active }

// ActiveTable returns the reconciler behind the active screen.
func (s *Set) ActiveTable() table.Reconciler { return s.tables[s.Active().Table] }

// Table returns the reconciler for a table name.
func (s *Set) Table(name string) table.Reconciler { return s.tables[name] }

// Tables returns every reconciler in a fixed order.
func (s *Set) Tables() []table.Reconciler {
	out := make([]table.Reconciler, 0, len(tableOrder))
	for _, name := range tableOrder {
		out = append(out, s.tables[name])
	}
	return out
}

// Find returns the screen called name, case-insensitively, or nil.
func (s *Set) Find(name string) *Screen {
	for _, sc := range s.screens {
		if strings.EqualFold(sc.Name, name) {
			return sc
		}
	}
	return nil
}

// Select makes the named screen active.
func (s *Set) Select(name string) bool {
	for i, sc := range s.screens {
		if strings.EqualFold(sc.Name, name) {
			s.active = i
			return true
		}
	}
	return false
}

// Next activates the following screen, wrapping around.
func (s *Set) Next() {
	s.active = (s.active + 1) % len(s.screens)
}

// Prev activates the preceding screen, wrapping around.
func (s *Set) Prev() {
	s.active = (s.active - 1 + len(s.screens)) % len(s.screens)
}

// CycleSort moves the active screen's sort to its next column, using that
// column's default direction.
func (s *Set) CycleSort() {
	sc := s.Active()
	idx := 0
	for i, f := range sc.Columns {
		if f == sc.Sorter.Key {
			idx = i + 1
			break
		}
	}
	sc.Sorter = s.defaultSorter(sc.Columns[idx%len(sc.Columns)])
}

// Invert flips the active screen's sort direction.
func (s *Set) Invert() {
	sc := s.Active()
	sc.Sorter.Direction = sc.Sorter.Direction.Invert()
}

// SortBy sorts the active screen by the named column.
func (s *Set) SortBy(name string) error {
	return s.applySort(s.Active(), name, "")
}

// SortState returns the sort of sc in configuration form.
func (s *Set) SortState(sc *Screen) config.SortConfig {
	return config.SortConfig{
		Key:       s.fields.Info(sc.Sorter.Key).Name,
		Direction: FormatDirection(sc.Sorter.Direction),
	}
}

// ParseDirection converts "asc" or "desc". The empty string yields 0,
// meaning the column default.
func ParseDirection(s string) (table.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "asc", "ascending":
		return table.Ascending, nil
	case "desc", "descending":
		return table.Descending, nil
	}
	return 0, fmt.Errorf("direction '%s' is not 'asc' or 'desc'", s)
}

// FormatDirection is the inverse of ParseDirection.
func FormatDirection(d table.Direction) string {
	if d == table.Descending {
		return "desc"
	}
	return "asc"
}

func containsField(fields []row.Field, f row.Field) bool {
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}
