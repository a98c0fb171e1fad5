package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/logger"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/row"
	"github.com/rileyhilliard/treetop/internal/table"
)

func build(t *testing.T, cfg *config.Config) (*Set, *metric.Registry) {
	t.Helper()
	reg := metric.NewRegistry(nil)
	s, err := Build(cfg, reg, logger.Noop())
	require.NoError(t, err)
	return s, reg
}

func TestBuild_Defaults(t *testing.T) {
	s, _ := build(t, config.DefaultConfig())

	var names []string
	for _, sc := range s.Screens() {
		names = append(names, sc.Name)
		assert.False(t, sc.Dynamic)
		assert.NotNil(t, s.Table(sc.Table), "screen %s has a table", sc.Name)
	}
	assert.Equal(t, []string{"Model", "Local", "Minima", "Maxima", "Processes"}, names)

	model := s.Active()
	assert.Equal(t, "Model", model.Name)
	assert.Equal(t, table.Sorter{Key: row.ModelImportance, Direction: table.Descending}, model.Sorter)
	assert.Equal(t, "model", s.ActiveTable().Name())
	assert.Len(t, s.Tables(), 5)
}

func TestBuild_DynamicColumns(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Columns = []config.ColumnConfig{
		{Name: "pfi", Metric: "mmv.treetop.server.explaining.pfi.mean", Title: "PFI"},
	}
	cfg.Screens = []config.ScreenConfig{
		{Name: "Permutation", Table: "processes", Columns: []string{"pid", "PFI", "command"}, SortKey: "pfi"},
	}

	before := metric.NewRegistry(nil).Count()
	s, reg := build(t, cfg)

	assert.Equal(t, before+1, reg.Count(), "the column metric is registered")
	id, ok := reg.Lookup("mmv.treetop.server.explaining.pfi.mean")
	require.True(t, ok)
	assert.Contains(t, s.Table(TableProcesses).Metrics(), id)

	pfi, ok := s.Fields().ByName("PFI")
	require.True(t, ok)
	assert.True(t, row.IsDynamic(pfi))

	procs := s.Find("processes")
	require.NotNil(t, procs)
	assert.Contains(t, procs.Columns, pfi, "the default process screen shows dynamic columns")

	perm := s.Find("permutation")
	require.NotNil(t, perm)
	assert.True(t, perm.Dynamic)
	assert.Equal(t, []row.Field{row.PID, pfi, row.Command}, perm.Columns)
	assert.Equal(t, table.Sorter{Key: pfi, Direction: table.Descending}, perm.Sorter)
}

func TestBuild_ScreenErrors(t *testing.T) {
	tests := []struct {
		name   string
		screen config.ScreenConfig
	}{
		{"unknown table", config.ScreenConfig{Name: "x", Table: "hosts", Columns: []string{"PID"}}},
		{"column from another table", config.ScreenConfig{Name: "x", Table: "model", Columns: []string{"PID"}}},
		{"unknown column", config.ScreenConfig{Name: "x", Table: "model", Columns: []string{"NOPE"}}},
		{"duplicate of a default", config.ScreenConfig{Name: "model", Table: "model", Columns: []string{"MODEL_FEATURE"}}},
		{"no columns", config.ScreenConfig{Name: "x", Table: "model"}},
		{"sort key not shown", config.ScreenConfig{Name: "x", Table: "model", Columns: []string{"MODEL_FEATURE"}, SortKey: "MODEL_IMPORTANCE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Screens = []config.ScreenConfig{tt.screen}
			_, err := Build(cfg, metric.NewRegistry(nil), nil)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
		})
	}
}

func TestBuild_SavedSort(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sort["model"] = config.SortConfig{Key: "MODEL_FEATURE", Direction: "asc"}
	cfg.Sort["minima"] = config.SortConfig{Key: "PID"}
	cfg.Sort["gone"] = config.SortConfig{Key: "PID"}

	log := logger.NewBufferLogger()
	s, err := Build(cfg, metric.NewRegistry(nil), log)
	require.NoError(t, err)

	assert.Equal(t, table.Sorter{Key: row.ModelFeature, Direction: table.Ascending}, s.Find("Model").Sorter)
	assert.Equal(t, row.OptMinChange, s.Find("Minima").Sorter.Key, "an invalid saved sort is ignored")
	assert.True(t, log.HasLevel("warn"))
}

func TestSet_Navigation(t *testing.T) {
	s, _ := build(t, config.DefaultConfig())

	s.Next()
	assert.Equal(t, "Local", s.Active().Name)
	s.Prev()
	s.Prev()
	assert.Equal(t, "Processes", s.Active().Name)
	s.Next()
	assert.Equal(t, 0, s.ActiveIndex())

	assert.True(t, s.Select("MAXIMA"))
	assert.Equal(t, "maxima", s.ActiveTable().Name())
	assert.False(t, s.Select("nope"))
	assert.Equal(t, "Maxima", s.Active().Name)
}

func TestSet_SortControls(t *testing.T) {
	s, _ := build(t, config.DefaultConfig())
	require.True(t, s.Select("Processes"))

	// Processes columns: PID IMPORTANCE MUTUALINFO COMMAND, sorted by IMPORTANCE
	s.CycleSort()
	assert.Equal(t, table.Sorter{Key: row.ModelMutualInfo, Direction: table.Descending}, s.Active().Sorter)
	s.CycleSort()
	assert.Equal(t, table.Sorter{Key: row.Command, Direction: table.Ascending}, s.Active().Sorter)
	s.CycleSort()
	assert.Equal(t, row.PID, s.Active().Sorter.Key, "cycling wraps to the first column")

	s.Invert()
	assert.Equal(t, table.Descending, s.Active().Sorter.Direction)
	assert.Equal(t, config.SortConfig{Key: "PID", Direction: "desc"}, s.SortState(s.Active()))

	require.NoError(t, s.SortBy("command"))
	assert.Equal(t, row.Command, s.Active().Sorter.Key)
	assert.Error(t, s.SortBy("OPTMAX_CHANGE"))
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    table.Direction
		wantErr bool
	}{
		{"", 0, false},
		{"asc", table.Ascending, false},
		{"DESC", table.Descending, false},
		{" descending ", table.Descending, false},
		{"up", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "desc", FormatDirection(table.Descending))
	assert.Equal(t, "asc", FormatDirection(table.Ascending))
}
