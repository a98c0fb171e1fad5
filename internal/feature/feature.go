// Package feature implements the row kinds treetop displays and the
// reconcilers that keep their tables in step with the metric provider.
//
// A Feature is one metric the model found important, reported by one of four
// multi-instance "features" metrics (model importance, local SHAP values,
// minima and maxima optimisation). A Process presents the model features as
// a process listing with a PID and COMMAND column plus any dynamic columns
// from configuration.
package feature

import (
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/row"
)

// UnknownName is shown for an instance whose name is not reported.
const UnknownName = "<unknown>"

// Kind selects which set of metrics a feature table follows.
type Kind int

const (
	Model Kind = iota
	Local
	OptMin
	OptMax
)

// KindInfo binds a Kind to its metrics and columns.
type KindInfo struct {
	Name string
	// Features is the driving metric; its instances become rows.
	Features metric.ID
	// Value is the main numeric companion: importance, SHAP value or change.
	Value metric.ID
	// MutualInfo is -1 for kinds without a mutual information column.
	MutualInfo metric.ID
	// Direction is -1 for kinds without a direction column.
	Direction metric.ID

	NameField       row.Field
	ValueField      row.Field
	MutualInfoField row.Field
	DirectionField  row.Field
}

var kinds = [...]KindInfo{
	Model: {
		Name:     "model",
		Features: metric.ModelFeatures, Value: metric.ModelImportance,
		MutualInfo: metric.ModelMutualInfo, Direction: -1,
		NameField: row.ModelFeature, ValueField: row.ModelImportance,
		MutualInfoField: row.ModelMutualInfo, DirectionField: row.FieldNone,
	},
	Local: {
		Name:     "local",
		Features: metric.ShapFeatures, Value: metric.ShapValues,
		MutualInfo: metric.ShapMutualInfo, Direction: -1,
		NameField: row.LocalFeature, ValueField: row.LocalImportance,
		MutualInfoField: row.LocalMutualInfo, DirectionField: row.FieldNone,
	},
	OptMin: {
		Name:     "minima",
		Features: metric.OptMinFeatures, Value: metric.OptMinChange,
		MutualInfo: -1, Direction: metric.OptMinDirection,
		NameField: row.OptMinFeature, ValueField: row.OptMinChange,
		MutualInfoField: row.FieldNone, DirectionField: row.OptMinDirection,
	},
	OptMax: {
		Name:     "maxima",
		Features: metric.OptMaxFeatures, Value: metric.OptMaxChange,
		MutualInfo: -1, Direction: metric.OptMaxDirection,
		NameField: row.OptMaxFeature, ValueField: row.OptMaxChange,
		MutualInfoField: row.FieldNone, DirectionField: row.OptMaxDirection,
	},
}

// Info returns the metrics and columns of k.
func (k Kind) Info() KindInfo {
	if k < 0 || int(k) >= len(kinds) {
		return kinds[Model]
	}
	return kinds[k]
}

func (k Kind) String() string {
	return k.Info().Name
}

// Metrics returns every metric a table of this kind reads.
func (k Kind) Metrics() []metric.ID {
	s := k.Info()
	ids := []metric.ID{s.Features, s.Value}
	if s.MutualInfo >= 0 {
		ids = append(ids, s.MutualInfo)
	}
	if s.Direction >= 0 {
		ids = append(ids, s.Direction)
	}
	return ids
}

// Feature is one row of a feature table.
type Feature struct {
	row.Base
	kind Kind

	Name       string
	Value      float64
	MutualInfo float64
	Direction  string
}

// New returns a feature row of kind k with every value unavailable.
func New(k Kind, id int) *Feature {
	return &Feature{
		Base:       row.NewBase(id),
		kind:       k,
		Name:       UnknownName,
		Value:      metric.Unavailable(),
		MutualInfo: metric.Unavailable(),
	}
}

// Kind returns the kind the row was created for.
func (f *Feature) Kind() Kind { return f.kind }

func (f *Feature) FieldValue(field row.Field) string {
	s := f.kind.Info()
	switch field {
	case row.FieldNone:
		return row.NA
	case s.NameField:
		return row.FormatName(f.Name)
	case s.ValueField:
		return row.FormatValue(f.Value)
	case s.MutualInfoField:
		return row.FormatValue(f.MutualInfo)
	case s.DirectionField:
		return row.FormatText(f.Direction, row.DirectionWidth)
	}
	return row.NA
}

func (f *Feature) Missing(field row.Field) bool {
	s := f.kind.Info()
	switch field {
	case row.FieldNone:
		return true
	case s.NameField:
		return false
	case s.ValueField:
		return metric.IsUnavailable(f.Value)
	case s.MutualInfoField:
		return metric.IsUnavailable(f.MutualInfo)
	case s.DirectionField:
		return f.Direction == ""
	}
	return true
}

func (f *Feature) CompareByKey(other row.Row, field row.Field) int {
	o, ok := other.(*Feature)
	if !ok {
		return 0
	}
	s := f.kind.Info()
	switch field {
	case row.FieldNone:
		return 0
	case s.NameField:
		return row.CompareString(f.Name, o.Name)
	case s.ValueField:
		return row.CompareFloat(f.Value, o.Value)
	case s.MutualInfoField:
		return row.CompareFloat(f.MutualInfo, o.MutualInfo)
	case s.DirectionField:
		return row.CompareString(f.Direction, o.Direction)
	}
	return 0
}

func (f *Feature) SortKeyString() string {
	return f.Name
}
