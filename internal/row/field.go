package row

import (
	"strings"

	"github.com/rileyhilliard/treetop/internal/metric"
)

// Field identifies a column.
type Field int

// Static fields. Dynamic fields from configuration start at LastStatic.
const (
	FieldNone Field = iota
	ModelFeature
	ModelImportance
	ModelMutualInfo
	LocalFeature
	LocalImportance
	LocalMutualInfo
	OptMinFeature
	OptMinChange
	OptMinDirection
	OptMaxFeature
	OptMaxChange
	OptMaxDirection
	PID
	Command

	LastStatic
)

// Column widths in terminal cells, separators included.
const (
	NameWidth      = 56
	ValueWidth     = 11
	DirectionWidth = 10
	PIDWidth       = 8
	CommandWidth   = 40
)

// FieldInfo describes a column.
type FieldInfo struct {
	// Name is the identifier used in configuration and on the command line.
	Name        string
	Title       string
	Description string
	Width       int
	// Numeric columns right-align and use the value formatting rules.
	Numeric         bool
	DefaultSortDesc bool
	// Metric is the metric a dynamic column reads; -1 for static columns.
	Metric metric.ID
}

var staticFields = [LastStatic]FieldInfo{
	FieldNone:       {Name: ""},
	ModelFeature:    {Name: "MODEL_FEATURE", Title: "Key Explanatory Metrics", Description: "Most important metrics (features) globally", Width: NameWidth},
	ModelImportance: {Name: "MODEL_IMPORTANCE", Title: "IMPORTANCE", Description: "Model-based feature importance measure", Width: ValueWidth, Numeric: true, DefaultSortDesc: true},
	ModelMutualInfo: {Name: "MODEL_MUTUALINFO", Title: "MUTUALINFO", Description: "Mutual information with the target variable", Width: ValueWidth, Numeric: true, DefaultSortDesc: true},
	LocalFeature:    {Name: "LOCAL_FEATURE", Title: "Important Metrics", Description: "Most important metrics (features) from local SHAP", Width: NameWidth},
	LocalImportance: {Name: "LOCAL_IMPORTANCE", Title: "SHAP VALUE", Description: "SHAP value importance measure", Width: ValueWidth, Numeric: true, DefaultSortDesc: true},
	LocalMutualInfo: {Name: "LOCAL_MUTUALINFO", Title: "MUTUALINFO", Description: "Mutual information for high SHAP value features", Width: ValueWidth, Numeric: true, DefaultSortDesc: true},
	OptMinFeature:   {Name: "OPTMIN_FEATURE", Title: "Key Metrics for Optimisation", Description: "Important metrics for optimisation based on minima perturbations", Width: NameWidth},
	OptMinChange:    {Name: "OPTMIN_CHANGE", Title: "DELTA", Description: "Change in prediction with minima perturbations", Width: ValueWidth, Numeric: true, DefaultSortDesc: true},
	OptMinDirection: {Name: "OPTMIN_DIRECTION", Title: "DIRECTION", Description: "Direction of change with minima perturbations", Width: DirectionWidth},
	OptMaxFeature:   {Name: "OPTMAX_FEATURE", Title: "Key Metrics for Optimisation", Description: "Important metrics for optimisation based on maxima perturbations", Width: NameWidth},
	OptMaxChange:    {Name: "OPTMAX_CHANGE", Title: "DELTA", Description: "Change in prediction with maxima perturbations", Width: ValueWidth, Numeric: true, DefaultSortDesc: true},
	OptMaxDirection: {Name: "OPTMAX_DIRECTION", Title: "DIRECTION", Description: "Direction of change with maxima perturbations", Width: DirectionWidth},
	PID:             {Name: "PID", Title: "PID", Description: "Feature instance identifier", Width: PIDWidth, Numeric: true},
	Command:         {Name: "COMMAND", Title: "Command", Description: "Feature name as first reported", Width: CommandWidth},
}

// Fields is the column table: the static fields plus any dynamic fields
// added from configuration.
type Fields struct {
	infos  []FieldInfo
	byName map[string]Field
}

// NewFields returns a table holding the static fields.
func NewFields() *Fields {
	f := &Fields{
		infos:  make([]FieldInfo, 0, LastStatic),
		byName: make(map[string]Field, LastStatic),
	}
	for i := FieldNone; i < LastStatic; i++ {
		info := staticFields[i]
		info.Metric = -1
		f.infos = append(f.infos, info)
		if info.Name != "" {
			f.byName[info.Name] = i
		}
	}
	return f
}

// AddDynamic appends a numeric column backed by metric id. Adding a name
// twice returns the existing field.
func (f *Fields) AddDynamic(name, title, description string, width int, id metric.ID) Field {
	name = strings.ToUpper(name)
	if existing, ok := f.byName[name]; ok {
		return existing
	}
	if width <= 0 {
		width = ValueWidth
	}
	if title == "" {
		title = name
	}
	field := Field(len(f.infos))
	f.infos = append(f.infos, FieldInfo{
		Name:            name,
		Title:           title,
		Description:     description,
		Width:           width,
		Numeric:         true,
		DefaultSortDesc: true,
		Metric:          id,
	})
	f.byName[name] = field
	return field
}

// Info returns the description of field. Unknown fields yield the zero FieldInfo.
func (f *Fields) Info(field Field) FieldInfo {
	if field <= FieldNone || int(field) >= len(f.infos) {
		return FieldInfo{Metric: -1}
	}
	return f.infos[field]
}

// ByName looks a field up by its configuration name, case-insensitively.
func (f *Fields) ByName(name string) (Field, bool) {
	field, ok := f.byName[strings.ToUpper(strings.TrimSpace(name))]
	return field, ok
}

// Dynamic returns the fields added with AddDynamic, in order.
func (f *Fields) Dynamic() []Field {
	var out []Field
	for i := int(LastStatic); i < len(f.infos); i++ {
		out = append(out, Field(i))
	}
	return out
}

// IsDynamic reports whether field was added from configuration.
func IsDynamic(field Field) bool {
	return field >= LastStatic
}

// Len returns the number of fields, FieldNone included.
func (f *Fields) Len() int {
	return len(f.infos)
}
