package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Source kinds.
const (
	SourceHost    = "host"
	SourceArchive = "archive"
	SourceSSH     = "ssh"
	SourceLocal   = "local"
)

// Config represents the complete .treetop.yaml configuration file.
type Config struct {
	Version   int                   `yaml:"version" mapstructure:"version"`
	Source    SourceConfig          `yaml:"source" mapstructure:"source"`
	Refresh   RefreshConfig         `yaml:"refresh" mapstructure:"refresh"`
	Sampling  SamplingConfig        `yaml:"sampling" mapstructure:"sampling"`
	Training  TrainingConfig        `yaml:"training" mapstructure:"training"`
	Target    TargetConfig          `yaml:"target" mapstructure:"target"`
	Screens   []ScreenConfig        `yaml:"screens,omitempty" mapstructure:"screens"`
	Columns   []ColumnConfig        `yaml:"columns,omitempty" mapstructure:"columns"`
	Meters    []MeterConfig         `yaml:"meters,omitempty" mapstructure:"meters"`
	Sort      map[string]SortConfig `yaml:"sort,omitempty" mapstructure:"sort"`
	Telemetry TelemetryConfig       `yaml:"telemetry" mapstructure:"telemetry"`
	Output    OutputConfig          `yaml:"output" mapstructure:"output"`
}

// SourceConfig selects where metrics come from.
type SourceConfig struct {
	// Kind is one of "host", "archive", "ssh" or "local".
	Kind string `yaml:"kind" mapstructure:"kind"`

	// Host is the pmproxy URL for the "host" kind.
	Host string `yaml:"host" mapstructure:"host"`

	// Archive is the path to a recording for the "archive" kind.
	// Supports ~ and ${HOME}/${USER} expansion.
	Archive string `yaml:"archive" mapstructure:"archive"`

	// Loop restarts the archive replay after its last sample.
	Loop bool `yaml:"loop" mapstructure:"loop"`

	// SSH connection strings for the "ssh" kind, tried in order until one succeeds.
	// Can be: hostname, user@hostname, or SSH config alias.
	SSH []string `yaml:"ssh" mapstructure:"ssh"`

	// PMInfo is the pminfo binary run by the "ssh" and "local" kinds.
	PMInfo string `yaml:"pminfo" mapstructure:"pminfo"`

	// Timeout bounds connection setup and each fetch.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RefreshConfig controls the refresh cycle.
type RefreshConfig struct {
	// Interval between refresh cycles.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// SamplingConfig describes how the treetop server samples its inputs.
// The values are published through telemetry for other tools to read.
type SamplingConfig struct {
	Count    int           `yaml:"count" mapstructure:"count"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// TrainingConfig describes the server's training schedule.
type TrainingConfig struct {
	Window   time.Duration `yaml:"window" mapstructure:"window"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// TargetConfig names the metric the model predicts.
type TargetConfig struct {
	Metric string `yaml:"metric" mapstructure:"metric"`
}

// ScreenConfig defines an additional screen.
type ScreenConfig struct {
	Name string `yaml:"name" mapstructure:"name"`

	// Table is the row source: model, local, minima, maxima or processes.
	Table string `yaml:"table" mapstructure:"table"`

	// Columns are field names, static (MODEL_IMPORTANCE) or dynamic.
	Columns []string `yaml:"columns" mapstructure:"columns"`

	SortKey string `yaml:"sort_key" mapstructure:"sort_key"`

	// Direction is "asc", "desc", or empty for the column's default.
	Direction string `yaml:"direction" mapstructure:"direction"`
}

// ColumnConfig defines a dynamic column backed by one metric.
type ColumnConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Metric      string `yaml:"metric" mapstructure:"metric"`
	Title       string `yaml:"title" mapstructure:"title"`
	Description string `yaml:"description" mapstructure:"description"`
	Width       int    `yaml:"width" mapstructure:"width"`
}

// MeterConfig defines a dynamic header meter backed by one scalar metric.
type MeterConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Metric  string `yaml:"metric" mapstructure:"metric"`
	Caption string `yaml:"caption" mapstructure:"caption"`
	// Unit is appended to the value, e.g. "%" or "ms".
	Unit string `yaml:"unit" mapstructure:"unit"`
}

// SortConfig remembers the sort state of one screen.
type SortConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Direction string `yaml:"direction" mapstructure:"direction"`
}

// TelemetryConfig controls the self-telemetry endpoint.
type TelemetryConfig struct {
	// Listen is the address for the /metrics endpoint; empty disables it.
	Listen string `yaml:"listen" mapstructure:"listen"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	// "auto" disables color when output is piped.
	Color string `yaml:"color" mapstructure:"color"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Source: SourceConfig{
			Kind:    SourceHost,
			Host:    "http://localhost:44322",
			PMInfo:  "pminfo",
			Timeout: 5 * time.Second,
		},
		Refresh: RefreshConfig{
			Interval: 1500 * time.Millisecond,
		},
		Sampling: SamplingConfig{
			Count:    720,
			Interval: time.Second,
		},
		Training: TrainingConfig{
			Window:   12 * time.Minute,
			Interval: 10 * time.Second,
		},
		Sort: make(map[string]SortConfig),
		Output: OutputConfig{
			Color: "auto",
		},
	}
}
