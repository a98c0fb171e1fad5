package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rileyhilliard/treetop/internal/errors"
)

// MinRefreshInterval is the fastest refresh the tool allows.
const MinRefreshInterval = 100 * time.Millisecond

// Table names a screen can draw rows from.
var validTables = map[string]bool{
	"model":     true,
	"local":     true,
	"minima":    true,
	"maxima":    true,
	"processes": true,
}

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but treetop only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Grab the latest treetop release.")
	}

	if err := validateSource(cfg.Source); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'source' section in your .treetop.yaml.")
	}

	if cfg.Refresh.Interval < MinRefreshInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Refresh interval %s is too short", cfg.Refresh.Interval),
			fmt.Sprintf("Use at least %s for refresh.interval.", MinRefreshInterval))
	}

	if err := validateColumns(cfg.Columns); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'columns' section in your .treetop.yaml.")
	}

	if err := validateScreens(cfg.Screens); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'screens' section in your .treetop.yaml.")
	}

	if err := validateMeters(cfg.Meters); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'meters' section in your .treetop.yaml.")
	}

	for name, s := range cfg.Sort {
		if err := validateDirection(s.Direction); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("sort.%s: %s", name, err.Error()),
				"Use 'asc' or 'desc'.")
		}
	}

	if err := validateOutput(cfg.Output); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'output' section in your .treetop.yaml.")
	}

	return nil
}

func validateSource(src SourceConfig) error {
	switch src.Kind {
	case SourceHost:
		if src.Host == "" {
			return fmt.Errorf("source.host is required for the host source")
		}
		u, err := url.Parse(src.Host)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("source.host %q is not a URL like http://localhost:44322", src.Host)
		}
	case SourceArchive:
		if src.Archive == "" {
			return fmt.Errorf("source.archive is required for the archive source")
		}
	case SourceSSH:
		if len(src.SSH) == 0 {
			return fmt.Errorf("source.ssh needs at least one host for the ssh source")
		}
		for _, s := range src.SSH {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("source.ssh contains an empty entry")
			}
		}
	case SourceLocal:
	default:
		return fmt.Errorf("source.kind %q is not one of host, archive, ssh, local", src.Kind)
	}

	if (src.Kind == SourceSSH || src.Kind == SourceLocal) && src.PMInfo == "" {
		return fmt.Errorf("source.pminfo can't be empty")
	}
	if src.Timeout < 0 {
		return fmt.Errorf("source.timeout can't be negative")
	}
	return nil
}

func validateColumns(cols []ColumnConfig) error {
	seen := make(map[string]bool)
	for i, c := range cols {
		if c.Name == "" {
			return fmt.Errorf("column %d is missing a name", i+1)
		}
		key := strings.ToUpper(c.Name)
		if seen[key] {
			return fmt.Errorf("column '%s' is defined twice", c.Name)
		}
		seen[key] = true
		if c.Metric == "" {
			return fmt.Errorf("column '%s' is missing a metric", c.Name)
		}
		if c.Width < 0 {
			return fmt.Errorf("column '%s' has a negative width", c.Name)
		}
	}
	return nil
}

func validateScreens(screens []ScreenConfig) error {
	seen := make(map[string]bool)
	for i, s := range screens {
		if s.Name == "" {
			return fmt.Errorf("screen %d is missing a name", i+1)
		}
		key := strings.ToLower(s.Name)
		if seen[key] {
			return fmt.Errorf("screen '%s' is defined twice", s.Name)
		}
		seen[key] = true
		if !validTables[strings.ToLower(s.Table)] {
			return fmt.Errorf("screen '%s' uses unknown table '%s' (want model, local, minima, maxima or processes)", s.Name, s.Table)
		}
		if len(s.Columns) == 0 {
			return fmt.Errorf("screen '%s' has no columns", s.Name)
		}
		if err := validateDirection(s.Direction); err != nil {
			return fmt.Errorf("screen '%s': %w", s.Name, err)
		}
	}
	return nil
}

func validateMeters(meters []MeterConfig) error {
	for i, m := range meters {
		if m.Metric == "" {
			name := m.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			return fmt.Errorf("meter '%s' is missing a metric", name)
		}
	}
	return nil
}

func validateDirection(d string) error {
	switch strings.ToLower(d) {
	case "", "asc", "desc":
		return nil
	}
	return fmt.Errorf("direction '%s' is not 'asc' or 'desc'", d)
}

func validateOutput(out OutputConfig) error {
	switch out.Color {
	case "", "auto", "always", "never":
		return nil
	}
	return fmt.Errorf("output.color '%s' must be auto, always or never", out.Color)
}
