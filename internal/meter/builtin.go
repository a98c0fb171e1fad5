package meter

import (
	"fmt"

	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/platform"
)

// confidenceWarn is the confidence percentage below which the meter warns.
const confidenceWarn = 90.0

// funcMeter is a meter defined by a read function.
type funcMeter struct {
	name    string
	caption string
	metrics []metric.ID
	read    func(p *platform.Platform) (string, Level)
}

func (m *funcMeter) Name() string          { return m.name }
func (m *funcMeter) Metrics() []metric.ID  { return m.metrics }
func (m *funcMeter) Read(p *platform.Platform) Reading {
	text, level := m.read(p)
	return Reading{Name: m.name, Caption: m.caption, Text: text, Level: level}
}

// Builtin returns the standard meters in display order.
func Builtin() []Meter {
	return []Meter{
		&funcMeter{"hostname", "Host: ", nil, func(p *platform.Platform) (string, Level) {
			return p.Hostname(), Normal
		}},
		&funcMeter{"sysarch", "System: ", nil, func(p *platform.Platform) (string, Level) {
			if p.Release() == "" {
				return Unknown, Shadow
			}
			return p.Release(), Normal
		}},
		&funcMeter{"uptime", "Uptime: ", []metric.ID{metric.Uptime}, func(p *platform.Platform) (string, Level) {
			if p.Uptime() <= 0 {
				return Unknown, Shadow
			}
			return FormatUptime(p.Uptime()), Normal
		}},
		&funcMeter{"state", "Now: ", []metric.ID{metric.ProcessingState}, readState},
		&funcMeter{"confidence", "Acc: ", []metric.ID{metric.ConfidenceScore}, readConfidence},
		&funcMeter{"target", "Target: ", []metric.ID{metric.TargetMetric}, func(p *platform.Platform) (string, Level) {
			return orUnknown(p.TargetMetric())
		}},
		&funcMeter{"timestamp", "@ ", []metric.ID{metric.TargetTimestamp}, func(p *platform.Platform) (string, Level) {
			if ts := p.TargetTimestamp(); ts != "" {
				return ts, Shadow
			}
			return Unknown, Shadow
		}},
		&targetValue{},
		&funcMeter{"features", "Features: ", []metric.ID{
			metric.TrainingFeatures, metric.TrainingMissing, metric.TrainingMutualInfo, metric.TrainingVariance,
		}, readFeatures},
		&funcMeter{"elapsed", "All: ", []metric.ID{
			metric.TrainingElapsed, metric.SamplingElapsed, metric.ModelElapsed, metric.ShapElapsed, metric.OptElapsed,
		}, func(p *platform.Platform) (string, Level) {
			e := p.ElapsedTimes()
			return fmt.Sprintf("%.2f train, %.2f sample, %.2f explain", e.Training, e.Sampling, e.Explaining()), Normal
		}},
		&funcMeter{"sampling", "Sampling: ", []metric.ID{metric.SamplingElapsed}, func(p *platform.Platform) (string, Level) {
			return orUnknown(FormatDuration(p.SamplingTime()))
		}},
		&funcMeter{"interval", "Interval: ", []metric.ID{metric.SamplingInterval, metric.SamplingCount}, readInterval},
		&funcMeter{"window", "Window: ", []metric.ID{metric.TrainingWindow, metric.TrainingInterval}, func(p *platform.Platform) (string, Level) {
			return orUnknown(FormatDuration(p.TrainingWindow()))
		}},
	}
}

func orUnknown(s string) (string, Level) {
	if s == "" {
		return Unknown, Shadow
	}
	return s, Normal
}

func readConfidence(p *platform.Platform) (string, Level) {
	c := p.Confidence()
	if c <= 0 {
		return Unknown, Shadow
	}
	if c < confidenceWarn {
		return fmt.Sprintf("%.3f%%", c), Warn
	}
	return fmt.Sprintf("%.3f%%", c), OK
}

func readState(p *platform.Platform) (string, Level) {
	state := p.ProcessingState()
	switch state {
	case platform.StateWaiting:
		return "[" + state + "]", Shadow
	case platform.StateUnknown:
		return "[" + state + "]", Warn
	}
	return "[" + state + "]", Active
}

func readFeatures(p *platform.Platform) (string, Level) {
	f := p.Features()
	if f.Total < 0 {
		return Unknown, Shadow
	}
	return fmt.Sprintf("%dtot %dvar %dmi %dnan",
		f.Total, max(f.Variance, 0), max(f.MutualInfo, 0), max(f.Missing, 0)), Normal
}

func readInterval(p *platform.Platform) (string, Level) {
	interval := FormatDuration(p.SampleInterval())
	if interval == "" {
		return Unknown, Shadow
	}
	if n := p.SampleCount(); n >= 0 {
		return fmt.Sprintf("%s x%d", interval, n), Normal
	}
	return interval, Normal
}

// targetValue shows the latest target value with the valueset as history.
type targetValue struct{}

func (targetValue) Name() string         { return "value" }
func (targetValue) Metrics() []metric.ID { return []metric.ID{metric.TargetValueset} }

func (targetValue) Read(p *platform.Platform) Reading {
	r := Reading{Name: "value", Caption: "Currently: ", Text: Unknown, Level: Shadow}
	values, maximum := p.TargetValues()
	if len(values) == 0 {
		return r
	}
	r.Text = fmt.Sprintf("%.2f", values[0])
	r.Level = Normal
	r.Series = values
	r.Max = maximum
	return r
}
