// Package platform holds the state shared by the refresh cycle and the
// meters: the metric registry, the provider and the host constants read
// once at startup.
package platform

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/treetop/internal/logger"
	"github.com/rileyhilliard/treetop/internal/metric"
)

// Processing states reported by the treetop server.
const (
	StateWaiting    = "waiting"
	StateTraining   = "training"
	StateSampling   = "sampling"
	StateExplaining = "explaining"
	StateUnknown    = "unknown"
)

// setupMetrics are fetched once during Init.
var setupMetrics = []metric.ID{
	metric.HinvNCPU,
	metric.UnameSysname,
	metric.UnameRelease,
	metric.UnameMachine,
	metric.UnameDistro,
	metric.PMCDHostname,
}

// Platform wraps a provider with typed accessors for the server and host
// metrics. Accessors read the most recent fetch and never fail; absent
// values come back as zero, -1 or "" as documented on each.
type Platform struct {
	reg  *metric.Registry
	prov *metric.Provider
	log  logger.Logger

	ncpu     int
	release  string
	hostname string
	period   time.Duration
}

// New returns a platform over reg and src. Call Init before use.
func New(reg *metric.Registry, src metric.Source, log logger.Logger) *Platform {
	if log == nil {
		log = logger.Noop()
	}
	return &Platform{
		reg:  reg,
		prov: metric.NewProvider(reg, src, log),
		log:  log,
	}
}

// Init resolves every registered metric, performs the first fetch and
// records the host constants. Metrics enabled before Init are part of the
// first fetch.
func (p *Platform) Init(ctx context.Context) error {
	if err := p.reg.ResolveAll(ctx, p.prov.Source()); err != nil {
		return err
	}
	p.log.Debug("resolved %d of %d metrics from %s", p.reg.Resolved(), p.reg.Count(), p.prov.Source().Name())

	for _, id := range setupMetrics {
		p.reg.Enable(id, true)
	}
	if _, err := p.prov.Fetch(ctx); err != nil {
		return err
	}

	p.ncpu = 1
	if v, ok := p.prov.Value(metric.HinvNCPU); ok && v.Int() > 0 {
		p.ncpu = int(v.Int())
	}
	p.release = formatRelease(
		p.prov.String(metric.UnameSysname, ""),
		p.prov.String(metric.UnameRelease, ""),
		p.prov.String(metric.UnameMachine, ""),
		p.prov.String(metric.UnameDistro, ""))
	p.hostname = p.prov.String(metric.PMCDHostname, "")
	if p.hostname == "" {
		p.hostname = p.prov.Source().Hostname()
	}

	for _, id := range setupMetrics {
		p.reg.Enable(id, false)
	}
	return nil
}

// Fetch samples the enabled metrics and tracks the period between samples.
func (p *Platform) Fetch(ctx context.Context) (time.Time, error) {
	prev := p.prov.Timestamp()
	ts, err := p.prov.Fetch(ctx)
	if err != nil {
		return ts, err
	}
	if !prev.IsZero() {
		p.period = ts.Sub(prev)
	}
	return ts, nil
}

func (p *Platform) Registry() *metric.Registry { return p.reg }
func (p *Platform) Provider() *metric.Provider { return p.prov }
func (p *Platform) Timestamp() time.Time       { return p.prov.Timestamp() }

// Period is the time between the last two successful fetches.
func (p *Platform) Period() time.Duration { return p.period }

// Close closes the metric source.
func (p *Platform) Close() error { return p.prov.Close() }

// NCPU is the processor count, at least 1.
func (p *Platform) NCPU() int { return p.ncpu }

// Release describes the host as "sysname release [machine] @ distro".
func (p *Platform) Release() string { return p.release }

// Hostname names the monitored host.
func (p *Platform) Hostname() string { return p.hostname }

func formatRelease(sysname, release, machine, distro string) string {
	var parts []string
	if sysname != "" {
		parts = append(parts, sysname)
	}
	if release != "" {
		parts = append(parts, release)
	}
	if machine != "" {
		parts = append(parts, "["+machine+"]")
	}
	if distro != "" {
		if len(parts) > 0 {
			parts = append(parts, "@")
		}
		parts = append(parts, distro)
	}
	return strings.Join(parts, " ")
}

// float returns the value of id, or 0.
func (p *Platform) float(id metric.ID) float64 {
	v := p.prov.Float(id)
	if metric.IsUnavailable(v) {
		return 0
	}
	return v
}

// count returns the value of id, or -1.
func (p *Platform) count(id metric.ID) int {
	v, ok := p.prov.Value(id)
	if !ok {
		return -1
	}
	return int(v.Int())
}

// Confidence is the model confidence in percent, 0 when unknown.
func (p *Platform) Confidence() float64 { return p.float(metric.ConfidenceScore) }

// Features holds the feature counts of the last training run. Each is -1
// when unknown.
type Features struct {
	Total      int
	Missing    int
	MutualInfo int
	Variance   int
}

func (p *Platform) Features() Features {
	return Features{
		Total:      p.count(metric.TrainingFeatures),
		Missing:    p.count(metric.TrainingMissing),
		MutualInfo: p.count(metric.TrainingMutualInfo),
		Variance:   p.count(metric.TrainingVariance),
	}
}

// ElapsedTimes holds phase durations in seconds, 0 when unknown.
type ElapsedTimes struct {
	Training   float64
	Sampling   float64
	Model      float64
	Shap       float64
	Optimising float64
}

// Explaining sums the explanation phases.
func (e ElapsedTimes) Explaining() float64 { return e.Model + e.Shap + e.Optimising }

func (p *Platform) ElapsedTimes() ElapsedTimes {
	return ElapsedTimes{
		Training:   p.float(metric.TrainingElapsed),
		Sampling:   p.float(metric.SamplingElapsed),
		Model:      p.float(metric.ModelElapsed),
		Shap:       p.float(metric.ShapElapsed),
		Optimising: p.float(metric.OptElapsed),
	}
}

func (p *Platform) TrainingInterval() float64 { return p.float(metric.TrainingInterval) }
func (p *Platform) TrainingWindow() float64   { return p.float(metric.TrainingWindow) }
func (p *Platform) TrainingTime() float64     { return p.float(metric.TrainingElapsed) }
func (p *Platform) SampleInterval() float64   { return p.float(metric.SamplingInterval) }
func (p *Platform) SamplingTime() float64     { return p.float(metric.SamplingElapsed) }

// SampleCount is the number of samples collected, -1 when unknown.
func (p *Platform) SampleCount() int { return p.count(metric.SamplingCount) }

// Uptime is the host uptime in seconds, 0 when unknown.
func (p *Platform) Uptime() int {
	v := p.count(metric.Uptime)
	if v < 0 {
		return 0
	}
	return v
}

func (p *Platform) TargetMetric() string    { return p.prov.String(metric.TargetMetric, "") }
func (p *Platform) TargetTimestamp() string { return p.prov.String(metric.TargetTimestamp, "") }
func (p *Platform) TargetValueset() string  { return p.prov.String(metric.TargetValueset, "") }

// TargetValues parses the valueset, a list of numbers separated by commas
// or spaces, most recent first. Entries that do not parse are skipped.
func (p *Platform) TargetValues() (values []float64, maximum float64) {
	return ParseValueset(p.TargetValueset())
}

// ParseValueset splits a target valueset and returns its values and
// largest value.
func ParseValueset(s string) ([]float64, float64) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '[' || r == ']' || r == '\t'
	})
	values := make([]float64, 0, len(fields))
	maximum := math.Inf(-1)
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) {
			continue
		}
		values = append(values, v)
		maximum = math.Max(maximum, v)
	}
	if len(values) == 0 {
		return nil, 0
	}
	return values, maximum
}

// ProcessingState is what the server is doing now, StateUnknown when the
// metric is missing or holds an unexpected value.
func (p *Platform) ProcessingState() string {
	switch s := p.prov.String(metric.ProcessingState, ""); s {
	case StateWaiting, StateTraining, StateSampling, StateExplaining:
		return s
	}
	return StateUnknown
}
