// Package telemetry exports treetop's own health as Prometheus metrics: how
// many refresh cycles ran, how many fetches failed, how many rows each screen
// holds and the sampling and training schedule reported by the server.
package telemetry

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/logger"
)

const namespace = "treetop"

// Cycle is what one successful refresh cycle reports.
type Cycle struct {
	Timestamp time.Time
	// Rows maps screen names to the rows they currently hold.
	Rows map[string]int
	// The schedule values are negative when the server does not report them.
	SampleInterval float64
	SampleCount    int
	TrainingWindow float64
	Target         string
}

// Exporter owns a private registry so treetop's metrics never mix with
// anything registered on the global default.
type Exporter struct {
	reg *prometheus.Registry

	cycles          prometheus.Counter
	failures        prometheus.Counter
	rows            *prometheus.GaugeVec
	lastFetch       prometheus.Gauge
	refreshInterval prometheus.Gauge
	sampleInterval  prometheus.Gauge
	sampleCount     prometheus.Gauge
	trainingWindow  prometheus.Gauge
	target          *prometheus.GaugeVec

	mu         sync.Mutex
	lastTarget string
}

// New returns an exporter with every metric registered.
func New() *Exporter {
	e := &Exporter{
		reg: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      "Refresh cycles run, failed ones included.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Refresh cycles whose fetch failed.",
		}),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows",
			Help:      "Rows held by each screen after the last reconciliation.",
		}, []string{"screen"}),
		lastFetch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_fetch_timestamp_seconds",
			Help:      "Source timestamp of the last successful fetch.",
		}),
		refreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_interval_seconds",
			Help:      "Configured delay between refresh cycles.",
		}),
		sampleInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sampling_interval_seconds",
			Help:      "Sampling interval reported by the server.",
		}),
		sampleCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sampling_count",
			Help:      "Samples taken by the server.",
		}),
		trainingWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_window_seconds",
			Help:      "Training window reported by the server.",
		}),
		target: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_info",
			Help:      "Always 1, labelled with the metric the model predicts.",
		}, []string{"metric"}),
	}
	e.reg.MustRegister(
		e.cycles, e.failures, e.rows, e.lastFetch, e.refreshInterval,
		e.sampleInterval, e.sampleCount, e.trainingWindow, e.target,
	)
	return e
}

// Registry exposes the underlying registry, mostly for tests.
func (e *Exporter) Registry() *prometheus.Registry { return e.reg }

// SetRefreshInterval records the configured refresh delay.
func (e *Exporter) SetRefreshInterval(d time.Duration) {
	e.refreshInterval.Set(d.Seconds())
}

// RecordFailure counts a cycle whose fetch failed.
func (e *Exporter) RecordFailure() {
	e.cycles.Inc()
	e.failures.Inc()
}

// RecordCycle publishes the outcome of a successful cycle. Schedule values
// the server did not report leave the previous gauge value in place.
func (e *Exporter) RecordCycle(c Cycle) {
	e.cycles.Inc()
	if !c.Timestamp.IsZero() {
		e.lastFetch.Set(float64(c.Timestamp.UnixNano()) / 1e9)
	}
	for screen, n := range c.Rows {
		e.rows.WithLabelValues(screen).Set(float64(n))
	}
	e.setSchedule(c)
}

// Preset publishes the schedule fields of c without counting a cycle. The
// configured schedule is shown this way until the server reports its own.
func (e *Exporter) Preset(c Cycle) {
	e.setSchedule(c)
}

func (e *Exporter) setSchedule(c Cycle) {
	if c.SampleInterval >= 0 {
		e.sampleInterval.Set(c.SampleInterval)
	}
	if c.SampleCount >= 0 {
		e.sampleCount.Set(float64(c.SampleCount))
	}
	if c.TrainingWindow >= 0 {
		e.trainingWindow.Set(c.TrainingWindow)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if c.Target != "" && c.Target != e.lastTarget {
		if e.lastTarget != "" {
			e.target.DeleteLabelValues(e.lastTarget)
		}
		e.lastTarget = c.Target
		e.target.WithLabelValues(c.Target).Set(1)
	}
}

// Handler serves the exporter's registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{})
}

// Start listens on addr and serves /metrics until ctx is cancelled. It
// returns once the listener is bound so address errors surface immediately.
func (e *Exporter) Start(ctx context.Context, addr string, log logger.Logger) (net.Addr, error) {
	if log == nil {
		log = logger.Noop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Can't listen on telemetry address "+addr,
			"Pick a free host:port for telemetry.listen, or leave it empty to disable telemetry.")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Warn("telemetry server stopped: %v", err)
		}
	}()

	log.Debug("telemetry listening on %s", ln.Addr())
	return ln.Addr(), nil
}
