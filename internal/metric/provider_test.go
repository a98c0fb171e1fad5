package metric_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/logger"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/metric/metrictest"
)

func newProvider(t *testing.T, src *metrictest.Source, log logger.Logger) *metric.Provider {
	t.Helper()
	reg := metric.NewRegistry(nil)
	require.NoError(t, reg.ResolveAll(context.Background(), src))
	return metric.NewProvider(reg, src, log)
}

func featureSource() *metrictest.Source {
	src := metrictest.New("example")
	src.SetScalar(metric.StaticName(metric.ConfidenceScore), metric.DoubleValue(97.5))
	src.SetInstances(metric.StaticName(metric.ModelFeatures), metric.TypeString,
		metrictest.Inst(3, metric.StringValue("kernel.all.load[1 minute]")),
		metrictest.Inst(7, metric.StringValue("mem.util.free")),
	)
	src.SetInstances(metric.StaticName(metric.ModelImportance), metric.TypeFloat,
		metrictest.Inst(3, metric.FloatValue(0.5)),
		metrictest.Inst(7, metric.FloatValue(0.25)),
	)
	return src
}

func TestProvider_FetchOnlyEnabled(t *testing.T) {
	src := featureSource()
	p := newProvider(t, src, nil)
	reg := p.Registry()

	reg.Enable(metric.ConfidenceScore, true)
	reg.Enable(metric.ModelFeatures, true)
	reg.Enable(metric.TargetMetric, true) // enabled but unavailable: never requested

	ts, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.False(t, ts.IsZero())
	assert.Equal(t, ts, p.Timestamp())
	assert.Len(t, src.LastFetch, 2)

	v, ok := p.Value(metric.ConfidenceScore)
	require.True(t, ok)
	assert.InDelta(t, 97.5, v.Float(), 1e-9)

	_, ok = p.Value(metric.ModelImportance)
	assert.False(t, ok, "disabled metrics have no value")
	assert.True(t, metric.IsUnavailable(p.Float(metric.ModelImportance)))
	assert.Equal(t, "(none)", p.String(metric.TargetMetric, "(none)"))
}

func TestProvider_Iterate(t *testing.T) {
	src := featureSource()
	p := newProvider(t, src, nil)
	p.Registry().Enable(metric.ModelFeatures, true)
	_, err := p.Fetch(context.Background())
	require.NoError(t, err)

	var insts, offsets []int
	c := metric.NewCursor()
	for p.Iterate(metric.ModelFeatures, &c) {
		insts = append(insts, c.Instance)
		offsets = append(offsets, c.Offset)
	}
	assert.Equal(t, []int{3, 7}, insts)
	assert.Equal(t, []int{0, 1}, offsets)

	// exhausted cursors stay exhausted, fresh ones restart
	assert.False(t, p.Iterate(metric.ModelFeatures, &c))
	c = metric.NewCursor()
	assert.True(t, p.Iterate(metric.ModelFeatures, &c))
	assert.Equal(t, 3, c.Instance)

	empty := metric.NewCursor()
	assert.False(t, p.Iterate(metric.ShapFeatures, &empty))
}

func TestProvider_InstanceLookup(t *testing.T) {
	src := featureSource()
	p := newProvider(t, src, nil)
	p.Registry().Enable(metric.ModelFeatures, true)
	p.Registry().Enable(metric.ModelImportance, true)
	_, err := p.Fetch(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name   string
		inst   int
		offset int
		want   float64
	}{
		{"correct hint", 7, 1, 0.25},
		{"stale hint", 7, 0, 0.25},
		{"no hint", 3, -1, 0.5},
		{"hint out of range", 3, 99, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, p.InstanceFloat(metric.ModelImportance, tt.inst, tt.offset), 1e-6)
		})
	}

	assert.True(t, metric.IsUnavailable(p.InstanceFloat(metric.ModelImportance, 42, -1)))
	assert.Equal(t, "mem.util.free", p.InstanceString(metric.ModelFeatures, 7, 1, "<unknown>"))
	assert.Equal(t, "<unknown>", p.InstanceString(metric.ModelFeatures, 42, 0, "<unknown>"))
}

func TestProvider_FailedFetchKeepsSnapshot(t *testing.T) {
	src := featureSource()
	p := newProvider(t, src, nil)
	p.Registry().Enable(metric.ConfidenceScore, true)

	first, err := p.Fetch(context.Background())
	require.NoError(t, err)

	src.SetScalar(metric.StaticName(metric.ConfidenceScore), metric.DoubleValue(10))
	src.FetchErr = fmt.Errorf("i/o timeout")

	ts, err := p.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrFetch))
	assert.True(t, ts.IsZero())
	assert.Equal(t, first, p.Timestamp())
	assert.InDelta(t, 97.5, p.Float(metric.ConfidenceScore), 1e-9)
	assert.Equal(t, 1, p.Fetches())
}

func TestProvider_DisabledKeepsLastValues(t *testing.T) {
	src := featureSource()
	p := newProvider(t, src, nil)
	reg := p.Registry()
	reg.Enable(metric.ConfidenceScore, true)

	_, err := p.Fetch(context.Background())
	require.NoError(t, err)

	reg.Enable(metric.ConfidenceScore, false)
	src.SetScalar(metric.StaticName(metric.ConfidenceScore), metric.DoubleValue(50))
	_, err = p.Fetch(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 97.5, p.Float(metric.ConfidenceScore), 1e-9)
}

func TestProvider_MetricVanishesAfterStartup(t *testing.T) {
	src := featureSource()
	log := logger.NewBufferLogger()
	p := newProvider(t, src, log)
	reg := p.Registry()
	reg.Enable(metric.ConfidenceScore, true)
	reg.Enable(metric.ModelFeatures, true)

	_, err := p.Fetch(context.Background())
	require.NoError(t, err)

	src.Break(metric.StaticName(metric.ConfidenceScore), fmt.Errorf("unknown metric"))
	for i := 0; i < 3; i++ {
		_, err = p.Fetch(context.Background())
		require.NoError(t, err, "one failing metric does not fail the batch")
	}

	assert.False(t, reg.Available(metric.ConfidenceScore))
	assert.True(t, metric.IsUnavailable(p.Float(metric.ConfidenceScore)))
	assert.Equal(t, 1, log.Count("warn"))
	assert.Len(t, src.LastFetch, 1, "unavailable metrics drop out of the batch")

	c := metric.NewCursor()
	assert.True(t, p.Iterate(metric.ModelFeatures, &c))
}

func TestProvider_ResolvesLateRegistrations(t *testing.T) {
	src := featureSource()
	src.SetScalar("new.metric", metric.DoubleValue(3.5))
	p := newProvider(t, src, nil)
	reg := p.Registry()
	lookups := src.Lookups()

	id := reg.Register("new.metric")
	missing := reg.Register("no.such.metric")
	reg.Enable(id, true)
	reg.Enable(missing, true)

	_, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, lookups+1, src.Lookups())
	assert.True(t, reg.Available(id))
	assert.False(t, reg.Available(missing))
	assert.InDelta(t, 3.5, p.Float(id), 1e-9)

	// both are resolved now, so no further lookups
	_, err = p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, lookups+1, src.Lookups())
}

func TestProvider_LateLookupFailure(t *testing.T) {
	src := featureSource()
	p := newProvider(t, src, nil)
	reg := p.Registry()
	reg.Enable(reg.Register("new.metric"), true)

	src.LookupErr = fmt.Errorf("connection reset")
	_, err := p.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrFetch))
}

func TestProvider_Close(t *testing.T) {
	src := featureSource()
	p := newProvider(t, src, nil)
	require.NoError(t, p.Close())
	assert.True(t, src.Closed())
}
