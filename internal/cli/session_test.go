package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/logger"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/metric/metrictest"
	"github.com/rileyhilliard/treetop/internal/pcp"
	"github.com/rileyhilliard/treetop/internal/refresh"
	"github.com/rileyhilliard/treetop/internal/top"
)

// recordArchive writes a two-sample recording of a model with two features.
func recordArchive(t *testing.T) string {
	t.Helper()
	src := metrictest.New("lab-box")
	src.SetScalar("hinv.ncpu", metric.Uint32Value(8))
	src.SetScalar(metric.StaticName(metric.ConfidenceScore), metric.DoubleValue(97.5))
	src.SetInstances(metric.StaticName(metric.ModelFeatures), metric.TypeString,
		metrictest.Inst(0, metric.StringValue("kernel.all.load")),
		metrictest.Inst(1, metric.StringValue("mem.util.free")))
	src.SetInstances(metric.StaticName(metric.ModelImportance), metric.TypeFloat,
		metrictest.Inst(0, metric.FloatValue(0.5)),
		metrictest.Inst(1, metric.FloatValue(12)))

	reg := metric.NewRegistry(nil)
	rec, err := pcp.Record(context.Background(), src, registeredNames(reg), 2, 0)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "lab.yaml")
	require.NoError(t, rec.Save(path))
	return path
}

func archiveConfig(path string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Source.Kind = config.SourceArchive
	cfg.Source.Archive = path
	return cfg
}

func TestOpenSession_Archive(t *testing.T) {
	cfg := archiveConfig(recordArchive(t))
	s, err := openSession(context.Background(), cfg, "", logger.Noop())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "lab-box", s.plat.Hostname())
	assert.Equal(t, 8, s.plat.NCPU())
	assert.Len(t, s.screens.Screens(), 5)

	cycle := refresh.New(s.plat, s.screens, s.meters, refresh.Options{})
	var buf bytes.Buffer
	require.NoError(t, top.Run(context.Background(), cycle, top.Options{Once: true, Output: &buf}))
	assert.Contains(t, buf.String(), "[Model] sorted by MODEL_IMPORTANCE desc")
	assert.Contains(t, buf.String(), "mem.util.free")
}

func TestOpenSession_MissingArchive(t *testing.T) {
	cfg := archiveConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := openSession(context.Background(), cfg, "", logger.Noop())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSource))
}

func TestCollectMetrics(t *testing.T) {
	s, err := openSession(context.Background(), archiveConfig(recordArchive(t)), "", logger.Noop())
	require.NoError(t, err)
	defer s.Close()

	all := collectMetrics(s.reg, false)
	assert.Len(t, all, s.reg.Count())

	byName := make(map[string]MetricInfo, len(all))
	for _, info := range all {
		byName[info.Name] = info
	}
	ncpu := byName["hinv.ncpu"]
	assert.True(t, ncpu.Available)
	assert.False(t, ncpu.Instances)
	assert.NotEmpty(t, ncpu.PMID)
	assert.True(t, byName[metric.StaticName(metric.ModelFeatures)].Instances)
	assert.False(t, byName["kernel.all.uptime"].Available)

	missing := collectMetrics(s.reg, true)
	assert.Len(t, missing, s.reg.Count()-s.reg.Resolved())
	for _, info := range missing {
		assert.False(t, info.Available, info.Name)
	}

	var buf bytes.Buffer
	require.NoError(t, writeMetrics(&buf, all, s.reg))
	out := buf.String()
	assert.Contains(t, out, "✓ hinv.ncpu")
	assert.Contains(t, out, "✗ kernel.all.uptime")
	assert.Contains(t, out, "4 of")
}

func TestRegisteredNames(t *testing.T) {
	reg := metric.NewRegistry(nil)
	id := reg.Register("disk.all.avactive")
	names := registeredNames(reg)
	assert.Len(t, names, reg.Count())
	assert.Equal(t, "disk.all.avactive", names[id])
}
