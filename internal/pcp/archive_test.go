package pcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/metric/metrictest"
)

const sampleArchive = `hostname: lab-box
metrics:
  - name: hinv.ncpu
    pmid: 60.0.32
    type: u32
  - name: mmv.treetop.server.explaining.model.features
    pmid: 70.0.17
    indom: 70.3
    type: string
  - name: mmv.treetop.server.explaining.model.importance
    pmid: 70.0.18
    indom: 70.3
    type: float
samples:
  - timestamp: 2024-03-01T12:00:00Z
    values:
      hinv.ncpu: 8
      mmv.treetop.server.explaining.model.features: {0: kernel.all.load, 3: "mem.util.free"}
      mmv.treetop.server.explaining.model.importance: {0: 0.5, 3: 12}
  - timestamp: 2024-03-01T12:00:10Z
    values:
      hinv.ncpu: 8
      mmv.treetop.server.explaining.model.features: {3: mem.util.free}
`

func writeArchive(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recording.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestArchive_Replay(t *testing.T) {
	a, err := OpenArchive(writeArchive(t, sampleArchive), false)
	require.NoError(t, err)
	assert.Equal(t, "lab-box", a.Hostname())
	assert.Equal(t, 2, a.Remaining())

	ctx := context.Background()
	descs, err := a.Lookup(ctx, []string{
		"hinv.ncpu",
		"mmv.treetop.server.explaining.model.features",
		"mmv.treetop.server.explaining.model.importance",
		"not.recorded",
	})
	require.NoError(t, err)
	assert.True(t, descs[0].Scalar())
	assert.Equal(t, metric.TypeString, descs[1].Type)
	assert.Equal(t, metric.NullPMID, descs[3].PMID)
	pmids := []metric.PMID{descs[0].PMID, descs[1].PMID, descs[2].PMID}

	snap, err := a.Fetch(ctx, pmids)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), snap.Timestamp.UTC())
	assert.Equal(t, int64(8), snap.Values[descs[0].PMID][0].Value.Int())
	features := snap.Values[descs[1].PMID]
	require.Len(t, features, 2)
	assert.Equal(t, 3, features[1].Inst)
	assert.Equal(t, "mem.util.free", features[1].Value.String())
	assert.InDelta(t, 12, snap.Values[descs[2].PMID][1].Value.Float(), 1e-6)

	snap, err = a.Fetch(ctx, pmids)
	require.NoError(t, err)
	assert.Len(t, snap.Values[descs[1].PMID], 1)
	assert.Empty(t, snap.Values[descs[2].PMID], "a metric missing from a sample has no instances")
	assert.Empty(t, snap.Errors)

	_, err = a.Fetch(ctx, pmids)
	assert.ErrorIs(t, err, ErrEndOfArchive)
}

func TestArchive_Loop(t *testing.T) {
	a, err := OpenArchive(writeArchive(t, sampleArchive), true)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := a.Fetch(context.Background(), nil)
		require.NoError(t, err)
	}
}

func TestArchive_BadInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not yaml", "metrics: [unclosed"},
		{"no samples", "hostname: x\nmetrics: []\n"},
		{"bad pmid", "metrics:\n  - name: a\n    pmid: nope\n    type: u32\nsamples:\n  - timestamp: 2024-03-01T12:00:00Z\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenArchive(writeArchive(t, tt.content), false)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrSource))
		})
	}

	_, err := OpenArchive(filepath.Join(t.TempDir(), "missing.yaml"), false)
	assert.True(t, errors.IsCode(err, errors.ErrSource))
}

func TestArchive_BadValue(t *testing.T) {
	content := `metrics:
  - name: hinv.ncpu
    pmid: 60.0.32
    type: u32
samples:
  - timestamp: 2024-03-01T12:00:00Z
    values:
      hinv.ncpu: many
`
	a, err := OpenArchive(writeArchive(t, content), false)
	require.NoError(t, err)
	descs, err := a.Lookup(context.Background(), []string{"hinv.ncpu"})
	require.NoError(t, err)

	snap, err := a.Fetch(context.Background(), []metric.PMID{descs[0].PMID, 99})
	require.NoError(t, err)
	assert.Contains(t, snap.Errors, descs[0].PMID)
	assert.Contains(t, snap.Errors, metric.PMID(99))
}

func TestRecord_RoundTrip(t *testing.T) {
	src := metrictest.New("lab-box")
	src.SetScalar("hinv.ncpu", metric.Uint32Value(4))
	src.SetInstances("mmv.treetop.server.explaining.model.features", metric.TypeString,
		metrictest.Inst(0, metric.StringValue("kernel.all.load")),
		metrictest.Inst(7, metric.StringValue("disk.all.read")))

	names := []string{"hinv.ncpu", "mmv.treetop.server.explaining.model.features", "not.exported"}
	rec, err := Record(context.Background(), src, names, 2, 0)
	require.NoError(t, err)
	require.Len(t, rec.Metrics, 2)
	require.Len(t, rec.Samples, 2)

	path := filepath.Join(t.TempDir(), "rec.yaml")
	require.NoError(t, rec.Save(path))

	a, err := OpenArchive(path, false)
	require.NoError(t, err)
	assert.Equal(t, "lab-box", a.Hostname())

	descs, err := a.Lookup(context.Background(), names[:2])
	require.NoError(t, err)
	snap, err := a.Fetch(context.Background(), []metric.PMID{descs[0].PMID, descs[1].PMID})
	require.NoError(t, err)

	assert.Equal(t, int64(4), snap.Values[descs[0].PMID][0].Value.Int())
	features := snap.Values[descs[1].PMID]
	require.Len(t, features, 2)
	assert.Equal(t, 7, features[1].Inst)
	assert.Equal(t, "disk.all.read", features[1].Value.String())
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 1, 0, time.UTC), snap.Timestamp.UTC())
}

func TestRecord_NothingAvailable(t *testing.T) {
	_, err := Record(context.Background(), metrictest.New("x"), []string{"a", "b"}, 1, 0)
	assert.Error(t, err)
}
