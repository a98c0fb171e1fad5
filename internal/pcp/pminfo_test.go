package pcp

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/treetop/internal/metric"
	sshtest "github.com/rileyhilliard/treetop/pkg/sshutil/testing"
)

const pminfoDescribe = `
hinv.ncpu PMID: 60.0.32
    Data Type: 32-bit unsigned int  InDom: PM_INDOM_NULL 0xffffffff
    Semantics: discrete  Units: none

mmv.treetop.server.explaining.model.features PMID: 70.0.17
    Data Type: string  InDom: 70.3 0x11800003
    Semantics: instant  Units: none

mmv.treetop.server.explaining.model.importance PMID: 70.0.18
    Data Type: double  InDom: 70.3 0x11800003
    Semantics: instant  Units: none

no.such.metric: Unknown metric name
`

const pminfoValues = `
hinv.ncpu
    value 8

mmv.treetop.server.explaining.model.features
    inst [0 or "0"] value "kernel.all.load"
    inst [3 or "3"] value "mem.util.free"

mmv.treetop.server.explaining.model.importance
    Error: No value(s) available
`

// fakeRunner answers by the first pminfo flag.
type fakeRunner struct {
	out   map[string]string
	err   error
	calls [][]string
}

func (f *fakeRunner) Run(_ context.Context, args []string) ([]byte, error) {
	f.calls = append(f.calls, args)
	return []byte(f.out[args[0]]), f.err
}

var pminfoNames = []string{
	"hinv.ncpu",
	"mmv.treetop.server.explaining.model.features",
	"mmv.treetop.server.explaining.model.importance",
	"no.such.metric",
}

func TestParsePMInfo(t *testing.T) {
	entries := parsePMInfo([]byte(pminfoDescribe))
	require.Len(t, entries, 4)

	ncpu := entries["hinv.ncpu"]
	assert.Equal(t, "60.0.32", FormatPMID(ncpu.pmid))
	assert.Equal(t, metric.TypeUint32, ncpu.desc.Type)
	assert.True(t, ncpu.desc.Scalar())
	assert.Equal(t, "discrete", ncpu.desc.Semantics)
	assert.Equal(t, "none", ncpu.desc.Units)

	features := entries["mmv.treetop.server.explaining.model.features"]
	assert.Equal(t, metric.TypeString, features.desc.Type)
	assert.Equal(t, metric.InDom(70<<22|3), features.desc.InDom)

	assert.Equal(t, "Unknown metric name", entries["no.such.metric"].err)
}

func TestPMInfo_LookupAndFetch(t *testing.T) {
	r := &fakeRunner{
		out: map[string]string{"-m": pminfoDescribe, "-f": pminfoValues},
		err: stderrors.New("exit status 1"),
	}
	p := NewPMInfo("local", "lab-box", r, nil)
	assert.Equal(t, "local", p.Name())
	assert.Equal(t, "lab-box", p.Hostname())

	ctx := context.Background()
	descs, err := p.Lookup(ctx, pminfoNames)
	require.NoError(t, err, "output alongside a failing exit is still parsed")
	require.Len(t, descs, 4)
	assert.Equal(t, metric.NullPMID, descs[3].PMID)
	assert.Equal(t, []string{"-m", "-d"}, r.calls[0][:2])

	pmids := []metric.PMID{descs[0].PMID, descs[1].PMID, descs[2].PMID, 12345}
	snap, err := p.Fetch(ctx, pmids)
	require.NoError(t, err)

	ncpu := snap.Values[descs[0].PMID]
	require.Len(t, ncpu, 1)
	assert.Equal(t, metric.NoInstance, ncpu[0].Inst)
	assert.Equal(t, int64(8), ncpu[0].Value.Int())

	features := snap.Values[descs[1].PMID]
	require.Len(t, features, 2)
	assert.Equal(t, 3, features[1].Inst)
	assert.Equal(t, "mem.util.free", features[1].Value.String())

	assert.Contains(t, snap.Errors, descs[2].PMID)
	assert.Contains(t, snap.Errors, metric.PMID(12345))
	assert.WithinDuration(t, time.Now(), snap.Timestamp, time.Minute)

	last := r.calls[len(r.calls)-1]
	assert.Equal(t, "-f", last[0])
	assert.NotContains(t, last, "no.such.metric")
}

func TestPMInfo_RunFailure(t *testing.T) {
	r := &fakeRunner{out: map[string]string{}, err: stderrors.New("pminfo: not found")}
	p := NewPMInfo("local", "lab-box", r, nil)

	_, err := p.Lookup(context.Background(), []string{"hinv.ncpu"})
	assert.Error(t, err, "a failure with no output is an error")
}

func TestPMInfo_FetchNothing(t *testing.T) {
	r := &fakeRunner{}
	p := NewPMInfo("local", "lab-box", r, nil)

	snap, err := p.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, snap.Values)
	assert.Empty(t, r.calls, "pminfo is not run without metrics")
}

func TestSSHRunner(t *testing.T) {
	client := sshtest.NewMockClient("lab")
	client.SetCommandResponse(`^'pminfo' '-m' '-d' `, sshtest.CommandResponse{Stdout: []byte(pminfoDescribe), ExitCode: 1})
	client.SetCommandResponse(`^'pminfo' '-f' `, sshtest.CommandResponse{Stdout: []byte(pminfoValues)})

	p := NewPMInfo("ssh lab", "lab", SSHRunner{Client: client, Binary: "pminfo"}, nil)

	descs, err := p.Lookup(context.Background(), pminfoNames[:2])
	require.NoError(t, err)
	snap, err := p.Fetch(context.Background(), []metric.PMID{descs[0].PMID})
	require.NoError(t, err)
	assert.Equal(t, int64(8), snap.Values[descs[0].PMID][0].Value.Int())

	history := client.History()
	require.Len(t, history, 2)
	assert.True(t, strings.HasSuffix(history[1], "'hinv.ncpu'"))

	require.NoError(t, p.Close())
	assert.True(t, client.Closed())
}

func TestSSHRunner_MissingBinary(t *testing.T) {
	client := sshtest.NewMockClient("lab")
	r := SSHRunner{Client: client, Binary: "pminfo"}

	_, err := r.Run(context.Background(), []string{"-f", "hinv.ncpu"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127")
}

func TestSSHRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := sshtest.NewMockClient("lab")
	_, err := SSHRunner{Client: client, Binary: "pminfo"}.Run(ctx, []string{"-f", "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
