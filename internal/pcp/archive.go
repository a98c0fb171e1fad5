package pcp

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/metric"
)

// ErrEndOfArchive is returned by Fetch once every sample has been replayed.
var ErrEndOfArchive = stderrors.New("end of archive")

// ArchiveFile is a recording: metric descriptors plus a series of samples.
//
//	hostname: lab-box
//	metrics:
//	  - name: hinv.ncpu
//	    pmid: 60.0.32
//	    type: u32
//	samples:
//	  - timestamp: 2024-03-01T12:00:00Z
//	    values:
//	      hinv.ncpu: 8
//	      kernel.all.load: {1: 0.5, 5: 0.25}
//
// Scalar metrics map to a value; instance metrics map instance numbers to values.
type ArchiveFile struct {
	Hostname string          `yaml:"hostname"`
	Metrics  []ArchiveMetric `yaml:"metrics"`
	Samples  []ArchiveSample `yaml:"samples"`
}

// ArchiveMetric describes one recorded metric.
type ArchiveMetric struct {
	Name      string `yaml:"name"`
	PMID      string `yaml:"pmid"`
	InDom     string `yaml:"indom,omitempty"`
	Type      string `yaml:"type"`
	Semantics string `yaml:"sem,omitempty"`
	Units     string `yaml:"units,omitempty"`
}

// ArchiveSample is one fetch worth of values, keyed by metric name.
type ArchiveSample struct {
	Timestamp time.Time `yaml:"timestamp"`
	Values    yaml.Node `yaml:"values"`
}

// LoadArchive reads a recording from path.
func LoadArchive(path string) (*ArchiveFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f ArchiveFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}

// Save writes the recording to path.
func (f *ArchiveFile) Save(path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding archive: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Append adds a sample holding vals, keyed by metric name. Names not among
// the file's metrics are ignored.
func (f *ArchiveFile) Append(ts time.Time, vals map[string][]metric.InstanceValue) {
	descs := make(map[string]ArchiveMetric, len(f.Metrics))
	for _, m := range f.Metrics {
		descs[m.Name] = m
	}

	values := yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, m := range f.Metrics {
		iv, ok := vals[m.Name]
		if !ok {
			continue
		}
		var node *yaml.Node
		if indom, _ := ParseInDom(m.InDom); indom == metric.NullInDom && len(iv) == 1 {
			node = scalarNode(iv[0].Value)
		} else {
			node = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Style: yaml.FlowStyle}
			for _, v := range iv {
				node.Content = append(node.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v.Inst)},
					scalarNode(v.Value))
			}
		}
		values.Content = append(values.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.Name}, node)
	}
	f.Samples = append(f.Samples, ArchiveSample{Timestamp: ts.UTC(), Values: values})
}

func scalarNode(v metric.Value) *yaml.Node {
	if v.Type() == metric.TypeString {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.String()}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v.String()}
}

// Archive replays an ArchiveFile, one sample per Fetch.
type Archive struct {
	name string
	file *ArchiveFile
	loop bool

	mu     sync.Mutex
	byName map[string]metric.Descriptor
	names  map[metric.PMID]string
	next   int
}

// OpenArchive loads the recording at path. With loop set the replay starts
// over after the last sample instead of failing.
func OpenArchive(path string, loop bool) (*Archive, error) {
	f, err := LoadArchive(path)
	if err != nil {
		return nil, errors.SourceUnavailable(err, path)
	}
	a, err := NewArchive(path, f, loop)
	if err != nil {
		return nil, errors.SourceUnavailable(err, path)
	}
	return a, nil
}

// NewArchive replays f. name identifies the source in messages.
func NewArchive(name string, f *ArchiveFile, loop bool) (*Archive, error) {
	if len(f.Samples) == 0 {
		return nil, fmt.Errorf("archive %s has no samples", name)
	}
	a := &Archive{
		name:   name,
		file:   f,
		loop:   loop,
		byName: make(map[string]metric.Descriptor, len(f.Metrics)),
		names:  make(map[metric.PMID]string, len(f.Metrics)),
	}
	for _, m := range f.Metrics {
		pmid, err := ParsePMID(m.PMID)
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", m.Name, err)
		}
		indom, err := ParseInDom(m.InDom)
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", m.Name, err)
		}
		a.byName[m.Name] = metric.Descriptor{
			PMID:      pmid,
			Type:      metric.ParseType(m.Type),
			InDom:     indom,
			Semantics: m.Semantics,
			Units:     m.Units,
		}
		a.names[pmid] = m.Name
	}
	return a, nil
}

func (a *Archive) Name() string { return a.name }

func (a *Archive) Hostname() string { return a.file.Hostname }

// Remaining returns how many samples are left before the end of the archive.
func (a *Archive) Remaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.file.Samples) - a.next
}

func (a *Archive) Lookup(_ context.Context, names []string) ([]metric.Descriptor, error) {
	out := make([]metric.Descriptor, len(names))
	for i, name := range names {
		d, ok := a.byName[name]
		if !ok {
			d = metric.Descriptor{PMID: metric.NullPMID, InDom: metric.NullInDom}
		}
		out[i] = d
	}
	return out, nil
}

func (a *Archive) Fetch(ctx context.Context, pmids []metric.PMID) (*metric.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	if a.next >= len(a.file.Samples) {
		if !a.loop {
			a.mu.Unlock()
			return nil, ErrEndOfArchive
		}
		a.next = 0
	}
	sample := a.file.Samples[a.next]
	a.next++
	a.mu.Unlock()

	nodes := make(map[string]*yaml.Node, len(sample.Values.Content)/2)
	for i := 0; i+1 < len(sample.Values.Content); i += 2 {
		nodes[sample.Values.Content[i].Value] = sample.Values.Content[i+1]
	}

	snap := metric.NewSnapshot(sample.Timestamp)
	for _, pmid := range pmids {
		name, ok := a.names[pmid]
		if !ok {
			snap.Errors[pmid] = fmt.Errorf("pmid %s is not in the archive", FormatPMID(pmid))
			continue
		}
		vals, err := decodeNode(a.byName[name].Type, nodes[name])
		if err != nil {
			snap.Errors[pmid] = fmt.Errorf("%s: %w", name, err)
			continue
		}
		snap.Values[pmid] = vals
	}
	return snap, nil
}

// decodeNode converts a sample entry. A missing entry is an empty instance
// domain.
func decodeNode(t metric.Type, n *yaml.Node) ([]metric.InstanceValue, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		v, err := metric.ParseValue(t, n.Value)
		if err != nil {
			return nil, err
		}
		return []metric.InstanceValue{{Inst: metric.NoInstance, Value: v}}, nil
	case yaml.MappingNode:
		out := make([]metric.InstanceValue, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			inst, err := strconv.Atoi(n.Content[i].Value)
			if err != nil {
				return nil, fmt.Errorf("instance %q is not a number", n.Content[i].Value)
			}
			v, err := metric.ParseValue(t, n.Content[i+1].Value)
			if err != nil {
				return nil, err
			}
			out = append(out, metric.InstanceValue{Inst: inst, Value: v})
		}
		return out, nil
	}
	return nil, fmt.Errorf("unexpected YAML node at line %d", n.Line)
}

func (a *Archive) Close() error { return nil }

// Record samples names from src count times, interval apart, and returns the
// recording. Names src does not export are left out.
func Record(ctx context.Context, src metric.Source, names []string, count int, interval time.Duration) (*ArchiveFile, error) {
	descs, err := src.Lookup(ctx, names)
	if err != nil {
		return nil, err
	}

	f := &ArchiveFile{Hostname: src.Hostname()}
	var pmids []metric.PMID
	byPMID := make(map[metric.PMID]string)
	for i, d := range descs {
		if d.PMID == metric.NullPMID {
			continue
		}
		indom := ""
		if !d.Scalar() {
			indom = fmt.Sprintf("%d.%d", d.InDom>>22, d.InDom&0x3fffff)
		}
		f.Metrics = append(f.Metrics, ArchiveMetric{
			Name:      names[i],
			PMID:      FormatPMID(d.PMID),
			InDom:     indom,
			Type:      d.Type.String(),
			Semantics: d.Semantics,
			Units:     d.Units,
		})
		pmids = append(pmids, d.PMID)
		byPMID[d.PMID] = names[i]
	}
	if len(pmids) == 0 {
		return nil, fmt.Errorf("none of the %d metrics are available from %s", len(names), src.Name())
	}

	for i := 0; i < count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return f, ctx.Err()
			case <-time.After(interval):
			}
		}
		snap, err := src.Fetch(ctx, pmids)
		if err != nil {
			return f, err
		}
		vals := make(map[string][]metric.InstanceValue, len(snap.Values))
		for pmid, iv := range snap.Values {
			vals[byPMID[pmid]] = iv
		}
		f.Append(snap.Timestamp, vals)
	}
	return f, nil
}
