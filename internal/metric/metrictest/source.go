// Package metrictest provides an in-memory metric.Source for tests.
package metrictest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rileyhilliard/treetop/internal/metric"
)

type series struct {
	pmid   metric.PMID
	desc   metric.Descriptor
	values []metric.InstanceValue
	broken error
}

// Source is a scriptable metric.Source. Metrics are added with SetScalar and
// SetInstances and can be changed between fetches.
type Source struct {
	mu      sync.Mutex
	byName  map[string]*series
	byPMID  map[metric.PMID]*series
	nextID  metric.PMID
	clock   time.Time
	host    string
	closed  bool
	lookups int
	fetches int
	// LookupErr, when set, is returned by Lookup.
	LookupErr error
	// FetchErr, when set, is returned by Fetch.
	FetchErr error
	// LastFetch holds the PMIDs requested by the most recent Fetch.
	LastFetch []metric.PMID
}

// New returns an empty source reporting host as its hostname.
func New(host string) *Source {
	return &Source{
		byName: make(map[string]*series),
		byPMID: make(map[metric.PMID]*series),
		nextID: 1,
		clock:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		host:   host,
	}
}

func (s *Source) ensure(name string, t metric.Type, indom metric.InDom) *series {
	ser, ok := s.byName[name]
	if !ok {
		ser = &series{pmid: s.nextID}
		s.nextID++
		s.byName[name] = ser
		s.byPMID[ser.pmid] = ser
	}
	ser.desc = metric.Descriptor{PMID: ser.pmid, Type: t, InDom: indom, Semantics: "instant"}
	ser.broken = nil
	return ser
}

// SetScalar exports name with a single value.
func (s *Source) SetScalar(name string, v metric.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ser := s.ensure(name, v.Type(), metric.NullInDom)
	ser.values = []metric.InstanceValue{{Inst: metric.NoInstance, Value: v}}
}

// SetInstances exports name as a multi-instance metric with the given values.
func (s *Source) SetInstances(name string, t metric.Type, vals ...metric.InstanceValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ser := s.ensure(name, t, metric.InDom(1))
	ser.values = append([]metric.InstanceValue(nil), vals...)
}

// Break makes fetches of name fail individually, as when the source stops
// exporting a metric after startup.
func (s *Source) Break(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ser, ok := s.byName[name]; ok {
		ser.broken = err
	}
}

// Remove stops exporting name. It no longer resolves.
func (s *Source) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ser, ok := s.byName[name]; ok {
		delete(s.byName, name)
		delete(s.byPMID, ser.pmid)
	}
}

// PMID returns the identifier assigned to name.
func (s *Source) PMID(name string) (metric.PMID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ser, ok := s.byName[name]
	if !ok {
		return metric.NullPMID, false
	}
	return ser.pmid, true
}

// Lookups returns how many Lookup calls were made.
func (s *Source) Lookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

// Fetches returns how many Fetch calls succeeded.
func (s *Source) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// Closed reports whether Close was called.
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Source) Name() string     { return "fake:" + s.host }
func (s *Source) Hostname() string { return s.host }

func (s *Source) Lookup(ctx context.Context, names []string) ([]metric.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.LookupErr != nil {
		return nil, s.LookupErr
	}
	descs := make([]metric.Descriptor, len(names))
	for i, name := range names {
		if ser, ok := s.byName[name]; ok {
			descs[i] = ser.desc
		} else {
			descs[i] = metric.Descriptor{PMID: metric.NullPMID, InDom: metric.NullInDom}
		}
	}
	return descs, nil
}

func (s *Source) Fetch(ctx context.Context, pmids []metric.PMID) (*metric.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastFetch = append([]metric.PMID(nil), pmids...)
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.fetches++
	s.clock = s.clock.Add(time.Second)

	snap := metric.NewSnapshot(s.clock)
	for _, pmid := range pmids {
		ser, ok := s.byPMID[pmid]
		switch {
		case !ok:
			snap.Errors[pmid] = fmt.Errorf("unknown metric PMID %d", pmid)
		case ser.broken != nil:
			snap.Errors[pmid] = ser.broken
		default:
			snap.Values[pmid] = append([]metric.InstanceValue(nil), ser.values...)
		}
	}
	return snap, nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Inst builds an instance value.
func Inst(inst int, v metric.Value) metric.InstanceValue {
	return metric.InstanceValue{Inst: inst, Value: v}
}
