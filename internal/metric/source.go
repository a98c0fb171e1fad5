package metric

import (
	"context"
	"time"
)

// PMID is the source-side identifier a name resolves to.
type PMID uint32

// NullPMID marks a metric the source does not export.
const NullPMID PMID = 0xffffffff

// InDom identifies an instance domain. NullInDom marks a scalar metric.
type InDom uint32

const NullInDom InDom = 0xffffffff

// NoInstance is the instance number reported for scalar values.
const NoInstance = -1

// Descriptor is what the source knows about one metric.
type Descriptor struct {
	PMID      PMID
	Type      Type
	InDom     InDom
	Semantics string
	Units     string
}

// Scalar reports whether the metric has a single value per fetch.
func (d Descriptor) Scalar() bool {
	return d.InDom == NullInDom
}

// InstanceValue is one value of a metric, tagged with its instance number.
type InstanceValue struct {
	Inst  int
	Value Value
}

// Snapshot holds the result of one batched fetch.
type Snapshot struct {
	Timestamp time.Time
	// Values holds every returned value per PMID, in source order.
	// A PMID present with no values is a valid empty instance domain.
	Values map[PMID][]InstanceValue
	// Errors holds per-metric failures, e.g. a metric the source no longer exports.
	Errors map[PMID]error
}

// NewSnapshot returns an empty snapshot stamped with ts.
func NewSnapshot(ts time.Time) *Snapshot {
	return &Snapshot{
		Timestamp: ts,
		Values:    make(map[PMID][]InstanceValue),
		Errors:    make(map[PMID]error),
	}
}

// Source is a connection to a metric source: a pmproxy host, a recorded
// archive, or pminfo run locally or over SSH.
type Source interface {
	// Name describes the source for messages, e.g. "http://localhost:44322".
	Name() string
	// Hostname is the host the metrics describe.
	Hostname() string
	// Lookup resolves names to descriptors in one round trip. The result has
	// one entry per name; names the source does not export get NullPMID.
	// An error means the source itself could not be reached.
	Lookup(ctx context.Context, names []string) ([]Descriptor, error)
	// Fetch samples every listed PMID at once.
	Fetch(ctx context.Context, pmids []PMID) (*Snapshot, error)
	Close() error
}

// Cursor walks the instances of a multi-instance metric. A fresh cursor is
// positioned before the first instance.
type Cursor struct {
	Instance int
	Offset   int
}

// NewCursor returns a cursor positioned before the first instance.
func NewCursor() Cursor {
	return Cursor{Instance: NoInstance, Offset: -1}
}
