package metric

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/logger"
)

type entry struct {
	name    string
	desc    Descriptor
	enabled bool
	// resolved is set once a lookup has been attempted for this entry.
	resolved bool
}

// Registry maps metric IDs to names, descriptors and enable flags.
//
// It is written by the startup sequence and the refresh cycle only and is
// not safe for concurrent mutation.
type Registry struct {
	entries []entry
	byName  map[string]ID
	log     logger.Logger
}

// NewRegistry returns a registry holding every static metric, all disabled
// and unresolved. A nil logger discards messages.
func NewRegistry(log logger.Logger) *Registry {
	if log == nil {
		log = logger.Noop()
	}
	r := &Registry{
		entries: make([]entry, 0, StaticCount),
		byName:  make(map[string]ID, StaticCount),
		log:     log,
	}
	for id := ID(0); id < StaticCount; id++ {
		r.Register(staticNames[id])
	}
	return r
}

// Register returns the ID for name, appending a new entry if the name has
// not been seen. Previously returned IDs stay valid.
func (r *Registry) Register(name string) ID {
	if id, ok := r.byName[name]; ok {
		return id
	}
	id := ID(len(r.entries))
	r.entries = append(r.entries, entry{
		name: name,
		desc: Descriptor{PMID: NullPMID, InDom: NullInDom},
	})
	r.byName[name] = id
	return id
}

// Lookup returns the ID registered for name.
func (r *Registry) Lookup(name string) (ID, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// Count returns the number of registered metrics.
func (r *Registry) Count() int {
	return len(r.entries)
}

func (r *Registry) valid(id ID) bool {
	return id >= 0 && int(id) < len(r.entries)
}

// Name returns the source-side name of id.
func (r *Registry) Name(id ID) string {
	if !r.valid(id) {
		return ""
	}
	return r.entries[id].name
}

// Enable adds id to, or removes it from, the next fetch batch. Values from
// the last fetch that included id are kept either way.
func (r *Registry) Enable(id ID, on bool) {
	if r.valid(id) {
		r.entries[id].enabled = on
	}
}

// Enabled reports whether id takes part in the next fetch.
func (r *Registry) Enabled(id ID) bool {
	return r.valid(id) && r.entries[id].enabled
}

// Available reports whether id resolved to a source metric.
func (r *Registry) Available(id ID) bool {
	return r.valid(id) && r.entries[id].desc.PMID != NullPMID
}

// Descriptor returns the cached descriptor for id.
func (r *Registry) Descriptor(id ID) Descriptor {
	if !r.valid(id) {
		return Descriptor{PMID: NullPMID, InDom: NullInDom}
	}
	return r.entries[id].desc
}

// Resolved returns how many metrics resolved to a source metric.
func (r *Registry) Resolved() int {
	n := 0
	for _, e := range r.entries {
		if e.desc.PMID != NullPMID {
			n++
		}
	}
	return n
}

// MarkUnavailable degrades id so that it is never fetched again. Readers see
// it as absent.
func (r *Registry) MarkUnavailable(id ID) {
	if r.valid(id) {
		r.entries[id].desc.PMID = NullPMID
	}
}

// fetchSet returns the enabled, available IDs and their PMIDs.
func (r *Registry) fetchSet() ([]ID, []PMID) {
	ids := make([]ID, 0, len(r.entries))
	pmids := make([]PMID, 0, len(r.entries))
	for i, e := range r.entries {
		if e.enabled && e.desc.PMID != NullPMID {
			ids = append(ids, ID(i))
			pmids = append(pmids, e.desc.PMID)
		}
	}
	return ids, pmids
}

// unresolved returns the enabled IDs that have never been looked up,
// typically ones registered after startup.
func (r *Registry) unresolved() []ID {
	var ids []ID
	for i, e := range r.entries {
		if e.enabled && !e.resolved {
			ids = append(ids, ID(i))
		}
	}
	return ids
}

// ResolveAll looks up every registered metric in one round trip. Names the
// source does not export are marked unavailable. A source that cannot be
// reached, or that resolves none of the names, yields a SOURCE error.
func (r *Registry) ResolveAll(ctx context.Context, src Source) error {
	ids := make([]ID, len(r.entries))
	for i := range r.entries {
		ids[i] = ID(i)
	}
	if err := r.resolve(ctx, src, ids); err != nil {
		return errors.SourceUnavailable(err, src.Name())
	}
	if r.Resolved() == 0 {
		return errors.SourceUnavailable(
			fmt.Errorf("cannot find a single valid metric"), src.Name())
	}
	return nil
}

// Resolve looks up the given IDs, typically ones appended after startup.
// Entries already resolved are skipped.
func (r *Registry) Resolve(ctx context.Context, src Source, ids ...ID) error {
	pending := make([]ID, 0, len(ids))
	for _, id := range ids {
		if r.valid(id) && !r.entries[id].resolved {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if err := r.resolve(ctx, src, pending); err != nil {
		return errors.WrapWithCode(err, errors.ErrMetric,
			fmt.Sprintf("Cannot resolve %d metrics", len(pending)), "")
	}
	return nil
}

func (r *Registry) resolve(ctx context.Context, src Source, ids []ID) error {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = r.entries[id].name
	}

	descs, err := src.Lookup(ctx, names)
	if err != nil {
		return err
	}
	if len(descs) != len(names) {
		return fmt.Errorf("lookup returned %d descriptors for %d names", len(descs), len(names))
	}

	for i, id := range ids {
		e := &r.entries[id]
		e.resolved = true
		e.desc = descs[i]
		if e.desc.PMID == NullPMID {
			e.desc.InDom = NullInDom
			r.log.Debug("%s", errors.MetricUnresolved(e.name).Message)
		}
	}
	return nil
}
