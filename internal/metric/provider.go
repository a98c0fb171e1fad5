package metric

import (
	"context"
	"time"

	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/logger"
)

// Provider samples the enabled metrics of a Registry from a Source and
// answers queries against the most recent successful fetch.
type Provider struct {
	reg *Registry
	src Source
	log *logger.Once

	values    map[ID][]InstanceValue
	timestamp time.Time
	fetches   int
}

// NewProvider returns a provider with no values. A nil logger discards messages.
func NewProvider(reg *Registry, src Source, log logger.Logger) *Provider {
	if log == nil {
		log = logger.Noop()
	}
	return &Provider{
		reg:    reg,
		src:    src,
		log:    logger.NewOnce(log),
		values: make(map[ID][]InstanceValue),
	}
}

// Registry returns the registry the provider fetches for.
func (p *Provider) Registry() *Registry { return p.reg }

// Source returns the underlying source.
func (p *Provider) Source() Source { return p.src }

// Fetch samples every enabled, available metric in one batch. Enabled
// metrics registered since the last lookup are resolved first.
//
// On failure the previous values stay in place and a FETCH error is
// returned. Metrics the source reports as failed are marked unavailable
// and drop out of later fetches. Metrics not in this batch keep the values
// of the last fetch that included them.
func (p *Provider) Fetch(ctx context.Context) (time.Time, error) {
	if pending := p.reg.unresolved(); len(pending) > 0 {
		if err := p.reg.Resolve(ctx, p.src, pending...); err != nil {
			return time.Time{}, errors.FetchFailed(err)
		}
	}
	ids, pmids := p.reg.fetchSet()

	snap, err := p.src.Fetch(ctx, pmids)
	if err != nil {
		return time.Time{}, errors.FetchFailed(err)
	}

	next := make(map[ID][]InstanceValue, len(p.values)+len(ids))
	for id, vals := range p.values {
		next[id] = vals
	}
	for i, id := range ids {
		pmid := pmids[i]
		if ferr, failed := snap.Errors[pmid]; failed {
			name := p.reg.Name(id)
			p.log.WarnOnce(name, "%s: %v", errors.MetricUnresolved(name).Message, ferr)
			p.reg.MarkUnavailable(id)
			delete(next, id)
			continue
		}
		next[id] = snap.Values[pmid]
	}

	p.values = next
	p.timestamp = snap.Timestamp
	p.fetches++
	return p.timestamp, nil
}

// Timestamp returns the time of the most recent successful fetch.
func (p *Provider) Timestamp() time.Time { return p.timestamp }

// Fetches returns the number of successful fetches.
func (p *Provider) Fetches() int { return p.fetches }

// Value returns the first value of id, which is the only value of a scalar metric.
func (p *Provider) Value(id ID) (Value, bool) {
	vals := p.values[id]
	if len(vals) == 0 {
		return Value{}, false
	}
	return vals[0].Value, true
}

// Float returns the first value of id as float64, or the unavailable sentinel.
func (p *Provider) Float(id ID) float64 {
	v, ok := p.Value(id)
	if !ok {
		return Unavailable()
	}
	return v.Float()
}

// String returns the first value of id as text, or fallback.
func (p *Provider) String(id ID, fallback string) string {
	v, ok := p.Value(id)
	if !ok {
		return fallback
	}
	return v.String()
}

// Values returns every value of id from the last fetch that included it.
// The slice must not be modified.
func (p *Provider) Values(id ID) []InstanceValue {
	return p.values[id]
}

// Iterate advances c to the next instance of id and reports whether there
// was one. Start with NewCursor to walk from the beginning.
func (p *Provider) Iterate(id ID, c *Cursor) bool {
	vals := p.values[id]
	next := c.Offset + 1
	if next < 0 || next >= len(vals) {
		return false
	}
	c.Offset = next
	c.Instance = vals[next].Inst
	return true
}

// Instance returns the value of instance inst of id. offset is a position
// hint, usually the cursor offset of a sibling metric sharing the instance
// domain; a wrong hint falls back to a search.
func (p *Provider) Instance(id ID, inst, offset int) (Value, bool) {
	vals := p.values[id]
	if offset >= 0 && offset < len(vals) && vals[offset].Inst == inst {
		return vals[offset].Value, true
	}
	for _, iv := range vals {
		if iv.Inst == inst {
			return iv.Value, true
		}
	}
	return Value{}, false
}

// InstanceFloat returns the instance value as float64, or the unavailable sentinel.
func (p *Provider) InstanceFloat(id ID, inst, offset int) float64 {
	v, ok := p.Instance(id, inst, offset)
	if !ok {
		return Unavailable()
	}
	return v.Float()
}

// InstanceString returns the instance value as text, or fallback.
func (p *Provider) InstanceString(id ID, inst, offset int, fallback string) string {
	v, ok := p.Instance(id, inst, offset)
	if !ok {
		return fallback
	}
	return v.String()
}

// Close closes the underlying source.
func (p *Provider) Close() error {
	return p.src.Close()
}
