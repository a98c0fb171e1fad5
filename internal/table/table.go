// Package table holds the identity-preserving row collections treetop
// reconciles against the metric provider every refresh, and the sort
// engine that orders them.
//
// A Table keeps an id index and an ordered slice in lockstep. Rows are only
// added through Upsert and only removed through Cleanup, so every id in the
// index appears exactly once in the slice and the other way round.
//
// One cycle looks like:
//
//	for each instance reported by the driving metric:
//	    r, created := t.Upsert(inst, newRow)   // marks r updated and shown
//	    fill r from companion metrics
//	t.Cleanup()                                // retire unseen rows, reset flags
//	t.Sort(sorter)
package table

import (
	"fmt"
	"sort"

	"github.com/rileyhilliard/treetop/internal/row"
)

// Table is a collection of rows keyed by instance id.
type Table[R row.Row] struct {
	index map[int]R
	rows  []R
}

// New returns an empty table.
func New[R row.Row]() *Table[R] {
	return &Table[R]{index: make(map[int]R)}
}

// Len returns the number of rows.
func (t *Table[R]) Len() int {
	return len(t.rows)
}

// Get returns the row with the given id.
func (t *Table[R]) Get(id int) (R, bool) {
	r, ok := t.index[id]
	return r, ok
}

// Upsert returns the row for id, creating it with create when absent. The
// row is marked updated and shown either way.
func (t *Table[R]) Upsert(id int, create func(id int) R) (R, bool) {
	r, ok := t.index[id]
	if ok {
		if r.ID() != id {
			panic(fmt.Sprintf("table: row indexed as %d reports id %d", id, r.ID()))
		}
	} else {
		r = create(id)
		if r.ID() != id {
			panic(fmt.Sprintf("table: created row for %d reports id %d", id, r.ID()))
		}
		t.index[id] = r
		t.rows = append(t.rows, r)
	}
	r.SetUpdated(true)
	r.SetShown(true)
	return r, !ok
}

// Cleanup removes every row not marked updated since the last Cleanup, then
// clears the updated flag on the rows that remain. It returns the number of
// rows removed.
func (t *Table[R]) Cleanup() int {
	kept := t.rows[:0]
	retired := 0
	for _, r := range t.rows {
		if !r.Updated() {
			delete(t.index, r.ID())
			retired++
			continue
		}
		r.SetUpdated(false)
		kept = append(kept, r)
	}
	// drop references held past the new length
	var zero R
	for i := len(kept); i < len(t.rows); i++ {
		t.rows[i] = zero
	}
	t.rows = kept
	return retired
}

// Clear removes every row.
func (t *Table[R]) Clear() {
	t.index = make(map[int]R)
	t.rows = nil
}

// Rows returns the rows in their current order. The slice is a copy.
func (t *Table[R]) Rows() []R {
	out := make([]R, len(t.rows))
	copy(out, t.rows)
	return out
}

// Visible returns the shown rows in their current order.
func (t *Table[R]) Visible() []R {
	out := make([]R, 0, len(t.rows))
	for _, r := range t.rows {
		if r.Shown() {
			out = append(out, r)
		}
	}
	return out
}

// Sort orders the rows with s.
func (t *Table[R]) Sort(s Sorter) {
	sort.Slice(t.rows, func(i, j int) bool {
		return s.Less(t.rows[i], t.rows[j])
	})
}
