package table

import (
	"github.com/rileyhilliard/treetop/internal/row"
)

// Direction is the sort direction of the active column.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// String returns the indicator drawn next to the sorted column title.
func (d Direction) String() string {
	if d == Descending {
		return "▼"
	}
	return "▲"
}

// Invert returns the opposite direction.
func (d Direction) Invert() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// Sorter orders rows on one field.
//
// Rows whose value is unavailable always sort last, whatever the direction.
// Rows that compare equal are ordered by ascending id, also whatever the
// direction, so repeated refreshes of unchanged data keep the same order.
type Sorter struct {
	Key       row.Field
	Direction Direction
}

// Compare returns a negative number when a sorts before b, positive when
// after. It is zero only when a and b have the same id.
func (s Sorter) Compare(a, b row.Row) int {
	am, bm := a.Missing(s.Key), b.Missing(s.Key)
	switch {
	case am && !bm:
		return 1
	case bm && !am:
		return -1
	}

	result := 0
	if !am {
		result = a.CompareByKey(b, s.Key)
	}
	if result == 0 {
		return compareIDs(a.ID(), b.ID())
	}
	if s.Direction == Descending {
		return -result
	}
	return result
}

// Less reports whether a sorts before b.
func (s Sorter) Less(a, b row.Row) bool {
	return s.Compare(a, b) < 0
}

func compareIDs(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
