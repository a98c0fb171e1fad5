// Package row defines the records a table holds: the Row interface every
// entity kind implements, the column (field) table, and the fixed-width cell
// formatting shared by all kinds.
package row

// Row is one displayable entity, identified by the instance number of the
// metric that drives its table.
type Row interface {
	// ID is assigned at creation and never changes.
	ID() int
	// Updated reports whether the row was seen in the current cycle.
	Updated() bool
	SetUpdated(bool)
	Shown() bool
	SetShown(bool)

	// FieldValue returns the fixed-width cell text for f.
	FieldValue(f Field) string
	// Missing reports whether the value behind f is unavailable this cycle.
	Missing(f Field) bool
	// CompareByKey orders the receiver against other on f: negative, zero or positive.
	CompareByKey(other Row, f Field) int
	// SortKeyString is the canonical text used to identify the row, its name.
	SortKeyString() string
}

// Base carries the state common to every Row kind. Embed it by value.
type Base struct {
	id      int
	updated bool
	show    bool
}

// NewBase returns a Base with the given identity.
func NewBase(id int) Base {
	return Base{id: id}
}

func (b *Base) ID() int            { return b.id }
func (b *Base) Updated() bool      { return b.updated }
func (b *Base) SetUpdated(u bool)  { b.updated = u }
func (b *Base) Shown() bool        { return b.show }
func (b *Base) SetShown(show bool) { b.show = show }
