package table

import "fmt"

// Stats summarises one reconciliation pass.
type Stats struct {
	// Seen counts instances reported by the driving metric.
	Seen    int
	Created int
	Retired int
	// MissingFields counts companion values that were unavailable.
	MissingFields int
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Seen += other.Seen
	s.Created += other.Created
	s.Retired += other.Retired
	s.MissingFields += other.MissingFields
}

func (s Stats) String() string {
	return fmt.Sprintf("seen=%d created=%d retired=%d missing=%d",
		s.Seen, s.Created, s.Retired, s.MissingFields)
}
