package table

import (
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/row"
)

// Reconciler is a table bound to the metrics that populate it. The refresh
// cycle enables Metrics, fetches, then calls Reconcile and Sort.
type Reconciler interface {
	Name() string
	// Metrics lists every metric Reconcile reads.
	Metrics() []metric.ID
	// Reconcile aligns the rows with the instances in the provider's
	// current snapshot.
	Reconcile(p *metric.Provider) Stats
	Sort(s Sorter)
	// Visible returns the shown rows in sorted order.
	Visible() []row.Row
	Len() int
}

// AsRows converts a slice of concrete rows to the Row interface.
func AsRows[R row.Row](rows []R) []row.Row {
	out := make([]row.Row, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}
