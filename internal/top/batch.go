package top

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rileyhilliard/treetop/internal/refresh"
)

// PrintFrame writes f as plain text: one line per meter, the screen name,
// the column titles and every row. It is used for --once and when stdout
// is not a terminal.
func PrintFrame(w io.Writer, f refresh.Frame) error {
	bw := bufio.NewWriter(w)

	for _, r := range f.Meters {
		fmt.Fprintf(bw, "%s%s\n", r.Caption, r.Text)
	}
	if f.Err != nil {
		fmt.Fprintf(bw, "stale: %v\n", f.Err)
	}
	fmt.Fprintf(bw, "\n[%s] sorted by %s %s\n", f.Screen, f.Sort.Key, f.Sort.Direction)
	fmt.Fprintln(bw, strings.TrimRight(strings.Join(f.Titles, ""), " "))
	for _, cells := range f.Rows {
		fmt.Fprintln(bw, strings.TrimRight(strings.Join(cells, ""), " "))
	}
	return bw.Flush()
}
