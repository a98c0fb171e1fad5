package row

import (
	"fmt"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/rileyhilliard/treetop/internal/metric"
)

// NA is the cell shown for an unavailable value. It is as wide as every
// formatted number.
const NA = "       N/A "

// FormatValue renders v as a ValueWidth cell: five decimals below one,
// negative values included, no decimals for integral values, one decimal
// otherwise. The unavailable sentinel renders as NA.
func FormatValue(v float64) string {
	switch {
	case metric.IsUnavailable(v):
		return NA
	case v < 1.0:
		return fmt.Sprintf(" %9.5f ", v)
	case v == math.Trunc(v):
		return fmt.Sprintf(" %9.0f ", v)
	default:
		return fmt.Sprintf(" %9.1f ", v)
	}
}

// FormatName renders a feature name right-aligned in NameWidth cells,
// truncating names that do not fit.
func FormatName(name string) string {
	return alignRight(name, NameWidth-1) + " "
}

// FormatText renders s in a cell of width cells, left-aligned. Empty text
// renders as N/A.
func FormatText(s string, width int) string {
	if s == "" {
		s = "N/A"
	}
	return alignLeft(s, width-1) + " "
}

// FormatTitle renders a column header for info.
func FormatTitle(info FieldInfo) string {
	if info.Numeric || info.Width == NameWidth {
		return alignRight(info.Title, info.Width-1) + " "
	}
	return alignLeft(info.Title, info.Width-1) + " "
}

func alignRight(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = runewidth.Truncate(s, width, "...")
	return runewidth.FillLeft(s, width)
}

func alignLeft(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = runewidth.Truncate(s, width, "...")
	return runewidth.FillRight(s, width)
}

// CompareFloat orders two values numerically. Unavailable values compare
// equal to each other and below everything else; the sorter places them
// explicitly, so this only matters to direct callers.
func CompareFloat(a, b float64) int {
	an, bn := metric.IsUnavailable(a), metric.IsUnavailable(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// CompareString orders two strings, empty strings first.
func CompareString(a, b string) int {
	return strings.Compare(a, b)
}
