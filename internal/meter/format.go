package meter

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/treetop/internal/util"
)

// FormatDuration renders seconds as "2 days, 3 hours 1 min 5 secs". Zero and
// negative durations render as "".
func FormatDuration(seconds float64) string {
	total := int(seconds)
	if total <= 0 {
		return ""
	}
	days := total / 86400
	hours := (total / 3600) % 24
	mins := (total / 60) % 60
	secs := total % 60

	var b strings.Builder
	if days > 0 {
		fmt.Fprintf(&b, "%d %s, ", days, util.Pluralize(days, "day", "days"))
	}
	if hours > 0 {
		fmt.Fprintf(&b, "%d %s ", hours, util.Pluralize(hours, "hour", "hours"))
	}
	if mins > 0 {
		fmt.Fprintf(&b, "%d %s ", mins, util.Pluralize(mins, "min", "mins"))
	}
	if secs > 0 {
		fmt.Fprintf(&b, "%d %s ", secs, util.Pluralize(secs, "sec", "secs"))
	}
	return strings.TrimRight(b.String(), ", ")
}

// FormatUptime renders seconds as "[N days, ]hh:mm:ss".
func FormatUptime(seconds int) string {
	days := seconds / 86400
	clock := fmt.Sprintf("%02d:%02d:%02d", (seconds/3600)%24, (seconds/60)%60, seconds%60)
	if days == 0 {
		return clock
	}
	return fmt.Sprintf("%d %s, %s", days, util.Pluralize(days, "day", "days"), clock)
}
