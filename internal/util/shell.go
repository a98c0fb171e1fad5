package util

import "strings"

// ShellQuote wraps s in single quotes for a POSIX shell, escaping any
// single quotes inside it.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
