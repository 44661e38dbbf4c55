// Package stringutil provides utility functions for string manipulation.
package stringutil

import "strings"

// Ellipsis flattens s onto one line and shortens it to at most maxLength
// runes, ending in "..." when something was cut. With maxLength <= 3 there
// is no room for the dots and s is simply cut.
func Ellipsis(s string, maxLength int) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")

	if maxLength < 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(r[:maxLength])
	}
	return string(r[:maxLength-3]) + "..."
}
