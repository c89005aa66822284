package utils

import "strings"

// Truncate returns s cut to at most max bytes, with "..." appended when cut.
// max <= 0 disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// CollapseSpace trims s and collapses runs of whitespace into single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
