// Package metrics derives counters from queries and agent runs for telemetry.
package metrics

import (
	"strings"
	"unicode/utf8"
)

// Features holds basic local text features derived from a query.
type Features struct {
	Bytes int
	Runes int
	Words int
	Lines int
}

// CountFeatures computes byte, rune, word, and line counts for s.
func CountFeatures(s string) Features {
	return Features{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(strings.Fields(s)),
		Lines: countLines(s),
	}
}

// countLines returns 0 for empty strings; otherwise 1 plus the number of '\n' runes.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return 1 + strings.Count(s, "\n")
}
