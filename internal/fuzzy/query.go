package fuzzy

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Thresholds decide the edit budget of a fragment from its length
type Thresholds struct {
	// ExactMaxLen is the longest fragment that must match exactly
	ExactMaxLen int
	// OneEditMaxLen is the longest fragment allowed a single edit;
	// longer fragments get two
	OneEditMaxLen int
}

// DefaultThresholds returns 0 edits up to 2 characters, 1 up to 5, 2 beyond
func DefaultThresholds() Thresholds {
	return Thresholds{ExactMaxLen: 2, OneEditMaxLen: 5}
}

// Budget returns how many edits a fragment may absorb
func (t Thresholds) Budget(fragment string) int {
	n := utf8.RuneCountInString(fragment)
	switch {
	case n <= t.ExactMaxLen:
		return 0
	case n <= t.OneEditMaxLen:
		return 1
	default:
		return 2
	}
}

// Fragments splits a query on path separators and whitespace.
// "do/sc" and "do sc" both give ["do", "sc"].
func Fragments(query string) []string {
	return strings.FieldsFunc(query, func(r rune) bool {
		return r == '/' || r == '\\' || unicode.IsSpace(r)
	})
}
