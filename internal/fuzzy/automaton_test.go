package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstring_Accepts(t *testing.T) {
	tests := []struct {
		pattern string
		k       int
		text    string
		want    bool
	}{
		{"ab", 0, "xaby", true},
		{"ab", 0, "axb", false},
		{"work", 0, "/home/u/work", true},
		{"WORK", 0, "/home/u/work", true},
		{"wrk", 1, "/home/u/work", true},
		{"wirk", 1, "/home/u/work", true},
		{"wxyz", 1, "/home/u/work", false},
		{"personl", 2, "/home/u/personal", true},
		{"zzzz", 1, "/home/u/work", false},
		{"", 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Accepts(NewSubstring(tt.pattern, tt.k), tt.text))
		})
	}
}

func TestSubstring_ReusesStates(t *testing.T) {
	a := NewSubstring("docs", 1)
	for range 3 {
		assert.True(t, Accepts(a, "/home/u/documents"))
		assert.False(t, Accepts(a, "/srv/logs/x"))
	}
	n := len(a.rows)
	Accepts(a, "/home/u/documents")
	assert.Equal(t, n, len(a.rows), "no new states on a repeated walk")
}

func TestSubstringDistance(t *testing.T) {
	assert.Equal(t, 0, SubstringDistance("work", "network", 2))
	assert.Equal(t, 1, SubstringDistance("wrk", "work", 2))
	assert.Equal(t, 1, SubstringDistance("wokr", "work", 2), "drop the k")
	assert.Equal(t, 3, SubstringDistance("wxyz", "work", 2))
	assert.Equal(t, 2, SubstringDistance("xyz", "work", 1), "capped at k+1")
}

func TestAbbrev_Accepts(t *testing.T) {
	tests := []struct {
		pattern string
		text    string
		want    bool
	}{
		{"dcs", "/home/u/documents", true},
		{"dcs", "/home/u/Documents", true},
		{"dcs", "/home/u/xdocuments", false},
		{"dcs", "/home/dc/s", false},
		{"pj", "/srv/projects/api", true},
		{"pj", "/srv/api", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Accepts(NewAbbrev(tt.pattern), tt.text))
		})
	}
}

func TestUnion_AcceptsEither(t *testing.T) {
	u := func(p string, k int) *Union { return NewUnion(NewSubstring(p, k), NewAbbrev(p)) }

	assert.True(t, Accepts(u("dcs", 0), "/home/u/documents"), "abbreviation side")
	assert.True(t, Accepts(u("wrk", 1), "/home/u/work"), "substring side")
	assert.False(t, Accepts(u("qq", 0), "/home/u/work"))
}
