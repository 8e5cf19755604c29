package fuzzy

import (
	"github.com/blevesearch/vellum"
)

// Every automaton here implements vellum.Automaton and reserves state 0 as
// an absorbing accept state: once a path contains an acceptable fragment,
// whatever follows cannot undo the match.
const accepted = 0

var (
	_ vellum.Automaton = (*Substring)(nil)
	_ vellum.Automaton = (*Abbrev)(nil)
	_ vellum.Automaton = (*Union)(nil)
)

// Substring accepts any string that contains a substring within k edits
// (insertions, deletions, substitutions) of pattern. ASCII letters compare
// case-insensitively. States are Levenshtein rows, determinised lazily and
// memoised, so repeated prefixes in the FST cost one table lookup per byte.
type Substring struct {
	pattern []byte
	k       int

	rows  [][]uint8
	ids   map[string]int
	trans [][]int32
}

// NewSubstring builds the acceptor for pattern within k edits
func NewSubstring(pattern string, k int) *Substring {
	if k < 0 {
		k = 0
	}
	a := &Substring{
		pattern: lowerBytes(pattern),
		k:       k,
		ids:     make(map[string]int),
	}
	// slot 0 is the accept state and has no row
	a.rows = append(a.rows, nil)
	a.trans = append(a.trans, nil)
	return a
}

// Start returns the initial state
func (a *Substring) Start() int {
	row := initialRow(len(a.pattern), a.k)
	if a.done(row) {
		return accepted
	}
	return a.intern(row)
}

// IsMatch reports whether s is accepting
func (a *Substring) IsMatch(s int) bool { return s == accepted }

// CanMatch is always true: a matching substring may still start later
func (a *Substring) CanMatch(int) bool { return true }

// WillAlwaysMatch reports whether every continuation of s matches
func (a *Substring) WillAlwaysMatch(s int) bool { return s == accepted }

// Accept returns the state reached from s on byte c
func (a *Substring) Accept(s int, c byte) int {
	if s == accepted {
		return accepted
	}
	if t := a.trans[s]; t != nil && t[c] >= 0 {
		return int(t[c])
	}

	next := stepRow(a.rows[s], a.pattern, lower(c), a.k)
	target := accepted
	if !a.done(next) {
		target = a.intern(next)
	}

	if a.trans[s] == nil {
		t := make([]int32, 256)
		for i := range t {
			t[i] = -1
		}
		a.trans[s] = t
	}
	a.trans[s][c] = int32(target)
	return target
}

func (a *Substring) done(row []uint8) bool {
	return int(row[len(a.pattern)]) <= a.k
}

func (a *Substring) intern(row []uint8) int {
	key := string(row)
	if id, ok := a.ids[key]; ok {
		return id
	}
	id := len(a.rows)
	a.rows = append(a.rows, row)
	a.trans = append(a.trans, nil)
	a.ids[key] = id
	return id
}

// initialRow is the Levenshtein row before any text byte: reaching
// pattern prefix j costs j insertions. Values are capped at k+1.
func initialRow(m, k int) []uint8 {
	row := make([]uint8, m+1)
	for j := range row {
		row[j] = uint8(min(j, k+1))
	}
	return row
}

// stepRow advances a row by one text byte. Column 0 stays 0 because a
// match may begin at any position of the text.
func stepRow(prev []uint8, pattern []byte, c byte, k int) []uint8 {
	limit := uint8(k + 1)
	next := make([]uint8, len(prev))
	for j := 1; j < len(prev); j++ {
		cost := uint8(1)
		if pattern[j-1] == c {
			cost = 0
		}
		v := prev[j-1] + cost
		if d := prev[j] + 1; d < v {
			v = d
		}
		if d := next[j-1] + 1; d < v {
			v = d
		}
		if v > limit {
			v = limit
		}
		next[j] = v
	}
	return next
}

// SubstringDistance returns the smallest edit distance between pattern and
// any substring of text, capped at k+1.
func SubstringDistance(pattern, text string, k int) int {
	p := lowerBytes(pattern)
	row := initialRow(len(p), k)
	best := int(row[len(p)])
	for i := 0; i < len(text) && best > 0; i++ {
		row = stepRow(row, p, lower(text[i]), k)
		best = min(best, int(row[len(p)]))
	}
	return best
}

// Abbrev accepts strings in which some path component starts with the
// pattern's first byte and contains the whole pattern as a subsequence,
// so "dcs" finds ".../documents".
type Abbrev struct {
	pattern []byte
}

const (
	abbrevBoundary = 1
	abbrevSkip     = 2
	abbrevBase     = 3 // abbrevBase+j: j pattern bytes matched in this component
)

// NewAbbrev builds the abbreviation acceptor for pattern
func NewAbbrev(pattern string) *Abbrev {
	return &Abbrev{pattern: lowerBytes(pattern)}
}

// Start returns the initial state, which sits on a component boundary
func (a *Abbrev) Start() int {
	if len(a.pattern) == 0 {
		return accepted
	}
	return abbrevBoundary
}

func (a *Abbrev) IsMatch(s int) bool         { return s == accepted }
func (a *Abbrev) CanMatch(int) bool          { return true }
func (a *Abbrev) WillAlwaysMatch(s int) bool { return s == accepted }

// Accept returns the state reached from s on byte c
func (a *Abbrev) Accept(s int, c byte) int {
	if s == accepted {
		return accepted
	}
	if isSep(c) {
		return abbrevBoundary
	}
	c = lower(c)
	switch s {
	case abbrevBoundary:
		if c != a.pattern[0] {
			return abbrevSkip
		}
		return a.advance(1)
	case abbrevSkip:
		return abbrevSkip
	default:
		j := s - abbrevBase
		if c == a.pattern[j] {
			return a.advance(j + 1)
		}
		return s
	}
}

func (a *Abbrev) advance(j int) int {
	if j == len(a.pattern) {
		return accepted
	}
	return abbrevBase + j
}

// Union accepts what either automaton accepts. Pair states are interned
// on first use.
type Union struct {
	a, b  vellum.Automaton
	pairs [][2]int
	ids   map[[2]int]int
}

// NewUnion combines a and b
func NewUnion(a, b vellum.Automaton) *Union {
	return &Union{
		a:     a,
		b:     b,
		pairs: [][2]int{{}},
		ids:   make(map[[2]int]int),
	}
}

func (u *Union) Start() int {
	return u.intern(u.a.Start(), u.b.Start())
}

func (u *Union) IsMatch(s int) bool {
	if s == accepted {
		return true
	}
	p := u.pairs[s]
	return u.a.IsMatch(p[0]) || u.b.IsMatch(p[1])
}

func (u *Union) CanMatch(s int) bool {
	if s == accepted {
		return true
	}
	p := u.pairs[s]
	return u.a.CanMatch(p[0]) || u.b.CanMatch(p[1])
}

func (u *Union) WillAlwaysMatch(s int) bool {
	return s == accepted
}

func (u *Union) Accept(s int, c byte) int {
	if s == accepted {
		return accepted
	}
	p := u.pairs[s]
	return u.intern(u.a.Accept(p[0], c), u.b.Accept(p[1], c))
}

func (u *Union) intern(sa, sb int) int {
	if u.a.WillAlwaysMatch(sa) || u.b.WillAlwaysMatch(sb) {
		return accepted
	}
	key := [2]int{sa, sb}
	if id, ok := u.ids[key]; ok {
		return id
	}
	id := len(u.pairs)
	u.pairs = append(u.pairs, key)
	u.ids[key] = id
	return id
}

// Accepts runs aut over s from its start state
func Accepts(aut vellum.Automaton, s string) bool {
	state := aut.Start()
	if aut.WillAlwaysMatch(state) {
		return true
	}
	for i := 0; i < len(s); i++ {
		state = aut.Accept(state, s[i])
		if aut.WillAlwaysMatch(state) {
			return true
		}
	}
	return aut.IsMatch(state)
}

func lower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func lowerBytes(s string) []byte {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		b[i] = lower(s[i])
	}
	return b
}

func isSep(c byte) bool {
	return c == '/' || c == '\\'
}
