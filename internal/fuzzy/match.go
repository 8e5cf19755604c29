// Package fuzzy matches queries against an index of paths. A query is split
// into fragments; each fragment must be found, within its edit budget or as
// an abbreviation, in a distinct path component, left to right.
package fuzzy

import (
	"fmt"

	"github.com/blevesearch/vellum"

	"github.com/pbaille/hop/internal/index"
	"github.com/pbaille/hop/internal/paths"
)

// Match is one path accepted by a query
type Match struct {
	Handle    index.Handle
	Path      string
	TextScore float64
}

// Engine runs queries against an index. It holds no per-query state and
// is safe for concurrent use.
type Engine struct {
	Thresholds Thresholds
}

// NewEngine returns an engine with the given thresholds
func NewEngine(t Thresholds) *Engine {
	return &Engine{Thresholds: t}
}

type fragment struct {
	text   string
	budget int
}

// Match returns every indexed path satisfying query, in path order.
// An empty query matches everything with a text score of 1.
func (e *Engine) Match(ix *index.Index, query string) ([]Match, error) {
	frags := e.fragments(query)
	if len(frags) == 0 {
		all := ix.All()
		out := make([]Match, 0, len(all))
		for _, h := range all {
			out = append(out, Match{Handle: h, Path: ix.Entry(h).Path, TextScore: 1})
		}
		return out, nil
	}

	candidates, err := e.prefilter(ix, frags)
	if err != nil {
		return nil, err
	}

	var out []Match
	for _, h := range candidates {
		p := ix.Entry(h).Path
		score, ok := e.scorePath(p, frags)
		if !ok {
			continue
		}
		out = append(out, Match{Handle: h, Path: p, TextScore: score})
	}
	return out, nil
}

func (e *Engine) fragments(query string) []fragment {
	parts := Fragments(query)
	out := make([]fragment, len(parts))
	for i, p := range parts {
		out[i] = fragment{text: p, budget: e.Thresholds.Budget(p)}
	}
	return out
}

func automatonFor(f fragment) vellum.Automaton {
	return NewUnion(NewSubstring(f.text, f.budget), NewAbbrev(f.text))
}

// prefilter searches the FST once per fragment and keeps the handles every
// fragment accepted.
func (e *Engine) prefilter(ix *index.Index, frags []fragment) ([]index.Handle, error) {
	var keep map[index.Handle]bool
	for _, f := range frags {
		hs, err := ix.Search(automatonFor(f))
		if err != nil {
			return nil, fmt.Errorf("search fragment %q: %w", f.text, err)
		}
		next := make(map[index.Handle]bool, len(hs))
		for _, h := range hs {
			if keep == nil || keep[h] {
				next[h] = true
			}
		}
		keep = next
		if len(keep) == 0 {
			return nil, nil
		}
	}

	out := make([]index.Handle, 0, len(keep))
	for _, h := range ix.All() {
		if keep[h] {
			out = append(out, h)
		}
	}
	return out, nil
}

// scorePath assigns fragments to components in order. Every fragment but
// the last takes the leftmost component it fits; the last takes its
// best-scoring component, the rightmost on ties.
func (e *Engine) scorePath(path string, frags []fragment) (float64, bool) {
	comps := paths.Components(path)
	scores := make([]float64, len(frags))
	pos := 0
	last := -1

	for i, f := range frags {
		aut := automatonFor(f)
		if i < len(frags)-1 {
			j := pos
			for ; j < len(comps); j++ {
				if Accepts(aut, comps[j]) {
					break
				}
			}
			if j == len(comps) {
				return 0, false
			}
			scores[i] = ComponentScore(f.text, comps[j], f.budget)
			pos = j + 1
			continue
		}

		best := -1.0
		for j := pos; j < len(comps); j++ {
			if !Accepts(aut, comps[j]) {
				continue
			}
			if s := ComponentScore(f.text, comps[j], f.budget); s >= best {
				best = s
				last = j
			}
		}
		if last < 0 {
			return 0, false
		}
		scores[i] = best
	}

	return PathScore(scores, last == len(comps)-1), true
}
