// Package rank orders fuzzy matches by a blend of text quality and frecency.
package rank

import (
	"math"
	"sort"
	"time"

	"github.com/pbaille/hop/internal/domain"
	"github.com/pbaille/hop/internal/frecency"
)

// Default weights of the text and frecency terms
const (
	DefaultAlpha = 0.6
	DefaultBeta  = 0.4
)

const tieEpsilon = 1e-9

// Candidate is a path accepted by the matcher together with its stored entry
type Candidate struct {
	Entry     domain.Entry
	TextScore float64
}

// Options narrow a ranking
type Options struct {
	// Exclude holds normalized paths dropped before ranking
	Exclude []string
	// All returns every candidate; otherwise at most the best one
	All bool
}

// Ranker computes Alpha*text + Beta*normalized frecency
type Ranker struct {
	Model frecency.Model
	Alpha float64
	Beta  float64
}

// New returns a ranker with the given weights
func New(model frecency.Model, alpha, beta float64) *Ranker {
	return &Ranker{Model: model, Alpha: alpha, Beta: beta}
}

// Rank scores cands at now and returns them best first. Frecency is
// normalized by the highest frecency among the candidates left after
// exclusion, so a lone candidate always gets the full frecency weight
// unless it has none. Equal scores fall back to the shorter path, then
// byte order.
func (r *Ranker) Rank(cands []Candidate, now time.Time, opts Options) []domain.Scored {
	excluded := make(map[string]bool, len(opts.Exclude))
	for _, p := range opts.Exclude {
		excluded[p] = true
	}

	out := make([]domain.Scored, 0, len(cands))
	maxFrecency := 0.0
	for _, c := range cands {
		if excluded[c.Entry.Path] {
			continue
		}
		f := r.Model.Score(c.Entry, now)
		maxFrecency = math.Max(maxFrecency, f)
		out = append(out, domain.Scored{Entry: c.Entry, TextScore: c.TextScore, FrecencyScore: f})
	}

	for i := range out {
		norm := 0.0
		if maxFrecency > 0 {
			norm = out[i].FrecencyScore / maxFrecency
		}
		out[i].Score = r.Alpha*out[i].TextScore + r.Beta*norm
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })

	if !opts.All && len(out) > 1 {
		out = out[:1]
	}
	return out
}

func less(a, b domain.Scored) bool {
	if d := a.Score - b.Score; math.Abs(d) >= tieEpsilon {
		return d > 0
	}
	if len(a.Path) != len(b.Path) {
		return len(a.Path) < len(b.Path)
	}
	return a.Path < b.Path
}
