package fuzzy

import (
	"strings"

	subseq "github.com/sahilm/fuzzy"
)

// Score weights. An exact component match is worth 1; any other
// alignment tops out below it, and typo-only matches below that.
const (
	alignedCeiling = 0.9
	typoCeiling    = 0.5

	weightContiguous = 0.35
	weightStart      = 0.25
	weightGaps       = 0.20
	weightCoverage   = 0.20

	// applied when the last fragment is not found in the last component
	notLastComponent = 0.85
)

// ComponentScore rates how well fragment matches one path component, in [0, 1].
// k is the fragment's edit budget.
func ComponentScore(fragment, component string, k int) float64 {
	if fragment == "" {
		return 1
	}
	f := strings.ToLower(fragment)
	c := strings.ToLower(component)
	if f == c {
		return 1
	}

	if matches := subseq.Find(f, []string{c}); len(matches) > 0 {
		return alignedCeiling * alignment(matches[0].MatchedIndexes, c)
	}

	d := SubstringDistance(f, c, k)
	if d > k {
		return 0
	}
	coverage := min(1, float64(len(f))/float64(max(1, len(c))))
	return typoCeiling * (1 - float64(d)/float64(k+1)) * (0.5 + 0.5*coverage)
}

// alignment scores a subsequence alignment given the matched byte offsets:
// contiguous runs, a start at the beginning of the component or of a word,
// few skipped bytes and high coverage all push it towards 1.
func alignment(idx []int, component string) float64 {
	n := len(component)
	m := len(idx)
	if m == 0 || n == 0 {
		return 0
	}

	contiguous := 1.0
	if m > 1 {
		runs := 0
		for i := 1; i < m; i++ {
			if idx[i] == idx[i-1]+1 {
				runs++
			}
		}
		contiguous = float64(runs) / float64(m-1)
	}

	start := 0.0
	switch first := idx[0]; {
	case first == 0:
		start = 1
	case first < n && isWordBoundary(component[first-1]):
		start = 0.5
	}

	gaps := idx[m-1] - idx[0] - (m - 1)
	gapScore := 1 - float64(max(0, gaps))/float64(n)

	coverage := min(1, float64(m)/float64(n))

	return weightContiguous*contiguous + weightStart*start + weightGaps*gapScore + weightCoverage*coverage
}

func isWordBoundary(c byte) bool {
	switch c {
	case '-', '_', '.', ' ':
		return true
	}
	return false
}

// PathScore combines per-fragment component scores into the text score of a
// path. lastInLast tells whether the final fragment matched the final
// component, which is where the user usually aims.
func PathScore(scores []float64, lastInLast bool) float64 {
	if len(scores) == 0 {
		return 1
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	score := sum / float64(len(scores))
	if !lastInLast {
		score *= notLastComponent
	}
	return max(0, min(1, score))
}
