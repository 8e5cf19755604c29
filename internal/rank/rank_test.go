package rank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/hop/internal/domain"
	"github.com/pbaille/hop/internal/frecency"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func cand(path string, visits int64, age time.Duration, text float64) Candidate {
	return Candidate{
		Entry:     domain.Entry{Path: path, Visits: visits, LastVisited: now.Add(-age)},
		TextScore: text,
	}
}

func paths(rs []domain.Scored) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Path)
	}
	return out
}

func newRanker() *Ranker {
	return New(frecency.New(frecency.DefaultHalfLife), DefaultAlpha, DefaultBeta)
}

func TestRank_FrecencyBreaksEqualText(t *testing.T) {
	cands := []Candidate{
		cand("/home/u/work", 2, 30*24*time.Hour, 0.9),
		cand("/srv/work", 9, time.Hour, 0.9),
	}
	got := newRanker().Rank(cands, now, Options{All: true})
	assert.Equal(t, []string{"/srv/work", "/home/u/work"}, paths(got))
	assert.InDelta(t, DefaultAlpha*0.9+DefaultBeta, got[0].Score, 1e-12)
}

func TestRank_TextOutweighsSmallFrecencyGap(t *testing.T) {
	cands := []Candidate{
		cand("/a/project", 5, time.Hour, 1.0),
		cand("/a/proj-old", 6, time.Hour, 0.4),
	}
	got := newRanker().Rank(cands, now, Options{All: true})
	assert.Equal(t, "/a/project", got[0].Path)
}

func TestRank_SingleResultWithoutAll(t *testing.T) {
	cands := []Candidate{
		cand("/a", 1, time.Hour, 0.5),
		cand("/b", 10, time.Hour, 0.5),
		cand("/c", 3, time.Hour, 0.5),
	}
	got := newRanker().Rank(cands, now, Options{})
	require.Len(t, got, 1)
	assert.Equal(t, "/b", got[0].Path)
}

func TestRank_ExcludedNeverReturned(t *testing.T) {
	cands := []Candidate{
		cand("/home/u/work", 50, time.Minute, 1),
		cand("/home/u/work2", 1, 48*time.Hour, 0.5),
	}
	r := newRanker()

	for _, all := range []bool{false, true} {
		got := r.Rank(cands, now, Options{Exclude: []string{"/home/u/work"}, All: all})
		assert.NotContains(t, paths(got), "/home/u/work")
		require.Len(t, got, 1)
		assert.Equal(t, "/home/u/work2", got[0].Path)
		assert.InDelta(t, DefaultAlpha*0.5+DefaultBeta, got[0].Score, 1e-12, "normalized against what is left")
	}

	got := r.Rank(cands[:1], now, Options{Exclude: []string{"/home/u/work"}})
	assert.Empty(t, got)
}

func TestRank_TieBreaksByLengthThenLexically(t *testing.T) {
	cands := []Candidate{
		cand("/x/bbb", 3, time.Hour, 0.7),
		cand("/x/aaa", 3, time.Hour, 0.7),
		cand("/x/cc", 3, time.Hour, 0.7),
	}
	got := newRanker().Rank(cands, now, Options{All: true})
	assert.Equal(t, []string{"/x/cc", "/x/aaa", "/x/bbb"}, paths(got))
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, newRanker().Rank(nil, now, Options{All: true}))
}
