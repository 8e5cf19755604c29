package frecency

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pbaille/hop/internal/domain"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func TestScore_Formula(t *testing.T) {
	m := New(24 * time.Hour)
	e := domain.Entry{Path: "/a", Visits: 3, LastVisited: now.Add(-48 * time.Hour)}

	want := math.Log(4) * 0.25
	assert.InDelta(t, want, m.Score(e, now), 1e-12)
}

func TestScore_MoreRecentWinsAtEqualVisits(t *testing.T) {
	m := New(DefaultHalfLife)
	older := domain.Entry{Path: "/old", Visits: 5, LastVisited: now.Add(-72 * time.Hour)}
	newer := domain.Entry{Path: "/new", Visits: 5, LastVisited: now.Add(-1 * time.Hour)}

	assert.Greater(t, m.Score(newer, now), m.Score(older, now))
}

func TestScore_StrictlyDecaysOverTime(t *testing.T) {
	m := New(DefaultHalfLife)
	e := domain.Entry{Path: "/a", Visits: 7, LastVisited: now}

	prev := m.Score(e, now)
	for _, d := range []time.Duration{time.Minute, time.Hour, 24 * time.Hour, 30 * 24 * time.Hour, 200 * 24 * time.Hour} {
		cur := m.Score(e, now.Add(d))
		assert.Less(t, cur, prev, "after %s", d)
		prev = cur
	}
}

func TestScore_YesterdayBeatsLastYear(t *testing.T) {
	m := New(DefaultHalfLife)
	yesterday := domain.Entry{Path: "/y", Visits: 1, LastVisited: now.Add(-24 * time.Hour)}
	lastYear := domain.Entry{Path: "/l", Visits: 20, LastVisited: now.Add(-365 * 24 * time.Hour)}

	assert.Greater(t, m.Score(yesterday, now), m.Score(lastYear, now))
}

func TestScore_FutureVisitClampedToNow(t *testing.T) {
	m := New(DefaultHalfLife)
	future := domain.Entry{Visits: 2, LastVisited: now.Add(time.Hour)}
	present := domain.Entry{Visits: 2, LastVisited: now}

	assert.Equal(t, m.Score(present, now), m.Score(future, now))
}

func TestScore_RescaleKeepsRanking(t *testing.T) {
	m := New(DefaultHalfLife)
	entries := []domain.Entry{
		{Path: "/a", Visits: 40, LastVisited: now.Add(-2 * time.Hour)},
		{Path: "/b", Visits: 12, LastVisited: now.Add(-2 * time.Hour)},
		{Path: "/c", Visits: 6, LastVisited: now.Add(-2 * time.Hour)},
		{Path: "/d", Visits: 2, LastVisited: now.Add(-2 * time.Hour)},
	}
	order := func(es []domain.Entry) []string {
		sorted := append([]domain.Entry(nil), es...)
		sort.SliceStable(sorted, func(i, j int) bool { return m.Score(sorted[i], now) > m.Score(sorted[j], now) })
		var out []string
		for _, e := range sorted {
			out = append(out, e.Path)
		}
		return out
	}

	before := order(entries)
	rescaled := make([]domain.Entry, len(entries))
	for i, e := range entries {
		e.Visits = max(1, e.Visits/2)
		rescaled[i] = e
	}
	assert.Equal(t, before, order(rescaled))
}

func TestNew_DefaultsHalfLife(t *testing.T) {
	assert.Equal(t, DefaultHalfLife, New(0).HalfLife)
	assert.InDelta(t, 0.5, Model{}.Recency(now.Add(-DefaultHalfLife), now), 1e-12)
}

func TestFrequency(t *testing.T) {
	assert.Equal(t, 0.0, Frequency(0))
	assert.Equal(t, 0.0, Frequency(-3))
	assert.InDelta(t, math.Log(2), Frequency(1), 1e-12)
}
