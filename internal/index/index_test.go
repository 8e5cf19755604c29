package index

import (
	"testing"
	"time"

	"github.com/blevesearch/vellum/regexp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/hop/internal/domain"
)

func entries(paths ...string) []domain.Entry {
	now := time.Now()
	out := make([]domain.Entry, len(paths))
	for i, p := range paths {
		out[i] = domain.Entry{Path: p, Visits: int64(i + 1), LastVisited: now}
	}
	return out
}

func TestBuild_SortsAndDedupes(t *testing.T) {
	in := entries("/home/u/work", "/home/u/docs", "", "/home/u/work", "/a")
	ix, err := Build(in)
	require.NoError(t, err)
	defer ix.Close()

	require.Equal(t, 3, ix.Len())
	var got []string
	for _, h := range ix.All() {
		got = append(got, ix.Entry(h).Path)
	}
	assert.Equal(t, []string{"/a", "/home/u/docs", "/home/u/work"}, got)

	e, ok := ix.Lookup("/home/u/work")
	require.True(t, ok)
	assert.Equal(t, int64(1), e.Visits, "first duplicate wins")

	_, ok = ix.Lookup("/home/u")
	assert.False(t, ok)

	assert.Equal(t, "/home/u/work", in[0].Path, "input left untouched")
}

func TestBuild_Empty(t *testing.T) {
	ix, err := Build(nil)
	require.NoError(t, err)

	assert.Equal(t, 0, ix.Len())
	assert.Empty(t, ix.All())
	_, ok := ix.Lookup("/a")
	assert.False(t, ok)

	r, err := regexp.New(".*")
	require.NoError(t, err)
	hs, err := ix.Search(r)
	require.NoError(t, err)
	assert.Empty(t, hs)
	assert.NoError(t, ix.Close())
}

func TestSearch_ReturnsAcceptedHandlesInOrder(t *testing.T) {
	ix, err := Build(entries("/srv/logs", "/home/u/work", "/home/u/notes", "/tmp"))
	require.NoError(t, err)
	defer ix.Close()

	r, err := regexp.New("/home/.*")
	require.NoError(t, err)
	hs, err := ix.Search(r)
	require.NoError(t, err)

	var got []string
	for _, h := range hs {
		got = append(got, ix.Entry(h).Path)
	}
	assert.Equal(t, []string{"/home/u/notes", "/home/u/work"}, got)
}
