// Package index builds the read-only finite-state index searched by queries.
// It is rebuilt from a store snapshot on every search and never persisted.
package index

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/blevesearch/vellum"

	"github.com/pbaille/hop/internal/domain"
)

// Handle refers to one entry of an Index
type Handle uint64

// Index maps every known path to a Handle through a minimal FST
type Index struct {
	fst     *vellum.FST
	entries []domain.Entry
}

// Build sorts entries by path bytes and compiles them into an FST.
// The input slice is not modified. Duplicate paths keep the first entry.
func Build(entries []domain.Entry) (*Index, error) {
	sorted := make([]domain.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	uniq := sorted[:0]
	for _, e := range sorted {
		if e.Path == "" {
			continue
		}
		if len(uniq) > 0 && uniq[len(uniq)-1].Path == e.Path {
			continue
		}
		uniq = append(uniq, e)
	}
	if len(uniq) == 0 {
		return &Index{}, nil
	}

	var buf bytes.Buffer
	b, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, fmt.Errorf("create fst builder: %w", err)
	}
	for i, e := range uniq {
		if err := b.Insert([]byte(e.Path), uint64(i)); err != nil {
			return nil, fmt.Errorf("insert %s: %w", e.Path, err)
		}
	}
	if err := b.Close(); err != nil {
		return nil, fmt.Errorf("finish fst: %w", err)
	}

	fst, err := vellum.Load(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("load fst: %w", err)
	}
	return &Index{fst: fst, entries: uniq}, nil
}

// Len returns the number of indexed paths
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Entry returns the entry behind h
func (ix *Index) Entry(h Handle) domain.Entry {
	return ix.entries[h]
}

// Lookup returns the entry stored for path
func (ix *Index) Lookup(path string) (domain.Entry, bool) {
	if ix.fst == nil {
		return domain.Entry{}, false
	}
	v, ok, err := ix.fst.Get([]byte(path))
	if err != nil || !ok {
		return domain.Entry{}, false
	}
	return ix.entries[v], true
}

// All returns every handle in path order
func (ix *Index) All() []Handle {
	hs := make([]Handle, len(ix.entries))
	for i := range hs {
		hs[i] = Handle(i)
	}
	return hs
}

// Search intersects aut with the index and returns the handles of every
// accepted path, in path order.
func (ix *Index) Search(aut vellum.Automaton) ([]Handle, error) {
	if ix.fst == nil {
		return nil, nil
	}
	var out []Handle
	itr, err := ix.fst.Search(aut, nil, nil)
	for err == nil {
		_, v := itr.Current()
		out = append(out, Handle(v))
		err = itr.Next()
	}
	if !errors.Is(err, vellum.ErrIteratorDone) {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return out, nil
}

// Close releases the FST
func (ix *Index) Close() error {
	if ix.fst == nil {
		return nil
	}
	return ix.fst.Close()
}
