// Package finder implements the hop commands on top of the store, the
// fuzzy engine and the ranker. Each call is independent: nothing is cached
// between invocations, so concurrent shells always see committed state.
package finder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pbaille/hop/internal/config"
	"github.com/pbaille/hop/internal/domain"
	herrors "github.com/pbaille/hop/internal/errors"
	"github.com/pbaille/hop/internal/frecency"
	"github.com/pbaille/hop/internal/fuzzy"
	"github.com/pbaille/hop/internal/index"
	"github.com/pbaille/hop/internal/logging"
	"github.com/pbaille/hop/internal/paths"
	"github.com/pbaille/hop/internal/rank"
	"github.com/pbaille/hop/internal/store"
)

const pruneWorkers = 16

// SearchOptions narrow a search
type SearchOptions struct {
	// Exclude lists paths never returned, typically the current directory
	Exclude []string
	// All returns every match instead of the best one
	All bool
}

// Finder ties the store to the matcher and the ranker
type Finder struct {
	store  *store.Store
	cfg    *config.Config
	logger *slog.Logger
	model  frecency.Model
	engine *fuzzy.Engine
	ranker *rank.Ranker

	// now is swapped in tests
	now func() time.Time
}

// Open creates the data directory if needed and opens the store it holds
func Open(cfg *config.Config, logger *slog.Logger) (*Finder, error) {
	if err := paths.EnsureDir(cfg.DataDir); err != nil {
		return nil, herrors.New(herrors.StoreUnavailable, "cannot create data directory", err).WithPath(cfg.DataDir)
	}
	s, err := store.New(cfg.StorePath(), store.Options{
		RescaleThreshold: cfg.RescaleThreshold,
		RescaleFactor:    cfg.RescaleFactor,
		BusyTimeout:      cfg.BusyTimeout,
		MaxRetries:       cfg.MaxRetries,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	return New(s, cfg, logger), nil
}

// New builds a Finder over an open store
func New(s *store.Store, cfg *config.Config, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	model := frecency.New(cfg.HalfLife)
	return &Finder{
		store:  s,
		cfg:    cfg,
		logger: logger,
		model:  model,
		engine: fuzzy.NewEngine(fuzzy.Thresholds{
			ExactMaxLen:   cfg.ExactMaxLen,
			OneEditMaxLen: cfg.OneEditMaxLen,
		}),
		ranker: rank.New(model, cfg.WeightText, cfg.WeightFrecency),
		now:    time.Now,
	}
}

// Close closes the underlying store
func (f *Finder) Close() error {
	return f.store.Close()
}

// Add records a visit to path. The path must name an existing directory;
// paths matching an exclude_dirs pattern are skipped and yield a zero Entry.
func (f *Finder) Add(ctx context.Context, path string) (domain.Entry, error) {
	canon, err := paths.Canonicalize(path)
	if err != nil {
		return domain.Entry{}, err
	}
	if paths.MatchesAny(canon, f.cfg.ExcludeDirs) {
		f.logger.Debug("skipping excluded directory", "path", canon)
		return domain.Entry{}, nil
	}

	e, err := f.store.Upsert(ctx, canon, f.now())
	if err != nil {
		return domain.Entry{}, err
	}
	f.logger.Debug("recorded visit", "path", e.Path, "visits", e.Visits)
	return e, nil
}

// Search ranks the known paths against query. It returns ErrNoMatch when
// nothing is left after matching and exclusion.
func (f *Finder) Search(ctx context.Context, query string, opts SearchOptions) ([]domain.Scored, error) {
	start := time.Now()

	entries, err := f.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	ix, err := index.Build(entries)
	if err != nil {
		return nil, herrors.New(herrors.Internal, "cannot build index", err)
	}
	defer ix.Close()

	matches, err := f.engine.Match(ix, query)
	if err != nil {
		return nil, herrors.New(herrors.Internal, "cannot match query", err)
	}

	cands := make([]rank.Candidate, len(matches))
	for i, m := range matches {
		cands[i] = rank.Candidate{Entry: ix.Entry(m.Handle), TextScore: m.TextScore}
	}

	results := f.ranker.Rank(cands, f.now(), rank.Options{
		Exclude: normalizeAll(opts.Exclude),
		All:     opts.All,
	})

	f.logger.Debug("search done",
		"query", query,
		"entries", len(entries),
		"matches", len(matches),
		"results", len(results),
		"took", time.Since(start),
	)

	if len(results) == 0 {
		return nil, herrors.ErrNoMatch
	}
	return results, nil
}

// List returns every entry, most frecent first
func (f *Finder) List(ctx context.Context) ([]domain.Scored, error) {
	entries, err := f.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	now := f.now()
	out := make([]domain.Scored, len(entries))
	for i, e := range entries {
		s := f.model.Score(e, now)
		out[i] = domain.Scored{Entry: e, FrecencyScore: s, Score: s}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// Remove forgets path. The directory does not need to exist anymore.
func (f *Finder) Remove(ctx context.Context, path string) (bool, error) {
	norm, err := paths.Normalize(path)
	if err != nil {
		return false, herrors.New(herrors.InvalidPath, "cannot canonicalize path", err).WithPath(path)
	}
	return f.store.Remove(ctx, norm)
}

// Prune forgets every directory that no longer exists or is now excluded
func (f *Finder) Prune(ctx context.Context) (int, error) {
	entries, err := f.store.Snapshot(ctx)
	if err != nil {
		return 0, err
	}

	alive := make([]bool, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pruneWorkers)
	for i, e := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			alive[i] = paths.IsDir(e.Path) && !paths.MatchesAny(e.Path, f.cfg.ExcludeDirs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("check directories: %w", err)
	}

	keep := make(map[string]bool, len(entries))
	for i, e := range entries {
		if alive[i] {
			keep[e.Path] = true
		}
	}
	// entries added after the snapshot are kept
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.Path] = true
	}

	n, err := f.store.Prune(ctx, func(p string) bool { return keep[p] || !known[p] })
	if err != nil {
		return 0, err
	}
	f.logger.Info("pruned entries", "removed", n)
	return n, nil
}

// Rescale divides every visit count by the configured factor
func (f *Finder) Rescale(ctx context.Context) error {
	return f.store.Rescale(ctx)
}

// Check verifies the integrity of the store file
func (f *Finder) Check(ctx context.Context) error {
	if err := f.store.Check(ctx); err != nil {
		return fmt.Errorf("check %s: %w", f.store.Path(), err)
	}
	return nil
}

func normalizeAll(ps []string) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		if n, err := paths.Normalize(p); err == nil {
			out = append(out, n)
		}
	}
	return out
}
