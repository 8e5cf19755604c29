package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/mattn/go-sqlite3"

	"github.com/pbaille/hop/internal/domain"
	herrors "github.com/pbaille/hop/internal/errors"
	"github.com/pbaille/hop/internal/paths"
)

//go:embed schema.sql
var schema string

// SchemaVersion is written to PRAGMA user_version. A store carrying a
// higher version was written by a newer hop and is never opened.
const SchemaVersion = 1

// Options tune the store
type Options struct {
	// RescaleThreshold is the visit total above which all counts are divided
	RescaleThreshold int64
	// RescaleFactor divides every count on rescale (floor 1)
	RescaleFactor int64
	// BusyTimeout is how long SQLite itself waits for a lock
	BusyTimeout time.Duration
	// MaxRetries bounds retries of busy transactions
	MaxRetries int
	Logger     *slog.Logger
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		RescaleThreshold: 10000,
		RescaleFactor:    2,
		BusyTimeout:      5 * time.Second,
		MaxRetries:       5,
	}
}

// Store handles database operations
type Store struct {
	db     *sql.DB
	path   string
	opts   Options
	logger *slog.Logger
}

// New opens (creating if needed) the store at dbPath
func New(dbPath string, opts Options) (*Store, error) {
	if opts.RescaleFactor < 2 {
		opts.RescaleFactor = 2
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("sqlite3", dsn(dbPath, opts.BusyTimeout))
	if err != nil {
		return nil, herrors.New(herrors.StoreUnavailable, "open store", err).WithPath(dbPath)
	}
	// one connection per process
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath, opts: opts, logger: opts.Logger.With("store", dbPath)}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string, busy time.Duration) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_synchronous", "FULL")
	q.Set("_busy_timeout", fmt.Sprint(busy.Milliseconds()))
	q.Set("_txlock", "immediate")
	return path + "?" + q.Encode()
}

func (s *Store) init() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return s.classify("read schema version", err)
	}
	if version > SchemaVersion {
		return herrors.New(herrors.StoreCorrupt,
			fmt.Sprintf("store was created by a newer hop (schema %d, supported %d)", version, SchemaVersion), nil).
			WithPath(s.path)
	}

	if _, err := s.db.Exec(schema); err != nil {
		return s.classify("init schema", err)
	}
	if version < SchemaVersion {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return s.classify("set schema version", err)
		}
		s.logger.Debug("initialized schema", "version", SchemaVersion)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

// Upsert records a visit of path at now: a new entry starts at one visit,
// an existing one gains a visit and takes now as its last visit.
// The rescale check runs in the same transaction.
func (s *Store) Upsert(ctx context.Context, path string, now time.Time) (domain.Entry, error) {
	canon, err := paths.Normalize(path)
	if err != nil {
		return domain.Entry{}, herrors.New(herrors.InvalidPath, "cannot canonicalize path", err).WithPath(path)
	}

	var entry domain.Entry
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entries (path, visits, last_visited) VALUES (?, 1, ?)
			ON CONFLICT(path) DO UPDATE SET
				visits = visits + 1,
				last_visited = excluded.last_visited`,
			canon, now.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("upsert entry: %w", err)
		}

		if err := s.rescaleIfNeeded(ctx, tx); err != nil {
			return err
		}

		entry, err = getEntry(ctx, tx, canon)
		return err
	})
	if err != nil {
		return domain.Entry{}, err
	}
	return entry, nil
}

// rescaleIfNeeded divides every visit count once the total crosses the
// threshold. It runs inside the caller's transaction, so it either applies
// to all entries or to none.
func (s *Store) rescaleIfNeeded(ctx context.Context, tx *sql.Tx) error {
	var total int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(SUM(visits), 0) FROM entries").Scan(&total); err != nil {
		return fmt.Errorf("sum visits: %w", err)
	}
	if total <= s.opts.RescaleThreshold {
		return nil
	}

	_, err := tx.ExecContext(ctx, "UPDATE entries SET visits = MAX(1, visits / ?)", s.opts.RescaleFactor)
	if err != nil {
		return fmt.Errorf("rescale visits: %w", err)
	}
	s.logger.Info("rescaled visit counts", "total", total, "factor", s.opts.RescaleFactor)
	return nil
}

// Rescale unconditionally divides every visit count by the rescale factor
func (s *Store) Rescale(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "UPDATE entries SET visits = MAX(1, visits / ?)", s.opts.RescaleFactor)
		if err != nil {
			return fmt.Errorf("rescale visits: %w", err)
		}
		return nil
	})
}

// Snapshot returns every entry ordered by path bytes, as of one commit point
func (s *Store) Snapshot(ctx context.Context) ([]domain.Entry, error) {
	var entries []domain.Entry
	err := s.withRead(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, "SELECT path, visits, last_visited FROM entries ORDER BY path")
		if err != nil {
			return fmt.Errorf("list entries: %w", err)
		}
		defer rows.Close()

		entries = entries[:0]
		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Get returns the entry stored for path
func (s *Store) Get(ctx context.Context, path string) (domain.Entry, bool, error) {
	canon, err := paths.Normalize(path)
	if err != nil {
		return domain.Entry{}, false, nil
	}

	var (
		entry domain.Entry
		found bool
	)
	err = s.withRead(ctx, func(q querier) error {
		e, err := getEntry(ctx, q, canon)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		entry, found = e, true
		return nil
	})
	return entry, found, err
}

// Remove deletes the entry for path; removing an unknown path is not an error
func (s *Store) Remove(ctx context.Context, path string) (bool, error) {
	canon, err := paths.Normalize(path)
	if err != nil {
		return false, nil
	}

	var removed bool
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE path = ?", canon)
		if err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		removed = n > 0
		return nil
	})
	return removed, err
}

// Prune deletes every entry whose path keep rejects and returns how many went
func (s *Store) Prune(ctx context.Context, keep func(path string) bool) (int, error) {
	entries, err := s.Snapshot(ctx)
	if err != nil {
		return 0, err
	}

	var stale []string
	for _, e := range entries {
		if !keep(e.Path) {
			stale = append(stale, e.Path)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "DELETE FROM entries WHERE path = ?")
		if err != nil {
			return fmt.Errorf("prepare delete: %w", err)
		}
		defer stmt.Close()
		for _, p := range stale {
			if _, err := stmt.ExecContext(ctx, p); err != nil {
				return fmt.Errorf("delete entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}

// Check runs SQLite's integrity check over the whole file
func (s *Store) Check(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return s.classify("integrity check", err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return s.classify("integrity check", err)
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return s.classify("integrity check", err)
	}
	if len(problems) > 0 {
		return herrors.New(herrors.StoreCorrupt, "integrity check failed", errors.New(problems[0])).WithPath(s.path)
	}
	return nil
}

// withTx runs fn in an immediate write transaction, retrying with backoff
// while another process holds the lock.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return s.retry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warn("rollback failed", "error", rbErr)
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

// withRead runs fn outside an explicit transaction. Each read is a single
// statement, which in WAL mode sees one committed snapshot without taking
// the write lock that BEGIN IMMEDIATE would.
func (s *Store) withRead(ctx context.Context, fn func(querier) error) error {
	return s.retry(ctx, func() error {
		return fn(s.db)
	})
}

func (s *Store) retry(ctx context.Context, op func() error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := op()
		if err == nil {
			return struct{}{}, nil
		}
		if isBusy(err) {
			s.logger.Debug("store busy, retrying", "attempt", attempt, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(newBackOff()),
		backoff.WithMaxTries(uint(s.opts.MaxRetries+1)),
	)
	if err != nil {
		return s.classify("store transaction", err)
	}
	return nil
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	return b
}

// classify turns a driver error into a HopError naming the store file.
func (s *Store) classify(action string, err error) error {
	var he *herrors.HopError
	if errors.As(err, &he) {
		return err
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.Code {
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
			return herrors.New(herrors.StoreCorrupt, action, err).WithPath(s.path)
		case sqlite3.ErrCantOpen, sqlite3.ErrPerm, sqlite3.ErrReadonly, sqlite3.ErrFull,
			sqlite3.ErrIoErr, sqlite3.ErrBusy, sqlite3.ErrLocked:
			return herrors.New(herrors.StoreUnavailable, action, err).WithPath(s.path)
		}
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, os.ErrNotExist) {
		return herrors.New(herrors.StoreUnavailable, action, err).WithPath(s.path)
	}
	return fmt.Errorf("%s: %w", action, err)
}

func isBusy(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (domain.Entry, error) {
	var (
		e      domain.Entry
		millis int64
	)
	if err := row.Scan(&e.Path, &e.Visits, &millis); err != nil {
		return domain.Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.LastVisited = time.UnixMilli(millis)
	return e, nil
}

func getEntry(ctx context.Context, q querier, path string) (domain.Entry, error) {
	row := q.QueryRowContext(ctx, "SELECT path, visits, last_visited FROM entries WHERE path = ?", path)
	e, err := scanEntry(row)
	if err != nil {
		return domain.Entry{}, err
	}
	return e, nil
}
