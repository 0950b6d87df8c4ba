// Package cache persists merged TOC results in sqlite so repeat
// requests for the same document skip the expensive vision calls,
// across process restarts.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is a cached extraction result.
type Entry struct {
	Key       string
	TOC       string
	Model     string
	CreatedAt time.Time
}

// Store is a sqlite-backed key/value store with time-based expiry.
type Store struct {
	db     *sql.DB
	maxAge time.Duration

	// now is replaceable in tests to simulate clock advance.
	now func() time.Time
}

// Open opens (or creates) the store at path. Entries older than
// maxAge are treated as absent on read and reclaimed by Sweep.
func Open(path string, maxAge time.Duration) (*Store, error) {
	if maxAge <= 0 {
		return nil, errors.New("cache: maxAge must be positive")
	}
	// WAL keeps readers consistent while the orchestrator writes.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			key        TEXT PRIMARY KEY,
			toc        TEXT NOT NULL,
			model      TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}

	return &Store{db: db, maxAge: maxAge, now: time.Now}, nil
}

// Get returns the entry for key. An entry past the retention window
// is reported as a miss even when still physically present; Sweep
// reclaims it later using the same threshold.
func (s *Store) Get(ctx context.Context, key string) (Entry, bool, error) {
	var e Entry
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT key, toc, model, created_at FROM records WHERE key = ?", key,
	).Scan(&e.Key, &e.TOC, &e.Model, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache get: %w", err)
	}

	e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache get: bad timestamp %q: %w", createdAt, err)
	}
	if s.now().Sub(e.CreatedAt) > s.maxAge {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Put stores a merged result under key, replacing any prior entry.
func (s *Store) Put(ctx context.Context, key, toc, model string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO records (key, toc, model, created_at) VALUES (?, ?, ?, ?)",
		key, toc, model, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Sweep deletes all entries past the retention window and returns the
// number of rows reclaimed.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.maxAge).UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache sweep: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cache sweep: %w", err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
