// Package state manages the SQLite database that records which GoodLinks
// links have already been submitted to Instapaper.
//
// Only this package may open or query the database. All other packages
// receive a [*Store] and call its methods.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS synced_links (
    id        TEXT PRIMARY KEY,
    synced_at TEXT NOT NULL
);
`

// Summary aggregates the sync state for status reporting.
type Summary struct {
	// Count is the number of links recorded as synced.
	Count int

	// Oldest and Newest are the earliest and latest recorded submission
	// times. Both are zero when Count is 0.
	Oldest time.Time
	Newest time.Time
}

// Store is the SQLite-backed sync-state repository.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the state database:
// ~/.local/share/linkpaper/state.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "linkpaper", "state.db"), nil
}

// Open opens (or creates) the SQLite database at path and applies the
// schema. The connection uses WAL with synchronous=FULL: a MarkSynced that
// has returned must survive power loss, because the engine submits the next
// link on the strength of that write.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=FULL")
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// Single writer to avoid SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies the schema DDL idempotently (CREATE IF NOT EXISTS).
func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// IsSynced reports whether the link with the given GoodLinks ID has already
// been submitted successfully.
func (s *Store) IsSynced(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM synced_links WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking sync state for %q: %w", id, err)
	}
	return n > 0, nil
}

// MarkSynced records a successful submission. Marking an id that is already
// recorded is a no-op that keeps the original timestamp. The row is
// committed before the call returns.
func (s *Store) MarkSynced(ctx context.Context, id string, syncedAt time.Time) error {
	const q = `INSERT OR IGNORE INTO synced_links (id, synced_at) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, q, id, formatTime(syncedAt)); err != nil {
		return fmt.Errorf("marking %q as synced: %w", id, err)
	}
	return nil
}

// Reset removes every synced record in one atomic statement. After Reset,
// IsSynced reports false for all ids.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM synced_links`); err != nil {
		return fmt.Errorf("resetting sync state: %w", err)
	}
	return nil
}

// Summary returns the synced count and the oldest/newest submission times.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	const q = `
		SELECT COUNT(*), COALESCE(MIN(synced_at), ''), COALESCE(MAX(synced_at), '')
		FROM synced_links`

	var sum Summary
	var oldest, newest string
	if err := s.db.QueryRowContext(ctx, q).Scan(&sum.Count, &oldest, &newest); err != nil {
		return Summary{}, fmt.Errorf("loading sync summary: %w", err)
	}
	sum.Oldest, _ = parseTime(oldest)
	sum.Newest, _ = parseTime(newest)
	return sum, nil
}

// --- helpers -----------------------------------------------------------------

// timeLayout is RFC 3339 with fixed-width nanoseconds. Unlike RFC3339Nano it
// never trims trailing zeros, so the stored strings sort chronologically and
// MIN/MAX in SQL stay correct.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
