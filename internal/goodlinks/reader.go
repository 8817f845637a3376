// Package goodlinks reads saved links out of the GoodLinks application's
// SQLite store.
//
// The store belongs to GoodLinks, so this package opens it read-only for the
// duration of a single listing and never writes to it. GoodLinks does not
// need to be running for a read to succeed; [Launcher] can start the app
// first so iCloud sync brings the store up to date.
package goodlinks

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/njoerd114/linkpaper/internal/model"
)

// groupContainer is the sandbox container GoodLinks keeps its data in.
const groupContainer = "group.com.ngocluu.goodlinks"

// listQuery pulls every saved link. Ordering is left to the engine.
const listQuery = `SELECT id, url, title, addedAt FROM link`

// DefaultStorePath returns the standard location of the GoodLinks store
// inside the app's group container.
func DefaultStorePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, "Library", "Group Containers", groupContainer, "Data", "data.sqlite"), nil
}

// Reader lists saved links from a GoodLinks store file. Create one with
// [NewReader].
type Reader struct {
	path string
	log  *slog.Logger
}

// NewReader creates a Reader for the store at path.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, log: logger}
}

// ListCandidates returns every link saved in the store. An empty store
// yields an empty result and no error; a missing, locked, or unreadable
// store yields an error matching [model.ErrSourceUnavailable].
//
// The store is opened fresh on each call so a listing always sees what is
// on disk rather than a stale connection's view.
func (r *Reader) ListCandidates(ctx context.Context) ([]model.Link, error) {
	if _, err := os.Stat(r.path); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSourceUnavailable, err)
	}

	db, err := sql.Open("sqlite3", "file:"+r.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: opening store: %v", model.ErrSourceUnavailable, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: reading link table: %v", model.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var links []model.Link
	for rows.Next() {
		var (
			id, url string
			title   sql.NullString
			addedAt sql.NullFloat64
		)
		if err := rows.Scan(&id, &url, &title, &addedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning link row: %v", model.ErrSourceUnavailable, err)
		}
		links = append(links, model.Link{
			ID:  id,
			URL: url,
			// title stays NULL until GoodLinks has fetched the page.
			Title:   title.String,
			SavedAt: epochToTime(addedAt.Float64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading link table: %v", model.ErrSourceUnavailable, err)
	}

	r.log.Debug("listed goodlinks store", "path", r.path, "count", len(links))
	return links, nil
}

// epochToTime converts the store's REAL unix timestamps (seconds with a
// fractional part) to time.Time.
func epochToTime(sec float64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	s, frac := math.Modf(sec)
	return time.Unix(int64(s), int64(math.Round(frac*1e9))).UTC()
}
