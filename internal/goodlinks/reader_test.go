package goodlinks

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/njoerd114/linkpaper/internal/model"
)

var testLogger = slog.Default()

type fixtureRow struct {
	id      string
	url     string
	title   any // nil stores NULL
	addedAt float64
}

// writeStore creates a GoodLinks-shaped store at a temp path and fills it
// with the given rows.
func writeStore(t *testing.T, rows []fixtureRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.sqlite")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fixture store: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE link (id TEXT PRIMARY KEY, url TEXT NOT NULL, title TEXT, addedAt REAL)`); err != nil {
		t.Fatalf("create link table: %v", err)
	}
	for _, r := range rows {
		if _, err := db.Exec(`INSERT INTO link (id, url, title, addedAt) VALUES (?, ?, ?, ?)`,
			r.id, r.url, r.title, r.addedAt); err != nil {
			t.Fatalf("insert fixture row %q: %v", r.id, err)
		}
	}
	return path
}

func TestListCandidates_ReadsRows(t *testing.T) {
	path := writeStore(t, []fixtureRow{
		{"id-1", "https://example.com/a", "Article A", 1700000000.25},
		{"id-2", "https://example.com/b", "Article B", 1700000100},
	})

	r := NewReader(path, testLogger)
	links, err := r.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("got %d links, want 2", len(links))
	}

	byID := make(map[string]model.Link, len(links))
	for _, l := range links {
		byID[l.ID] = l
	}

	a, ok := byID["id-1"]
	if !ok {
		t.Fatal("link id-1 missing from listing")
	}
	if a.URL != "https://example.com/a" {
		t.Errorf("URL = %q, want %q", a.URL, "https://example.com/a")
	}
	if a.Title != "Article A" {
		t.Errorf("Title = %q, want %q", a.Title, "Article A")
	}
	wantSavedAt := time.Unix(1700000000, 250000000).UTC()
	if !a.SavedAt.Equal(wantSavedAt) {
		t.Errorf("SavedAt = %v, want %v", a.SavedAt, wantSavedAt)
	}

	if _, ok := byID["id-2"]; !ok {
		t.Error("link id-2 missing from listing")
	}
}

func TestListCandidates_EmptyStore(t *testing.T) {
	// An empty store is a valid answer, not an unavailable source.
	path := writeStore(t, nil)

	r := NewReader(path, testLogger)
	links, err := r.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("got %d links, want 0", len(links))
	}
}

func TestListCandidates_MissingStore(t *testing.T) {
	r := NewReader(filepath.Join(t.TempDir(), "missing.sqlite"), testLogger)

	_, err := r.ListCandidates(context.Background())
	if err == nil {
		t.Fatal("expected error for missing store")
	}
	if !errors.Is(err, model.ErrSourceUnavailable) {
		t.Errorf("error = %v, want ErrSourceUnavailable", err)
	}
}

func TestListCandidates_NullTitle(t *testing.T) {
	path := writeStore(t, []fixtureRow{
		{"id-1", "https://example.com/a", nil, 1700000000},
	})

	r := NewReader(path, testLogger)
	links, err := r.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("got %d links, want 1", len(links))
	}
	if links[0].Title != "" {
		t.Errorf("Title = %q, want empty for NULL", links[0].Title)
	}
}

func TestListCandidates_CorruptStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.sqlite")
	if err := os.WriteFile(path, []byte("this is not a sqlite database"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	r := NewReader(path, testLogger)
	_, err := r.ListCandidates(context.Background())
	if err == nil {
		t.Fatal("expected error for corrupt store")
	}
	if !errors.Is(err, model.ErrSourceUnavailable) {
		t.Errorf("error = %v, want ErrSourceUnavailable", err)
	}
}

func TestListCandidates_MissingLinkTable(t *testing.T) {
	// A database that is valid SQLite but not a GoodLinks store.
	path := filepath.Join(t.TempDir(), "data.sqlite")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fixture store: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE unrelated (x TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close fixture store: %v", err)
	}

	r := NewReader(path, testLogger)
	_, err = r.ListCandidates(context.Background())
	if err == nil {
		t.Fatal("expected error for store without a link table")
	}
	if !errors.Is(err, model.ErrSourceUnavailable) {
		t.Errorf("error = %v, want ErrSourceUnavailable", err)
	}
}

func TestDefaultStorePath(t *testing.T) {
	path, err := DefaultStorePath()
	if err != nil {
		t.Fatalf("DefaultStorePath: %v", err)
	}
	if path == "" {
		t.Fatal("DefaultStorePath returned empty string")
	}
	if filepath.Base(path) != "data.sqlite" {
		t.Errorf("path = %q, want it to end in data.sqlite", path)
	}
}

func TestEpochToTime(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want time.Time
	}{
		{"zero", 0, time.Time{}},
		{"whole seconds", 1700000000, time.Unix(1700000000, 0).UTC()},
		{"fractional seconds", 1700000000.5, time.Unix(1700000000, 500000000).UTC()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := epochToTime(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("epochToTime(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
