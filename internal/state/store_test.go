package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-state.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesSchema(t *testing.T) {
	s := openTestStore(t)
	// Summary queries synced_links; if the schema is wrong this fails.
	sum, err := s.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary after open: %v", err)
	}
	if sum.Count != 0 {
		t.Errorf("Count = %d, want 0 for fresh store", sum.Count)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("s1.Close: %v", err)
	}

	// Re-opening the same file must not fail or wipe data.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if err := s2.Close(); err != nil {
		t.Fatalf("s2.Close: %v", err)
	}
}

func TestMarkSyncedAndIsSynced(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.MarkSynced(ctx, "link-001", now); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	synced, err := s.IsSynced(ctx, "link-001")
	if err != nil {
		t.Fatalf("IsSynced: %v", err)
	}
	if !synced {
		t.Error("IsSynced = false after MarkSynced, want true")
	}
}

func TestIsSynced_UnknownID(t *testing.T) {
	s := openTestStore(t)
	synced, err := s.IsSynced(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if synced {
		t.Error("IsSynced = true for unknown id, want false")
	}
}

func TestMarkSynced_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := time.Date(2026, 2, 17, 14, 30, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	if err := s.MarkSynced(ctx, "link-001", first); err != nil {
		t.Fatalf("first MarkSynced: %v", err)
	}
	// Re-marking must be a no-op, not an error, and keeps the original time.
	if err := s.MarkSynced(ctx, "link-001", second); err != nil {
		t.Fatalf("second MarkSynced: %v", err)
	}

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Count != 1 {
		t.Errorf("Count = %d after double mark, want 1", sum.Count)
	}
	if !sum.Newest.Equal(first) {
		t.Errorf("Newest = %v, want original timestamp %v", sum.Newest, first)
	}
}

func TestReset(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		if err := s.MarkSynced(ctx, id, now); err != nil {
			t.Fatalf("MarkSynced(%q): %v", id, err)
		}
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	for _, id := range ids {
		synced, err := s.IsSynced(ctx, id)
		if err != nil {
			t.Fatalf("IsSynced(%q) after reset: %v", id, err)
		}
		if synced {
			t.Errorf("IsSynced(%q) = true after reset, want false", id)
		}
	}

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary after reset: %v", err)
	}
	if sum.Count != 0 {
		t.Errorf("Count = %d after reset, want 0", sum.Count)
	}
}

func TestReset_EmptyStore(t *testing.T) {
	s := openTestStore(t)
	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("Reset on empty store: %v", err)
	}
}

func TestSummary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	t1 := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	t3 := time.Date(2026, 1, 3, 8, 0, 0, 0, time.UTC)

	// Insert out of chronological order; MIN/MAX must not care.
	for _, m := range []struct {
		id string
		ts time.Time
	}{
		{"mid", t2},
		{"new", t3},
		{"old", t1},
	} {
		if err := s.MarkSynced(ctx, m.id, m.ts); err != nil {
			t.Fatalf("MarkSynced(%q): %v", m.id, err)
		}
	}

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Count != 3 {
		t.Errorf("Count = %d, want 3", sum.Count)
	}
	if !sum.Oldest.Equal(t1) {
		t.Errorf("Oldest = %v, want %v", sum.Oldest, t1)
	}
	if !sum.Newest.Equal(t3) {
		t.Errorf("Newest = %v, want %v", sum.Newest, t3)
	}
}

func TestSummary_EmptyStore(t *testing.T) {
	s := openTestStore(t)
	sum, err := s.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Count != 0 {
		t.Errorf("Count = %d, want 0", sum.Count)
	}
	if !sum.Oldest.IsZero() || !sum.Newest.IsZero() {
		t.Errorf("expected zero Oldest/Newest for empty store, got %v / %v", sum.Oldest, sum.Newest)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	// A mark that has returned must be visible to a fresh process. That is
	// what bounds crash loss to the single in-flight link.
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := s1.MarkSynced(ctx, "link-001", time.Now().UTC()); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer func() { _ = s2.Close() }()

	synced, err := s2.IsSynced(ctx, "link-001")
	if err != nil {
		t.Fatalf("IsSynced after reopen: %v", err)
	}
	if !synced {
		t.Error("mark did not survive reopen")
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Sub-millisecond precision to exercise the nanosecond layout.
	ts := time.Date(2026, 2, 17, 14, 30, 0, 123456789, time.UTC)
	if err := s.MarkSynced(ctx, "ts-test", ts); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !sum.Oldest.Equal(ts) {
		t.Errorf("Oldest = %v, want %v", sum.Oldest, ts)
	}
	if !sum.Newest.Equal(ts) {
		t.Errorf("Newest = %v, want %v", sum.Newest, ts)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	if path == "" {
		t.Error("DefaultDBPath returned empty string")
	}
}
