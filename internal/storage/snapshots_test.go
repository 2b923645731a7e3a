package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestSnapshots(t *testing.T) *SQLiteSnapshots {
	t.Helper()
	s, err := NewSQLiteSnapshots(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("open snapshots: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadDelete(t *testing.T) {
	s := openTestSnapshots(t)
	ctx := context.Background()

	if payload, err := s.Load(ctx, "missing"); err != nil || payload != nil {
		t.Fatalf("missing key: payload=%v err=%v, want nil/nil", payload, err)
	}

	if err := s.Save(ctx, "records", []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	payload, err := s.Load(ctx, "records")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(payload) != `[{"id":"a"}]` {
		t.Fatalf("payload = %s", payload)
	}

	// Save replaces the whole payload.
	if err := s.Save(ctx, "records", []byte(`[]`)); err != nil {
		t.Fatalf("resave: %v", err)
	}
	payload, _ = s.Load(ctx, "records")
	if string(payload) != `[]` {
		t.Fatalf("payload after resave = %s", payload)
	}

	if err := s.Delete(ctx, "records"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if payload, _ := s.Load(ctx, "records"); payload != nil {
		t.Fatalf("payload survived delete: %s", payload)
	}

	// Deleting a missing key is not an error.
	if err := s.Delete(ctx, "records"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshots.db")
	ctx := context.Background()

	s, err := NewSQLiteSnapshots(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Save(ctx, "occurrences", []byte(`[{"id":"o1"}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening runs migrations again (no-op) and sees the stored payload.
	s2, err := NewSQLiteSnapshots(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	payload, err := s2.Load(ctx, "occurrences")
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if string(payload) != `[{"id":"o1"}]` {
		t.Fatalf("payload = %s", payload)
	}
}
