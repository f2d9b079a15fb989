package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("open store failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := store.Record(ctx, Entry{
		ImagePath:  "/images/debian.iso",
		DevicePath: "/dev/sdb",
		DeviceName: "SanDisk Cruzer",
		Bytes:      658505728,
		Verified:   true,
		StartedAt:  base,
		FinishedAt: base.Add(90 * time.Second),
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated ID")
	}

	_, err = store.Record(ctx, Entry{
		ImagePath:  "/images/arch.iso",
		DevicePath: "/dev/sdc",
		StartedAt:  base.Add(time.Hour),
		FinishedAt: base.Add(time.Hour + time.Second),
		Error:      "verification failed: data mismatch detected",
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}

	entries, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	newest, oldest := entries[0], entries[1]
	if newest.ImagePath != "/images/arch.iso" || newest.Succeeded() {
		t.Errorf("unexpected newest entry: %+v", newest)
	}
	if oldest.ID != first.ID || !oldest.Verified || oldest.Bytes != 658505728 {
		t.Errorf("unexpected oldest entry: %+v", oldest)
	}
	if !oldest.StartedAt.Equal(base) || oldest.Duration() != 90*time.Second {
		t.Errorf("timestamps not preserved: %v -> %v", oldest.StartedAt, oldest.FinishedAt)
	}
}

func TestStore_ListLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		if _, err := store.Record(ctx, Entry{ImagePath: "img", DevicePath: "/dev/sdb", StartedAt: at, FinishedAt: at}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := store.List(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if !entries[0].StartedAt.After(entries[2].StartedAt) {
		t.Error("entries not ordered newest first")
	}
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	if _, err := store.Record(ctx, Entry{ImagePath: "a.img", DevicePath: "/dev/sdb", StartedAt: now, FinishedAt: now}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()

	entries, err := store.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ImagePath != "a.img" {
		t.Errorf("unexpected entries after reopen: %+v", entries)
	}
}

func TestDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	if got, want := DefaultPath(), filepath.Join(dir, "imgflash", "history.db"); got != want {
		t.Errorf("DefaultPath() = %s, want %s", got, want)
	}

	if _, err := os.Stat(filepath.Join(dir, "imgflash")); !os.IsNotExist(err) {
		t.Error("DefaultPath should not create directories")
	}
}
