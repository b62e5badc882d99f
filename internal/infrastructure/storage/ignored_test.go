package storage

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func testIgnoreStore(t *testing.T) *IgnoreStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "ignored.json")
	return NewIgnoreStore(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestIgnoreStoreMissingFile(t *testing.T) {
	t.Parallel()

	store := testIgnoreStore(t)
	ignored, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ignored) != 0 {
		t.Fatalf("expected empty map, got %v", ignored)
	}
}

func TestIgnoreStoreAddRemove(t *testing.T) {
	t.Parallel()

	store := testIgnoreStore(t)

	added, err := store.Add("456", "Worksheet Ch.5")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !added {
		t.Fatal("first Add should report true")
	}

	added, err = store.Add("456", "Worksheet Ch.5")
	if err != nil {
		t.Fatalf("Add twice: %v", err)
	}
	if added {
		t.Fatal("second Add should report false")
	}

	ignored, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ignored["456"] != "Worksheet Ch.5" {
		t.Fatalf("loaded %v", ignored)
	}

	removed, err := store.Remove("456")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Fatal("Remove should report true")
	}

	removed, err = store.Remove("456")
	if err != nil {
		t.Fatalf("Remove twice: %v", err)
	}
	if removed {
		t.Fatal("second Remove should report false")
	}
}

func TestIgnoreStoreSharedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ignored.json")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	writer := NewIgnoreStore(path, logger)
	if _, err := writer.Add("456", "Worksheet Ch.5"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// The notifier and the bot listener open the same file independently.
	reader := NewIgnoreStore(path, logger)
	ignored, err := reader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ignored["456"] != "Worksheet Ch.5" {
		t.Fatalf("loaded %v", ignored)
	}
}
