package netident

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	store := NewFileStore(dir)

	if _, err := store.Read(ctx, "record.txt"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("Read() before write error = %v, want ErrEntryNotFound", err)
	}

	if err := store.Write(ctx, "record.txt", []byte("first")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := store.Write(ctx, "record.txt", []byte("second")); err != nil {
		t.Fatalf("Write() overwrite error = %v", err)
	}

	got, err := store.Read(ctx, "record.txt")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("Read() = %q, want %q", got, "second")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("cache dir holds %d entries, want 1 (no temp files)", len(entries))
	}

	if err := store.Delete(ctx, "record.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "record.txt"); err != nil {
		t.Fatalf("Delete() of missing record error = %v", err)
	}
	if _, err := store.Read(ctx, "record.txt"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("Read() after delete error = %v, want ErrEntryNotFound", err)
	}
}

func TestFileStore_RejectsUnsafeNames(t *testing.T) {
	store := NewFileStore(t.TempDir())

	for _, name := range []string{"", ".", "..", "../escape", `a\b`, "dir/file"} {
		if err := store.Write(context.Background(), name, []byte("x")); err == nil {
			t.Fatalf("Write(%q) expected error", name)
		}
	}
}

func TestFileStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewFileStore(t.TempDir())
	if _, err := store.Read(ctx, "record.txt"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Read() error = %v, want context.Canceled", err)
	}
}

func TestFileStore_DefaultDir(t *testing.T) {
	store := NewFileStore("")
	if store.Dir() != DefaultCacheDir() {
		t.Fatalf("Dir() = %q, want %q", store.Dir(), DefaultCacheDir())
	}
	if filepath.Base(store.Dir()) != "network" {
		t.Fatalf("Dir() = %q, want a network subdirectory", store.Dir())
	}
}
