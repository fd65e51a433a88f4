package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreWrite(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "images"))
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}

	path, err := store.Write(context.Background(), "2026/fox.png", []byte("png"))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if path != filepath.Join(store.BasePath(), "2026", "fox.png") {
		t.Fatalf("path mismatch: %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "png" {
		t.Fatalf("read back %q, %v", data, err)
	}

	if _, err := store.Write(context.Background(), "2026/fox.png", []byte("other")); err == nil {
		t.Fatalf("expected error when overwriting an existing file")
	}
}

func TestFileStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	for _, key := range []string{"", "  ", "..", "../outside.png", "a/../../outside.png", "."} {
		if _, err := store.Write(context.Background(), key, []byte("x")); err == nil {
			t.Fatalf("Write(%q) succeeded, want error", key)
		}
	}
	if got, err := sanitizeKey("/abs/fox.png"); err != nil || got != "abs/fox.png" {
		t.Fatalf("sanitizeKey(/abs/fox.png) = %q, %v", got, err)
	}
}

func TestFileStoreHonorsContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Write(ctx, "fox.png", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("Write with canceled context = %v, want context.Canceled", err)
	}
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	if _, err := NewFileStore(" "); err == nil {
		t.Fatalf("expected error for blank base path")
	}
}
