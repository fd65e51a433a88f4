package imagegen

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWorkspaceLifecycle(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "nested", "work")

	ws, err := NewWorkspace(parent)
	if err != nil {
		t.Fatalf("NewWorkspace returned error: %v", err)
	}
	if filepath.Dir(ws.Dir()) != parent {
		t.Fatalf("workspace %q not created under %q", ws.Dir(), parent)
	}
	if filepath.Dir(ws.OutputPath()) != ws.Dir() || filepath.Base(ws.OutputPath()) != "output.png" {
		t.Fatalf("unexpected output path %q", ws.OutputPath())
	}
	if err := os.WriteFile(ws.OutputPath(), []byte("png"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	if err := ws.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Fatalf("workspace still present after Close: %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
}

func TestWorkspacesAreDistinct(t *testing.T) {
	parent := t.TempDir()
	a, err := NewWorkspace(parent)
	if err != nil {
		t.Fatalf("NewWorkspace returned error: %v", err)
	}
	defer a.Close()
	b, err := NewWorkspace(parent)
	if err != nil {
		t.Fatalf("NewWorkspace returned error: %v", err)
	}
	defer b.Close()

	if a.Dir() == b.Dir() {
		t.Fatalf("expected distinct directories, both were %q", a.Dir())
	}
}

func TestWorkspaceDefaultsToTempDir(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	ws, err := NewWorkspace("")
	if err != nil {
		t.Fatalf("NewWorkspace returned error: %v", err)
	}
	defer ws.Close()
	if filepath.Dir(ws.Dir()) != filepath.Clean(os.TempDir()) {
		t.Fatalf("workspace %q not under %q", ws.Dir(), os.TempDir())
	}
}
