package imagegen

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Workspace is a freshly created directory owned by a single generation
// attempt. Callers defer Close right after NewWorkspace succeeds.
type Workspace struct {
	dir string

	once sync.Once
	err  error
}

// NewWorkspace creates a new directory under parent, or under the OS temp
// directory when parent is empty.
func NewWorkspace(parent string) (*Workspace, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("workspace: ensure parent: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, "mflux-*")
	if err != nil {
		return nil, fmt.Errorf("workspace: create: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

func (w *Workspace) Dir() string { return w.dir }

// OutputPath is where the tool must write its artifact.
func (w *Workspace) OutputPath() string {
	return filepath.Join(w.dir, OutputFileName)
}

// Close removes the workspace and everything in it. It is safe to call more
// than once; later calls return the first result.
func (w *Workspace) Close() error {
	w.once.Do(func() {
		if err := os.RemoveAll(w.dir); err != nil {
			w.err = fmt.Errorf("workspace: remove %s: %w", w.dir, err)
		}
	})
	return w.err
}
