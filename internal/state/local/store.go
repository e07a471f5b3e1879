// Package local persists monitor state as a JSON file on disk.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/theresaanna/san-x-monitor/internal/monitor"
	"github.com/theresaanna/san-x-monitor/internal/state"
)

const backend = "local"

// Config captures the parameters for the file-backed state store.
type Config struct {
	// Path is the state file, relative to the working directory unless absolute.
	Path string `mapstructure:"path" yaml:"path"`
}

// Store reads and writes a single JSON state file.
type Store struct {
	path string
}

// New creates the store, making sure the parent directory exists.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("state path is required")
	}

	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state path: %w", err)
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat state directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("state directory path is not a directory")
	}

	return &Store{path: path}, nil
}

// Path returns the absolute state file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state file. A missing file yields monitor.ErrNoState.
func (s *Store) Load(_ context.Context) (monitor.State, error) {
	// #nosec G304 -- the path comes from operator configuration.
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return monitor.State{}, monitor.ErrNoState
		}
		return monitor.State{}, &monitor.PersistenceError{Op: "load", Backend: backend, Err: err}
	}
	st, err := state.Decode(data)
	if err != nil {
		return monitor.State{}, &monitor.PersistenceError{Op: "load", Backend: backend, Err: err}
	}
	return st, nil
}

// Save replaces the state file atomically: the record is written to a
// temporary file in the same directory, synced, then renamed into place.
func (s *Store) Save(_ context.Context, st monitor.State) error {
	data, err := state.Encode(st)
	if err != nil {
		return &monitor.PersistenceError{Op: "save", Backend: backend, Err: err}
	}
	if err := writeAtomic(s.path, data); err != nil {
		return &monitor.PersistenceError{Op: "save", Backend: backend, Err: err}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
