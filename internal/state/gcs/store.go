// Package gcs persists monitor state as a JSON object in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/theresaanna/san-x-monitor/internal/monitor"
	"github.com/theresaanna/san-x-monitor/internal/state"
)

const backend = "gcs"

// Config captures the bucket and object holding the state record.
type Config struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	Object string `mapstructure:"object" yaml:"object"`
}

// Store reads and writes the state object.
type Store struct {
	client *storage.Client
	bucket string
	object string
}

// New creates a GCS-backed state store.
func New(client *storage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if strings.TrimSpace(cfg.Object) == "" {
		return nil, fmt.Errorf("object name is required")
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		object: cfg.Object,
	}, nil
}

// Load downloads and decodes the state object. A missing object yields
// monitor.ErrNoState.
func (s *Store) Load(ctx context.Context) (monitor.State, error) {
	reader, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return monitor.State{}, monitor.ErrNoState
		}
		return monitor.State{}, &monitor.PersistenceError{Op: "load", Backend: backend, Err: err}
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return monitor.State{}, &monitor.PersistenceError{
			Op: "load", Backend: backend, Err: fmt.Errorf("read object %s: %w", s.object, err),
		}
	}
	st, err := state.Decode(data)
	if err != nil {
		return monitor.State{}, &monitor.PersistenceError{Op: "load", Backend: backend, Err: err}
	}
	return st, nil
}

// Save uploads the encoded state. GCS object writes are atomic: readers see
// either the previous generation or the new one.
func (s *Store) Save(ctx context.Context, st monitor.State) error {
	data, err := state.Encode(st)
	if err != nil {
		return &monitor.PersistenceError{Op: "save", Backend: backend, Err: err}
	}

	writer := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	writer.ContentType = "application/json"
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			err = fmt.Errorf("%w (close writer: %v)", err, closeErr)
		}
		return &monitor.PersistenceError{
			Op: "save", Backend: backend, Err: fmt.Errorf("write object %s: %w", s.object, err),
		}
	}
	if err := writer.Close(); err != nil {
		return &monitor.PersistenceError{
			Op: "save", Backend: backend, Err: fmt.Errorf("close writer for object %s: %w", s.object, err),
		}
	}
	return nil
}
