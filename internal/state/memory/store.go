// Package memory keeps monitor state in process memory for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/theresaanna/san-x-monitor/internal/monitor"
)

// Store holds at most one state record.
type Store struct {
	mu    sync.RWMutex
	state *monitor.State
	saves int
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// NewWithState creates a store pre-loaded with st.
func NewWithState(st monitor.State) *Store {
	return &Store{state: &st}
}

// Load returns the stored record or monitor.ErrNoState.
func (s *Store) Load(_ context.Context) (monitor.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return monitor.State{}, monitor.ErrNoState
	}
	return *s.state, nil
}

// Save replaces the stored record.
func (s *Store) Save(_ context.Context, st monitor.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &st
	s.saves++
	return nil
}

// Saves reports how many times Save was called.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
