// Package memory provides a process-lifetime key-value store used as the session slot.
package memory

import (
	"context"
	"sync"
)

// Store is a ports.KeyValueStore that forgets everything when the process exits.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// New creates an empty session store.
func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

// Get implements ports.KeyValueStore. The returned slice is a copy.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}

	return append([]byte(nil), v...), true, nil
}

// Set implements ports.KeyValueStore.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.values[key] = append([]byte(nil), value...)
	s.mu.Unlock()

	return nil
}

// Delete implements ports.KeyValueStore.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()

	return nil
}
