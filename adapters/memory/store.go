// Package memory provides a map-backed KeyValueStore for tests and ephemeral runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"sensetrack/domain/core"
	"sensetrack/ports"
)

// Store is a concurrency-safe in-memory key/value store
type Store struct {
	mu   sync.RWMutex
	data map[core.StorageKey][]byte
}

var _ ports.KeyValueStore = (*Store)(nil)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{data: make(map[core.StorageKey][]byte)}
}

func (s *Store) Get(ctx context.Context, key core.StorageKey) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, core.NewNotFoundError(core.ErrNotFound, key.String())
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Set(ctx context.Context, key core.StorageKey, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Remove(ctx context.Context, key core.StorageKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]core.StorageKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]core.StorageKey, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}
