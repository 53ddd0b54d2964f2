// Package memory is an in-process storage.Store, used by tests and by the
// default development backend.
package memory

import (
	"context"
	"slices"
	"sync"

	"mamaboss/internal/storage"
)

type Store struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: make(map[string]map[string][]byte)}
}

func (s *Store) Get(_ context.Context, scope, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[scope][key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return slices.Clone(v), nil
}

func (s *Store) Set(_ context.Context, scope, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.data[scope]
	if !ok {
		docs = make(map[string][]byte)
		s.data[scope] = docs
	}
	docs[key] = slices.Clone(value)
	return nil
}

func (s *Store) Remove(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[scope], key)
	return nil
}

func (s *Store) Clear(_ context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, scope)
	return nil
}

func (s *Store) Keys(_ context.Context, scope string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data[scope]))
	for k := range s.data[scope] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *Store) Scopes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scopes := make([]string, 0, len(s.data))
	for sc, docs := range s.data {
		if sc != storage.GlobalScope && len(docs) > 0 {
			scopes = append(scopes, sc)
		}
	}
	slices.Sort(scopes)
	return scopes, nil
}

func (s *Store) Close() error { return nil }
