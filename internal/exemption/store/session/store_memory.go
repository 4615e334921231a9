package session

import (
	"context"
	"sync"
)

// InMemoryStore keeps the initial implementation lightweight and testable.
// It intentionally favors clarity over performance.
type InMemoryStore struct {
	mu        sync.RWMutex
	committed map[string]map[string][]byte
	staged    map[string]map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		committed: make(map[string]map[string][]byte),
		staged:    make(map[string]map[string][]byte),
	}
}

func (s *InMemoryStore) Get(_ context.Context, sessionID, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pending, ok := s.staged[sessionID]; ok {
		if v, ok := pending[key]; ok {
			return clone(v), true, nil
		}
	}
	if values, ok := s.committed[sessionID]; ok {
		if v, ok := values[key]; ok {
			return clone(v), true, nil
		}
	}
	return nil, false, nil
}

func (s *InMemoryStore) Set(_ context.Context, sessionID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.staged[sessionID]
	if !ok {
		pending = make(map[string][]byte)
		s.staged[sessionID] = pending
	}
	pending[key] = clone(value)
	return nil
}

func (s *InMemoryStore) Commit(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.staged[sessionID]
	if !ok {
		return nil
	}
	values, ok := s.committed[sessionID]
	if !ok {
		values = make(map[string][]byte)
		s.committed[sessionID] = values
	}
	for k, v := range pending {
		values[k] = v
	}
	delete(s.staged, sessionID)
	return nil
}

func (s *InMemoryStore) Destroy(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.staged, sessionID)
	delete(s.committed, sessionID)
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
