// Package memory is an in-memory audit sink for tests and local runs.
package memory

import (
	"context"
	"sync"

	"marlin/pkg/platform/audit"
)

// InMemoryStore collects audit events in memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Write implements publisher.Sink.
func (s *InMemoryStore) Write(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything written so far.
func (s *InMemoryStore) Events() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}

// BySession filters events for one session.
func (s *InMemoryStore) BySession(sessionID string) []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}
