package memory

import (
	"context"
	"sync"

	id "claimdesk/pkg/domain"
	audit "claimdesk/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.ClaimID][]audit.Event
	total  int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.ClaimID][]audit.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ClaimID] = append(s.events[event.ClaimID], event)
	s.total++
	return nil
}

// ListByClaim returns a claim's events in emission order.
func (s *InMemoryStore) ListByClaim(_ context.Context, claimID id.ClaimID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[claimID]...), nil
}

// Len returns the number of events held across all claims.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}
