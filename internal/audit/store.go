package audit

import (
	"context"
	"sync"

	id "firmus/pkg/domain"
)

// Store persists audit events. Append-only; rows are never updated.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCompany(ctx context.Context, companyID id.CompanyID) ([]Event, error)
}

// MemoryStore is a slice-backed audit store for unit tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStore creates an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append records the event in insertion order.
func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByCompany returns the company's events, oldest first.
func (s *MemoryStore) ListByCompany(_ context.Context, companyID id.CompanyID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Events returns a copy of everything recorded. Test helper.
func (s *MemoryStore) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
