// Package store persists legal profiles and the registry lookup audit trail.
// Both implementations satisfy ports.ProfileStore.
package store

import (
	"context"
	"sync"

	"firmus/internal/registry/models"
	id "firmus/pkg/domain"
	"firmus/pkg/platform/sentinel"
)

// InMemory is a map-backed profile store for unit tests and local development.
// Profiles are copied on write and read so callers can mutate their own value
// without racing the store.
type InMemory struct {
	mu       sync.RWMutex
	profiles map[id.CompanyID]models.LegalProfile
	lookups  []models.RegistryLookup
}

// NewInMemory creates an empty in-memory profile store.
func NewInMemory() *InMemory {
	return &InMemory{
		profiles: make(map[id.CompanyID]models.LegalProfile),
	}
}

// Upsert stores the profile keyed by company ID, replacing any previous version.
func (m *InMemory) Upsert(_ context.Context, profile *models.LegalProfile) error {
	if profile == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.CompanyID] = *profile
	return nil
}

// GetByCompany retrieves the stored profile for a company.
// Returns sentinel.ErrNotFound if the company has never been enriched.
func (m *InMemory) GetByCompany(_ context.Context, companyID id.CompanyID) (*models.LegalProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profile, ok := m.profiles[companyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &profile, nil
}

// AppendLookup records one adapter exchange in insertion order.
func (m *InMemory) AppendLookup(_ context.Context, lookup *models.RegistryLookup) error {
	if lookup == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, *lookup)
	return nil
}

// Lookups returns a copy of the recorded audit trail, oldest first.
// Test helper; not part of the ProfileStore port.
func (m *InMemory) Lookups() []models.RegistryLookup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.RegistryLookup, len(m.lookups))
	copy(out, m.lookups)
	return out
}
