// Package ports declares the interfaces the registry service depends on.
package ports

//go:generate mockgen -source=store.go -destination=mocks/store.go -package=mocks

import (
	"context"

	"firmus/internal/registry/models"
	id "firmus/pkg/domain"
)

// ProfileStore defines the persistence interface for legal profiles
// This is a hexagonal architecture port - the domain layer depends on this interface,
// and adapters (Postgres, in-memory, mock) implement it.
//
// This keeps the registry service independent of:
// - SQL dialects and driver details
// - JSONB column layout
// - Connection pooling and migrations
type ProfileStore interface {
	// Upsert writes the profile keyed by profile.CompanyID
	// One row per company, last writer wins; re-running enrichment updates in place
	Upsert(ctx context.Context, profile *models.LegalProfile) error

	// GetByCompany returns the stored profile for a company
	// Returns sentinel.ErrNotFound if the company has never been enriched
	GetByCompany(ctx context.Context, companyID id.CompanyID) (*models.LegalProfile, error)

	// AppendLookup records one raw adapter exchange for audit and replay
	// Append-only; rows are never updated
	AppendLookup(ctx context.Context, lookup *models.RegistryLookup) error
}
