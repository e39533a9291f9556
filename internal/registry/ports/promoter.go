package ports

//go:generate mockgen -source=promoter.go -destination=mocks/promoter.go -package=mocks

import (
	"context"

	"firmus/internal/registry/models"
)

// CompanyPromoter defines the interface for pushing the promoted subset
// onto the owning company aggregate
// This is a hexagonal architecture port - the registry never writes company
// rows directly, whoever owns them implements it.
//
// This keeps the registry service independent of:
// - The company table layout
// - Cross-service transport (in-process, HTTP, queue)
type CompanyPromoter interface {
	// PromoteLegalFields copies the summary subset onto the company
	// Called after every successful enrichment, must be idempotent
	PromoteLegalFields(ctx context.Context, fields models.PromotedFields) error
}
