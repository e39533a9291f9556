// Package audit records what every enrichment run did: which adapters
// ran, how the company was matched and what score came out. Events are
// appended to a store for compliance queries and published best-effort to
// Kafka for downstream consumers. Audit failure never fails an enrichment.
package audit

import (
	"time"

	"github.com/google/uuid"

	id "firmus/pkg/domain"
)

// Event is one enrichment run's audit trail entry. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID    `json:"id"`
	CompanyID id.CompanyID `json:"company_id"`
	TenantID  id.TenantID  `json:"tenant_id"`
	RequestID string       `json:"request_id,omitempty"`

	Status          string   `json:"status"`
	Reason          string   `json:"reason,omitempty"`
	AdaptersRun     []string `json:"adapters_run,omitempty"`
	MatchMethod     string   `json:"match_method,omitempty"`
	MatchConfidence float64  `json:"match_confidence,omitempty"`

	// CredibilityScore is set only for enriched outcomes.
	CredibilityScore *int `json:"credibility_score,omitempty"`

	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
