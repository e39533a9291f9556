package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "firmus/pkg/domain"
)

// PostgresStore persists audit events in the enrichment_audit table.
// adapters_run is JSONB so the adapter list stays queryable.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts one event row.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	adaptersJSON, err := json.Marshal(event.AdaptersRun)
	if err != nil {
		return fmt.Errorf("marshal adapters run: %w", err)
	}

	var score sql.NullInt64
	if event.CredibilityScore != nil {
		score = sql.NullInt64{Int64: int64(*event.CredibilityScore), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO enrichment_audit (
			id, company_id, tenant_id, request_id, status, reason,
			adapters_run, match_method, match_confidence,
			credibility_score, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		event.ID, uuid.UUID(event.CompanyID), uuid.UUID(event.TenantID),
		event.RequestID, event.Status, event.Reason,
		adaptersJSON, event.MatchMethod, event.MatchConfidence,
		score, event.DurationMS, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByCompany returns the company's events, oldest first.
func (s *PostgresStore) ListByCompany(ctx context.Context, companyID id.CompanyID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, tenant_id, request_id, status, reason,
		       adapters_run, match_method, match_confidence,
		       credibility_score, duration_ms, created_at
		FROM enrichment_audit
		WHERE company_id = $1
		ORDER BY created_at ASC`,
		uuid.UUID(companyID),
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var (
			e            Event
			eventID      uuid.UUID
			company      uuid.UUID
			tenant       uuid.UUID
			adaptersJSON []byte
			score        sql.NullInt64
		)
		if err := rows.Scan(&eventID, &company, &tenant, &e.RequestID, &e.Status, &e.Reason,
			&adaptersJSON, &e.MatchMethod, &e.MatchConfidence,
			&score, &e.DurationMS, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.ID = eventID
		e.CompanyID = id.CompanyID(company)
		e.TenantID = id.TenantID(tenant)
		if len(adaptersJSON) > 0 {
			if err := json.Unmarshal(adaptersJSON, &e.AdaptersRun); err != nil {
				return nil, fmt.Errorf("unmarshal adapters run: %w", err)
			}
		}
		if score.Valid {
			v := int(score.Int64)
			e.CredibilityScore = &v
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
