package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"firmus/internal/registry/models"
	id "firmus/pkg/domain"
	"firmus/pkg/platform/sentinel"
	txcontext "firmus/pkg/platform/tx"
)

// Clock supplies the current time. Injected for testability.
type Clock func() time.Time

// PostgresStore persists legal profiles and lookup audit rows in PostgreSQL.
// Nested collections (nace codes, directors, insolvency details, credibility
// factors, source data) live in JSONB columns; everything promoted or
// filterable is a plain column.
type PostgresStore struct {
	db    *sql.DB
	clock Clock
}

// PostgresOption configures a PostgresStore instance.
type PostgresOption func(*PostgresStore)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) PostgresOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed profile store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer returns the context transaction when one is active, so the service
// can group the profile upsert with its lookup rows atomically.
func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Upsert writes the profile keyed by company ID. One row per company; a
// second enrichment run for the same company updates the row in place.
// The statement is atomic, so concurrent runs settle on last writer wins
// without ever exposing a half-written row.
func (s *PostgresStore) Upsert(ctx context.Context, profile *models.LegalProfile) error {
	if profile == nil {
		return fmt.Errorf("upsert profile: %w", sentinel.ErrInvalidState)
	}

	naceJSON, err := json.Marshal(profile.NACECodes)
	if err != nil {
		return fmt.Errorf("marshal nace codes: %w", err)
	}
	directorsJSON, err := json.Marshal(profile.Directors)
	if err != nil {
		return fmt.Errorf("marshal directors: %w", err)
	}
	insolvencyJSON, err := json.Marshal(profile.InsolvencyDetails)
	if err != nil {
		return fmt.Errorf("marshal insolvency details: %w", err)
	}
	factorsJSON, err := json.Marshal(profile.CredibilityFactors)
	if err != nil {
		return fmt.Errorf("marshal credibility factors: %w", err)
	}
	sourceJSON, err := json.Marshal(profile.SourceData)
	if err != nil {
		return fmt.Errorf("marshal source data: %w", err)
	}

	query := `
		INSERT INTO legal_profiles (
			company_id, tenant_id, registration_id, tax_id, official_name,
			legal_form, legal_form_name, date_established, date_dissolved,
			registered_address, city, postal_code, nace_codes,
			registration_court, registration_number, registered_capital,
			directors, registration_status, country, insolvency_flag,
			insolvency_details, active_insolvency_count, match_confidence,
			match_method, credibility_score, credibility_factors, source_data,
			enriched_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27,
			$28, $29
		)
		ON CONFLICT (company_id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			registration_id = EXCLUDED.registration_id,
			tax_id = EXCLUDED.tax_id,
			official_name = EXCLUDED.official_name,
			legal_form = EXCLUDED.legal_form,
			legal_form_name = EXCLUDED.legal_form_name,
			date_established = EXCLUDED.date_established,
			date_dissolved = EXCLUDED.date_dissolved,
			registered_address = EXCLUDED.registered_address,
			city = EXCLUDED.city,
			postal_code = EXCLUDED.postal_code,
			nace_codes = EXCLUDED.nace_codes,
			registration_court = EXCLUDED.registration_court,
			registration_number = EXCLUDED.registration_number,
			registered_capital = EXCLUDED.registered_capital,
			directors = EXCLUDED.directors,
			registration_status = EXCLUDED.registration_status,
			country = EXCLUDED.country,
			insolvency_flag = EXCLUDED.insolvency_flag,
			insolvency_details = EXCLUDED.insolvency_details,
			active_insolvency_count = EXCLUDED.active_insolvency_count,
			match_confidence = EXCLUDED.match_confidence,
			match_method = EXCLUDED.match_method,
			credibility_score = EXCLUDED.credibility_score,
			credibility_factors = EXCLUDED.credibility_factors,
			source_data = EXCLUDED.source_data,
			enriched_at = EXCLUDED.enriched_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(profile.CompanyID),
		uuid.UUID(profile.TenantID),
		profile.RegistrationID,
		profile.TaxID,
		profile.OfficialName,
		profile.LegalForm,
		profile.LegalFormName,
		profile.DateEstablished,
		profile.DateDissolved,
		profile.RegisteredAddress,
		profile.City,
		profile.PostalCode,
		naceJSON,
		profile.RegistrationCourt,
		profile.RegistrationNumber,
		profile.RegisteredCapital,
		directorsJSON,
		string(profile.RegistrationStatus),
		string(profile.Country),
		profile.InsolvencyFlag,
		insolvencyJSON,
		profile.ActiveInsolvencyCount,
		profile.MatchConfidence,
		string(profile.MatchMethod),
		profile.CredibilityScore,
		factorsJSON,
		sourceJSON,
		profile.EnrichedAt,
		s.clock(),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetByCompany retrieves the stored profile for a company.
// Returns sentinel.ErrNotFound if the company has never been enriched.
func (s *PostgresStore) GetByCompany(ctx context.Context, companyID id.CompanyID) (*models.LegalProfile, error) {
	query := `
		SELECT company_id, tenant_id, registration_id, tax_id, official_name,
			legal_form, legal_form_name, date_established, date_dissolved,
			registered_address, city, postal_code, nace_codes,
			registration_court, registration_number, registered_capital,
			directors, registration_status, country, insolvency_flag,
			insolvency_details, active_insolvency_count, match_confidence,
			match_method, credibility_score, credibility_factors, source_data,
			enriched_at
		FROM legal_profiles
		WHERE company_id = $1
	`

	var (
		profile        models.LegalProfile
		companyUUID    uuid.UUID
		tenantUUID     uuid.UUID
		status         string
		country        string
		method         string
		naceJSON       []byte
		directorsJSON  []byte
		insolvencyJSON []byte
		factorsJSON    []byte
		sourceJSON     []byte
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(companyID)).Scan(
		&companyUUID,
		&tenantUUID,
		&profile.RegistrationID,
		&profile.TaxID,
		&profile.OfficialName,
		&profile.LegalForm,
		&profile.LegalFormName,
		&profile.DateEstablished,
		&profile.DateDissolved,
		&profile.RegisteredAddress,
		&profile.City,
		&profile.PostalCode,
		&naceJSON,
		&profile.RegistrationCourt,
		&profile.RegistrationNumber,
		&profile.RegisteredCapital,
		&directorsJSON,
		&status,
		&country,
		&profile.InsolvencyFlag,
		&insolvencyJSON,
		&profile.ActiveInsolvencyCount,
		&profile.MatchConfidence,
		&method,
		&profile.CredibilityScore,
		&factorsJSON,
		&sourceJSON,
		&profile.EnrichedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}

	profile.CompanyID = id.CompanyID(companyUUID)
	profile.TenantID = id.TenantID(tenantUUID)
	profile.RegistrationStatus = models.RegistrationStatus(status)
	profile.Country = models.Country(country)
	profile.MatchMethod = models.MatchMethod(method)

	if err := unmarshalColumn(naceJSON, &profile.NACECodes, "nace codes"); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(directorsJSON, &profile.Directors, "directors"); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(insolvencyJSON, &profile.InsolvencyDetails, "insolvency details"); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(factorsJSON, &profile.CredibilityFactors, "credibility factors"); err != nil {
		return nil, err
	}
	if err := unmarshalColumn(sourceJSON, &profile.SourceData, "source data"); err != nil {
		return nil, err
	}
	return &profile, nil
}

// AppendLookup records one raw adapter exchange. Rows are append-only.
func (s *PostgresStore) AppendLookup(ctx context.Context, lookup *models.RegistryLookup) error {
	if lookup == nil {
		return fmt.Errorf("append lookup: %w", sentinel.ErrInvalidState)
	}

	lookupID := lookup.ID
	if lookupID.IsNil() {
		lookupID = id.NewLookupID()
	}
	checkedAt := lookup.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = s.clock()
	}
	payload := []byte(lookup.Payload)
	if len(payload) == 0 {
		payload = nil
	}

	query := `
		INSERT INTO registry_lookups (
			id, company_id, tenant_id, adapter, operation, query, outcome,
			payload, checked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(lookupID),
		uuid.UUID(lookup.CompanyID),
		uuid.UUID(lookup.TenantID),
		lookup.Adapter,
		lookup.Operation,
		lookup.Query,
		lookup.Outcome,
		payload,
		checkedAt,
	)
	if err != nil {
		return fmt.Errorf("append lookup: %w", err)
	}
	return nil
}

// unmarshalColumn decodes a JSONB column into dst. NULL and JSON null
// columns leave dst at its zero value.
func unmarshalColumn(b []byte, dst any, what string) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return nil
}
