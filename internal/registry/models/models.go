// Package models defines the shared domain types for registry enrichment.
//
// RegistryRecord is one adapter's standardized view of a company and is
// immutable once an adapter returns it. LegalProfile is the per-company
// aggregate assembled by the orchestrator from one primary record plus any
// supplementary overlays. Dates are carried as ISO 8601 strings exactly as
// registries publish them; parsing happens where a date is consumed, so one
// registry's malformed date never poisons an otherwise good record.
package models

import (
	"encoding/json"
	"time"

	id "firmus/pkg/domain"
)

// Country is an ISO 3166-1 alpha-2 code, uppercase.
type Country string

const (
	CountryCZ Country = "CZ"
	CountryNO Country = "NO"
	CountryFI Country = "FI"
	CountryFR Country = "FR"
)

// RegistrationStatus is the normalized lifecycle state of a registration.
type RegistrationStatus string

const (
	RegistrationActive    RegistrationStatus = "active"
	RegistrationDissolved RegistrationStatus = "dissolved"
	RegistrationUnknown   RegistrationStatus = "unknown"
)

// NACECode is one economic-activity classification entry. Order matters:
// registries list the main activity first.
type NACECode struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// Director is one member of a company's statutory body.
type Director struct {
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
	Since string `json:"since,omitempty"`
}

// RegistryRecord is one adapter's standardized view of a company.
type RegistryRecord struct {
	RegistrationID     string             `json:"registration_id"`
	TaxID              string             `json:"tax_id,omitempty"`
	OfficialName       string             `json:"official_name"`
	LegalForm          string             `json:"legal_form,omitempty"`
	LegalFormName      string             `json:"legal_form_name,omitempty"`
	DateEstablished    string             `json:"date_established,omitempty"`
	DateDissolved      string             `json:"date_dissolved,omitempty"`
	RegisteredAddress  string             `json:"registered_address,omitempty"`
	City               string             `json:"city,omitempty"`
	PostalCode         string             `json:"postal_code,omitempty"`
	NACECodes          []NACECode         `json:"nace_codes,omitempty"`
	RegistrationCourt  string             `json:"registration_court,omitempty"`
	RegistrationNumber string             `json:"registration_number,omitempty"`
	RegisteredCapital  string             `json:"registered_capital,omitempty"`
	Directors          []Director         `json:"directors,omitempty"`
	RegistrationStatus RegistrationStatus `json:"registration_status"`
	InsolvencyFlag     bool               `json:"insolvency_flag"`

	// Insolvency is populated by supplementary adapters only.
	Insolvency *InsolvencyDetails `json:"insolvency,omitempty"`

	Country   Country         `json:"country"`
	Raw       json.RawMessage `json:"raw,omitempty"`
	CheckedAt time.Time       `json:"checked_at"`
}

// Candidate is a name-search result annotated with its similarity to the
// query name. Produced only by search; ordered descending by similarity.
type Candidate struct {
	Record     RegistryRecord `json:"record"`
	Similarity float64        `json:"similarity"`
}

// ProceedingStatus is an insolvency-register case state code, carried
// verbatim from the upstream register.
type ProceedingStatus string

const (
	ProceedingMylny        ProceedingStatus = "MYLNY"
	ProceedingNevyrizena   ProceedingStatus = "NEVYRIZENA"
	ProceedingMoratorium   ProceedingStatus = "MORATORIUM"
	ProceedingUpadek       ProceedingStatus = "UPADEK"
	ProceedingKonkurs      ProceedingStatus = "KONKURS"
	ProceedingOddluzeni    ProceedingStatus = "ODDLUZENI"
	ProceedingReorganizace ProceedingStatus = "REORGANIZACE"
	ProceedingPravomocna   ProceedingStatus = "PRAVOMOCNA"
	ProceedingObzivla      ProceedingStatus = "OBZIVLA"
	ProceedingVyrizena     ProceedingStatus = "VYRIZENA"
	ProceedingOdskrtnuta   ProceedingStatus = "ODSKRTNUTA"
	ProceedingZrusena      ProceedingStatus = "ZRUSENA"
)

// inactiveProceedingStatuses is the closed set of terminal states. Unknown
// codes count as active so new upstream states degrade toward caution, not
// toward a clean bill of health.
var inactiveProceedingStatuses = map[ProceedingStatus]struct{}{
	ProceedingMylny:      {},
	ProceedingVyrizena:   {},
	ProceedingOdskrtnuta: {},
	ProceedingZrusena:    {},
}

// IsActive reports whether a case in this state still burdens the debtor.
func (s ProceedingStatus) IsActive() bool {
	_, inactive := inactiveProceedingStatuses[s]
	return !inactive
}

// InsolvencyProceeding is one case from an insolvency register.
type InsolvencyProceeding struct {
	CaseNumber    string           `json:"case_number"`
	Court         string           `json:"court,omitempty"`
	Status        ProceedingStatus `json:"status"`
	DebtorName    string           `json:"debtor_name,omitempty"`
	DebtorAddress string           `json:"debtor_address,omitempty"`
	StartedAt     string           `json:"started_at,omitempty"`
	EndedAt       string           `json:"ended_at,omitempty"`
	IsActive      bool             `json:"is_active"`
}

// InsolvencyDetails is the supplementary insolvency adapter's payload.
type InsolvencyDetails struct {
	Proceedings []InsolvencyProceeding `json:"proceedings"`
	ActiveCount int                    `json:"active_count"`
}

// MatchMethod records how a company was resolved to a registration ID.
type MatchMethod string

const (
	MatchIDDirect MatchMethod = "id_direct"
	MatchNameAuto MatchMethod = "name_auto"
)

// Status is the terminal state of one enrichment run.
type Status string

const (
	StatusEnriched  Status = "enriched"
	StatusAmbiguous Status = "ambiguous"
	StatusNoMatch   Status = "no_match"
	StatusSkipped   Status = "skipped"
	StatusError     Status = "error"
)

// CredibilityResult is the deterministic 0-100 composite plus its factor
// breakdown. Factors always contains exactly six keys, even when zero, so
// an explainable-score UI never has to special-case absence.
type CredibilityResult struct {
	Score   int            `json:"score"`
	Factors map[string]int `json:"factors"`
}

// LegalProfile is the unified per-company aggregate. A company has at most
// one profile; EnrichCompany upserts it and never deletes it.
type LegalProfile struct {
	CompanyID id.CompanyID `json:"company_id"`
	TenantID  id.TenantID  `json:"tenant_id"`

	RegistrationID     string             `json:"registration_id,omitempty"`
	TaxID              string             `json:"tax_id,omitempty"`
	OfficialName       string             `json:"official_name,omitempty"`
	LegalForm          string             `json:"legal_form,omitempty"`
	LegalFormName      string             `json:"legal_form_name,omitempty"`
	DateEstablished    string             `json:"date_established,omitempty"`
	DateDissolved      string             `json:"date_dissolved,omitempty"`
	RegisteredAddress  string             `json:"registered_address,omitempty"`
	City               string             `json:"city,omitempty"`
	PostalCode         string             `json:"postal_code,omitempty"`
	NACECodes          []NACECode         `json:"nace_codes,omitempty"`
	RegistrationCourt  string             `json:"registration_court,omitempty"`
	RegistrationNumber string             `json:"registration_number,omitempty"`
	RegisteredCapital  string             `json:"registered_capital,omitempty"`
	Directors          []Director         `json:"directors,omitempty"`
	RegistrationStatus RegistrationStatus `json:"registration_status"`
	Country            Country            `json:"country,omitempty"`

	InsolvencyFlag        bool                   `json:"insolvency_flag"`
	InsolvencyDetails     []InsolvencyProceeding `json:"insolvency_details,omitempty"`
	ActiveInsolvencyCount int                    `json:"active_insolvency_count"`

	MatchConfidence    float64        `json:"match_confidence"`
	MatchMethod        MatchMethod    `json:"match_method,omitempty"`
	CredibilityScore   int            `json:"credibility_score"`
	CredibilityFactors map[string]int `json:"credibility_factors,omitempty"`

	// SourceData maps adapter key to the raw upstream payload that fed the
	// profile, for audit and replay.
	SourceData map[string]json.RawMessage `json:"source_data,omitempty"`

	EnrichedAt time.Time `json:"enriched_at"`
}

// PromotedFields is the subset copied onto the caller's company aggregate
// so downstream filtering and sorting need no join against the profile.
type PromotedFields struct {
	CompanyID          id.CompanyID       `json:"company_id"`
	TenantID           id.TenantID        `json:"tenant_id"`
	RegistrationID     string             `json:"registration_id,omitempty"`
	OfficialName       string             `json:"official_name,omitempty"`
	TaxID              string             `json:"tax_id,omitempty"`
	LegalForm          string             `json:"legal_form,omitempty"`
	RegistrationStatus RegistrationStatus `json:"registration_status"`
	DateEstablished    string             `json:"date_established,omitempty"`
	InsolvencyFlag     bool               `json:"insolvency_flag"`
	CredibilityScore   int                `json:"credibility_score"`
	CredibilityFactors map[string]int     `json:"credibility_factors,omitempty"`
}

// Promote extracts the promotion subset from a profile.
func (p *LegalProfile) Promote() PromotedFields {
	return PromotedFields{
		CompanyID:          p.CompanyID,
		TenantID:           p.TenantID,
		RegistrationID:     p.RegistrationID,
		OfficialName:       p.OfficialName,
		TaxID:              p.TaxID,
		LegalForm:          p.LegalForm,
		RegistrationStatus: p.RegistrationStatus,
		DateEstablished:    p.DateEstablished,
		InsolvencyFlag:     p.InsolvencyFlag,
		CredibilityScore:   p.CredibilityScore,
		CredibilityFactors: p.CredibilityFactors,
	}
}

// EnrichmentRequest is the inbound contract for one enrichment run.
type EnrichmentRequest struct {
	CompanyID      id.CompanyID
	TenantID       id.TenantID
	Name           string
	RegistrationID string
	HQCountry      string
	Domain         string
}

// EnrichmentResult is the terminal outcome returned to the caller.
type EnrichmentResult struct {
	Status             Status            `json:"status"`
	Reason             string            `json:"reason,omitempty"`
	RegistrationID     string            `json:"registration_id,omitempty"`
	OfficialName       string            `json:"official_name,omitempty"`
	CredibilityScore   *int              `json:"credibility_score,omitempty"`
	CredibilityFactors map[string]int    `json:"credibility_factors,omitempty"`
	Candidates         []Candidate       `json:"candidates,omitempty"`
	AdaptersRun        []string          `json:"adapters_run,omitempty"`
	Errors             map[string]string `json:"errors,omitempty"`
}

// RegistryLookup is one audit row recording a raw adapter exchange.
type RegistryLookup struct {
	ID        id.LookupID     `json:"id"`
	CompanyID id.CompanyID    `json:"company_id"`
	TenantID  id.TenantID     `json:"tenant_id"`
	Adapter   string          `json:"adapter"`
	Operation string          `json:"operation"`
	Query     string          `json:"query"`
	Outcome   string          `json:"outcome"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CheckedAt time.Time       `json:"checked_at"`
}
