// Package prh wraps the Finnish Patent and Registration Office open-data
// API (YTJ, v3). Primary adapter for FI companies.
package prh

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"firmus/internal/registry/adapters"
	"firmus/internal/registry/models"
)

// ID is the adapter key used in source_data maps, error maps and audit rows.
const ID = "fi_prh"

// DefaultBaseURL is the public YTJ v3 REST root.
const DefaultBaseURL = "https://avoindata.prh.fi/opendata-ytj-api/v3"

const defaultTimeout = 10 * time.Second

// langEnglish is the YTJ description language code for English. Finnish is
// "1" and Swedish "2"; English descriptions are preferred when present.
const langEnglish = "3"

// suffixPatterns strips Finnish and Finland-Swedish legal-form suffixes
// before similarity scoring. The composite "oy ab" goes first.
var suffixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[,\s]+oy\s+ab\s*$`),
	regexp.MustCompile(`(?i)[,\s]+oyj?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+abp?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+ky\s*$`),
	regexp.MustCompile(`(?i)[,\s]+tmi\s*$`),
	regexp.MustCompile(`(?i)[,\s]+osk\s*$`),
	regexp.MustCompile(`(?i)[,\s]+ry\s*$`),
}

// Adapter talks to the YTJ API. Safe for concurrent use.
type Adapter struct {
	baseURL string
	client  *adapters.Client
	logger  *slog.Logger
	desc    adapters.Descriptor
}

// Option configures the adapter.
type Option func(*Adapter)

// WithBaseURL overrides the endpoint root, typically for tests.
func WithBaseURL(u string) Option {
	return func(a *Adapter) { a.baseURL = strings.TrimRight(u, "/") }
}

// WithClient shares an HTTP client (and its circuit breaker) with the caller.
func WithClient(c *adapters.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// WithLogger sets the logger for degraded-call warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// New creates the FI primary adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		baseURL: DefaultBaseURL,
		desc: adapters.Descriptor{
			ID:       ID,
			Country:  models.CountryFI,
			Protocol: adapters.ProtocolREST,
			CountryNames: []string{
				"fi", "fin", "finland", "suomi",
			},
			TLDs:           []string{".fi"},
			SuffixPatterns: suffixPatterns,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.client == nil {
		a.client = adapters.NewClient(defaultTimeout)
	}
	return a
}

// Descriptor returns the adapter's capability description.
func (a *Adapter) Descriptor() adapters.Descriptor { return a.desc }

// LookupByID fetches a company by business ID. The API answers list-shaped
// even for exact lookups; an empty list is a confirmed not-found.
func (a *Adapter) LookupByID(ctx context.Context, registrationID string) (*models.RegistryRecord, error) {
	businessID, ok := normalizeBusinessID(registrationID)
	if !ok {
		a.warn(ctx, "rejecting malformed business id", "registration_id", registrationID)
		return nil, nil
	}

	var resp companiesResponseDTO
	u := a.baseURL + "/companies?businessId=" + url.QueryEscape(businessID)
	found, _, err := a.client.GetJSON(ctx, ID, u, nil, &resp)
	if err != nil {
		if err := adapters.Degrade(ctx, a.logger, "prh lookup", err); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if !found || len(resp.Companies) == 0 {
		return nil, nil
	}

	raw := resp.Companies[0]
	var dto companyDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		a.warn(ctx, "unparseable company payload", "business_id", businessID, "error", err)
		return nil, nil
	}
	rec := mapCompany(dto, raw)
	return &rec, nil
}

// SearchByName queries the name filter and scores every hit.
func (a *Adapter) SearchByName(ctx context.Context, name string, maxResults int) ([]models.Candidate, error) {
	if strings.TrimSpace(name) == "" {
		return []models.Candidate{}, nil
	}

	var resp companiesResponseDTO
	u := a.baseURL + "/companies?name=" + url.QueryEscape(name)
	found, _, err := a.client.GetJSON(ctx, ID, u, nil, &resp)
	if err != nil {
		if err := adapters.Degrade(ctx, a.logger, "prh search", err); err != nil {
			return nil, err
		}
		return []models.Candidate{}, nil
	}
	if !found {
		return []models.Candidate{}, nil
	}

	out := make([]models.Candidate, 0, len(resp.Companies))
	for _, raw := range resp.Companies {
		if len(out) >= maxResults {
			break
		}
		var dto companyDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			a.warn(ctx, "skipping unparseable search hit", "error", err)
			continue
		}
		rec := mapCompany(dto, raw)
		out = append(out, models.Candidate{
			Record:     rec,
			Similarity: a.desc.NameSimilarity(name, rec.OfficialName),
		})
	}
	return out, nil
}

// Health runs a minimal name query; any well-formed answer passes.
func (a *Adapter) Health(ctx context.Context) error {
	req, err := http.NewRequest(http.MethodGet, a.baseURL+"/companies?name=oy", nil)
	if err != nil {
		return err
	}
	_, _, err = a.client.Do(ctx, ID, req)
	return err
}

func (a *Adapter) warn(ctx context.Context, msg string, args ...any) {
	if a.logger != nil {
		a.logger.WarnContext(ctx, msg, args...)
	}
}

// normalizeBusinessID canonicalizes to the NNNNNNN-C form, accepting the
// undashed and FI-VAT spellings.
func normalizeBusinessID(s string) (string, bool) {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	s = strings.TrimPrefix(s, "FI")
	s = strings.ReplaceAll(s, "-", "")
	if len(s) != 8 {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return s[:7] + "-" + s[7:], true
}

type companiesResponseDTO struct {
	TotalResults int               `json:"totalResults"`
	Companies    []json.RawMessage `json:"companies"`
}

type companyDTO struct {
	BusinessID       *businessIDDTO   `json:"businessId"`
	Names            []nameDTO        `json:"names"`
	CompanyForms     []companyFormDTO `json:"companyForms"`
	MainBusinessLine *businessLineDTO `json:"mainBusinessLine"`
	Addresses        []addressDTO     `json:"addresses"`
	RegistrationDate string           `json:"registrationDate"`
	EndDate          string           `json:"endDate"`
}

type businessIDDTO struct {
	Value string `json:"value"`
}

type nameDTO struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	EndDate string `json:"endDate"`
}

type companyFormDTO struct {
	Type         string           `json:"type"`
	Descriptions []descriptionDTO `json:"descriptions"`
}

type businessLineDTO struct {
	Type         string           `json:"type"`
	Descriptions []descriptionDTO `json:"descriptions"`
}

type descriptionDTO struct {
	LanguageCode string `json:"languageCode"`
	Description  string `json:"description"`
}

type addressDTO struct {
	Street         string `json:"street"`
	BuildingNumber string `json:"buildingNumber"`
	PostCode       string `json:"postCode"`
	City           string `json:"city"`
}

// officialName picks the current principal name: the first entry without an
// end date, falling back to the first entry.
func (c companyDTO) officialName() string {
	for _, n := range c.Names {
		if n.EndDate == "" {
			return n.Name
		}
	}
	if len(c.Names) > 0 {
		return c.Names[0].Name
	}
	return ""
}

// pickDescription prefers the English wording, falling back to whatever the
// register offers first.
func pickDescription(descs []descriptionDTO) string {
	for _, d := range descs {
		if d.LanguageCode == langEnglish {
			return d.Description
		}
	}
	if len(descs) > 0 {
		return descs[0].Description
	}
	return ""
}

// mapCompany converts one YTJ company into the normalized record.
func mapCompany(dto companyDTO, raw json.RawMessage) models.RegistryRecord {
	rec := models.RegistryRecord{
		OfficialName:    dto.officialName(),
		DateEstablished: dto.RegistrationDate,
		DateDissolved:   dto.EndDate,
		Country:         models.CountryFI,
		Raw:             raw,
		CheckedAt:       time.Now().UTC(),
	}

	if dto.BusinessID != nil {
		rec.RegistrationID = dto.BusinessID.Value
	}
	if len(dto.CompanyForms) > 0 {
		rec.LegalForm = dto.CompanyForms[0].Type
		rec.LegalFormName = pickDescription(dto.CompanyForms[0].Descriptions)
	}
	if dto.MainBusinessLine != nil && dto.MainBusinessLine.Type != "" {
		rec.NACECodes = append(rec.NACECodes, models.NACECode{
			Code:        dto.MainBusinessLine.Type,
			Description: pickDescription(dto.MainBusinessLine.Descriptions),
		})
	}
	if len(dto.Addresses) > 0 {
		addr := dto.Addresses[0]
		street := strings.TrimSpace(addr.Street)
		if street != "" && addr.BuildingNumber != "" {
			street = fmt.Sprintf("%s %s", street, addr.BuildingNumber)
		}
		rec.RegisteredAddress = street
		rec.City = addr.City
		rec.PostalCode = addr.PostCode
	}

	if dto.EndDate != "" {
		rec.RegistrationStatus = models.RegistrationDissolved
	} else {
		rec.RegistrationStatus = models.RegistrationActive
	}
	return rec
}
