// Package sirene wraps the French company search API backed by the Sirene
// register. Primary adapter for FR companies.
package sirene

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
const ID = "fr_sirene"

// DefaultBaseURL is the public recherche-entreprises root.
const DefaultBaseURL = "https://recherche-entreprises.api.gouv.fr"

const defaultTimeout = 10 * time.Second

// suffixPatterns strips French legal-form suffixes before similarity
// scoring. Longer forms precede the shorter ones they end with.
var suffixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[,\s]+s\.?a\.?s\.?u\.?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+s\.?a\.?s\.?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+s\.?a\.?r\.?l\.?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+s\.?a\.?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+e\.?u\.?r\.?l\.?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+s\.?c\.?i\.?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+s\.?n\.?c\.?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+(et|&)\s+cie\s*$`),
}

// legalFormNames maps the INSEE nature-juridique codes seen in practice.
var legalFormNames = map[string]string{
	"1000": "Entrepreneur individuel",
	"5202": "Société en nom collectif",
	"5499": "Société à responsabilité limitée",
	"5599": "SA à conseil d'administration",
	"5699": "SA à directoire",
	"5710": "Société par actions simplifiée",
	"5720": "Société par actions simplifiée unipersonnelle",
	"6540": "Société civile immobilière",
	"9220": "Association déclarée",
}

// Adapter talks to the company search API. Safe for concurrent use.
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

// New creates the FR primary adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		baseURL: DefaultBaseURL,
		desc: adapters.Descriptor{
			ID:       ID,
			Country:  models.CountryFR,
			Protocol: adapters.ProtocolREST,
			CountryNames: []string{
				"fr", "fra", "france",
			},
			TLDs:           []string{".fr"},
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

// LookupByID resolves a SIREN through the free-text search endpoint, which
// is exact for an all-digit query, and double-checks the SIREN on the hit.
func (a *Adapter) LookupByID(ctx context.Context, registrationID string) (*models.RegistryRecord, error) {
	siren, ok := normalizeSIREN(registrationID)
	if !ok {
		a.warn(ctx, "rejecting malformed siren", "registration_id", registrationID)
		return nil, nil
	}

	var resp searchResponseDTO
	u := fmt.Sprintf("%s/search?q=%s&per_page=3", a.baseURL, siren)
	found, _, err := a.client.GetJSON(ctx, ID, u, nil, &resp)
	if err != nil {
		if err := adapters.Degrade(ctx, a.logger, "sirene lookup", err); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if !found {
		return nil, nil
	}

	for _, raw := range resp.Results {
		var dto resultDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			a.warn(ctx, "skipping unparseable result", "error", err)
			continue
		}
		if dto.Siren == siren {
			rec := mapResult(dto, raw)
			return &rec, nil
		}
	}
	return nil, nil
}

// SearchByName runs the free-text search and scores every hit.
func (a *Adapter) SearchByName(ctx context.Context, name string, maxResults int) ([]models.Candidate, error) {
	if strings.TrimSpace(name) == "" {
		return []models.Candidate{}, nil
	}

	var resp searchResponseDTO
	u := fmt.Sprintf("%s/search?q=%s&per_page=%d", a.baseURL, url.QueryEscape(name), maxResults)
	found, _, err := a.client.GetJSON(ctx, ID, u, nil, &resp)
	if err != nil {
		if err := adapters.Degrade(ctx, a.logger, "sirene search", err); err != nil {
			return nil, err
		}
		return []models.Candidate{}, nil
	}
	if !found {
		return []models.Candidate{}, nil
	}

	out := make([]models.Candidate, 0, len(resp.Results))
	for _, raw := range resp.Results {
		var dto resultDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			a.warn(ctx, "skipping unparseable search hit", "error", err)
			continue
		}
		rec := mapResult(dto, raw)
		out = append(out, models.Candidate{
			Record:     rec,
			Similarity: a.desc.NameSimilarity(name, rec.OfficialName),
		})
	}
	return out, nil
}

// Health runs a minimal search; any well-formed answer passes.
func (a *Adapter) Health(ctx context.Context) error {
	req, err := http.NewRequest(http.MethodGet, a.baseURL+"/search?q=test&per_page=1", nil)
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

// normalizeSIREN strips grouping spaces and reduces a 14-digit SIRET to its
// 9-digit SIREN.
func normalizeSIREN(s string) (string, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if len(s) != 9 && len(s) != 14 {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return s[:9], true
}

type searchResponseDTO struct {
	Results      []json.RawMessage `json:"results"`
	TotalResults int               `json:"total_results"`
}

type resultDTO struct {
	Siren              string         `json:"siren"`
	NomComplet         string         `json:"nom_complet"`
	NomRaisonSociale   string         `json:"nom_raison_sociale"`
	NatureJuridique    string         `json:"nature_juridique"`
	ActivitePrincipale string         `json:"activite_principale"`
	DateCreation       string         `json:"date_creation"`
	EtatAdministratif  string         `json:"etat_administratif"`
	Siege              *siegeDTO      `json:"siege"`
	Dirigeants         []dirigeantDTO `json:"dirigeants"`
}

type siegeDTO struct {
	Adresse        string `json:"adresse"`
	CodePostal     string `json:"code_postal"`
	LibelleCommune string `json:"libelle_commune"`
}

type dirigeantDTO struct {
	Nom           string `json:"nom"`
	Prenoms       string `json:"prenoms"`
	Denomination  string `json:"denomination"`
	Qualite       string `json:"qualite"`
	TypeDirigeant string `json:"type_dirigeant"`
}

// director flattens both shapes the API uses: natural persons carry
// prenoms/nom, legal entities a denomination.
func (d dirigeantDTO) director() models.Director {
	name := strings.TrimSpace(d.Prenoms + " " + d.Nom)
	if name == "" {
		name = d.Denomination
	}
	return models.Director{Name: name, Role: d.Qualite}
}

// mapResult converts one search result into the normalized record.
func mapResult(dto resultDTO, raw json.RawMessage) models.RegistryRecord {
	rec := models.RegistryRecord{
		RegistrationID:  dto.Siren,
		OfficialName:    dto.NomComplet,
		LegalForm:       dto.NatureJuridique,
		LegalFormName:   legalFormNames[dto.NatureJuridique],
		DateEstablished: dto.DateCreation,
		Country:         models.CountryFR,
		Raw:             raw,
		CheckedAt:       time.Now().UTC(),
	}

	if rec.OfficialName == "" {
		rec.OfficialName = dto.NomRaisonSociale
	}
	if dto.ActivitePrincipale != "" {
		rec.NACECodes = append(rec.NACECodes, models.NACECode{Code: dto.ActivitePrincipale})
	}
	if dto.Siege != nil {
		rec.RegisteredAddress = dto.Siege.Adresse
		rec.City = dto.Siege.LibelleCommune
		rec.PostalCode = dto.Siege.CodePostal
	}
	for _, d := range dto.Dirigeants {
		dir := d.director()
		if dir.Name != "" {
			rec.Directors = append(rec.Directors, dir)
		}
	}

	switch dto.EtatAdministratif {
	case "A":
		rec.RegistrationStatus = models.RegistrationActive
	case "C":
		rec.RegistrationStatus = models.RegistrationDissolved
	default:
		rec.RegistrationStatus = models.RegistrationUnknown
	}
	return rec
}
