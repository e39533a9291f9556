// Package brreg wraps the Norwegian Brønnøysund entity register
// (Enhetsregisteret). Primary adapter for NO companies.
package brreg

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
const ID = "no_brreg"

// DefaultBaseURL is the public Enhetsregisteret REST root.
const DefaultBaseURL = "https://data.brreg.no/enhetsregisteret/api"

const defaultTimeout = 10 * time.Second

// suffixPatterns strips Norwegian legal-form suffixes before similarity
// scoring. `asa?` covers both AS and ASA.
var suffixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[,\s]+asa?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+ans\s*$`),
	regexp.MustCompile(`(?i)[,\s]+enk\s*$`),
	regexp.MustCompile(`(?i)[,\s]+nuf\s*$`),
	regexp.MustCompile(`(?i)[,\s]+da\s*$`),
	regexp.MustCompile(`(?i)[,\s]+ks\s*$`),
	regexp.MustCompile(`(?i)[,\s]+sa\s*$`),
	regexp.MustCompile(`(?i)[,\s]+ba\s*$`),
}

// Adapter talks to Enhetsregisteret. Safe for concurrent use.
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

// New creates the NO primary adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		baseURL: DefaultBaseURL,
		desc: adapters.Descriptor{
			ID:       ID,
			Country:  models.CountryNO,
			Protocol: adapters.ProtocolREST,
			CountryNames: []string{
				"no", "nor", "norway", "norge", "noreg",
			},
			TLDs:           []string{".no"},
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

// LookupByID fetches an entity by its 9-digit organisation number.
func (a *Adapter) LookupByID(ctx context.Context, registrationID string) (*models.RegistryRecord, error) {
	orgnr, ok := normalizeOrgNumber(registrationID)
	if !ok {
		a.warn(ctx, "rejecting malformed organisation number", "registration_id", registrationID)
		return nil, nil
	}

	var dto enhetDTO
	found, raw, err := a.client.GetJSON(ctx, ID, a.baseURL+"/enheter/"+orgnr, nil, &dto)
	if err != nil {
		if err := adapters.Degrade(ctx, a.logger, "brreg lookup", err); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if !found {
		return nil, nil
	}

	rec := mapEnhet(dto, raw)
	return &rec, nil
}

// SearchByName queries the paginated name search and scores every hit.
func (a *Adapter) SearchByName(ctx context.Context, name string, maxResults int) ([]models.Candidate, error) {
	if strings.TrimSpace(name) == "" {
		return []models.Candidate{}, nil
	}
	u := fmt.Sprintf("%s/enheter?navn=%s&size=%d", a.baseURL, url.QueryEscape(name), maxResults)

	var resp searchResponseDTO
	found, _, err := a.client.GetJSON(ctx, ID, u, nil, &resp)
	if err != nil {
		if err := adapters.Degrade(ctx, a.logger, "brreg search", err); err != nil {
			return nil, err
		}
		return []models.Candidate{}, nil
	}
	if !found {
		return []models.Candidate{}, nil
	}

	out := make([]models.Candidate, 0, len(resp.Embedded.Enheter))
	for _, raw := range resp.Embedded.Enheter {
		var dto enhetDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			a.warn(ctx, "skipping unparseable search hit", "error", err)
			continue
		}
		rec := mapEnhet(dto, raw)
		out = append(out, models.Candidate{
			Record:     rec,
			Similarity: a.desc.NameSimilarity(name, rec.OfficialName),
		})
	}
	return out, nil
}

// Health fetches the first page of the register; a 200 answer passes.
func (a *Adapter) Health(ctx context.Context) error {
	req, err := http.NewRequest(http.MethodGet, a.baseURL+"/enheter?size=1", nil)
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

// normalizeOrgNumber strips grouping spaces and the NO/MVA VAT decoration,
// leaving the bare 9 digits.
func normalizeOrgNumber(s string) (string, bool) {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	s = strings.TrimPrefix(s, "NO")
	s = strings.TrimSuffix(s, "MVA")
	if len(s) != 9 {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return s, true
}

type enhetDTO struct {
	Organisasjonsnummer               string           `json:"organisasjonsnummer"`
	Navn                              string           `json:"navn"`
	Organisasjonsform                 *orgFormDTO      `json:"organisasjonsform"`
	RegistreringsdatoEnhetsregisteret string           `json:"registreringsdatoEnhetsregisteret"`
	RegistrertIMvaregisteret          bool             `json:"registrertIMvaregisteret"`
	Stiftelsesdato                    string           `json:"stiftelsesdato"`
	Slettedato                        string           `json:"slettedato"`
	Konkurs                           bool             `json:"konkurs"`
	UnderAvvikling                    bool             `json:"underAvvikling"`
	Naeringskode1                     *naeringskodeDTO `json:"naeringskode1"`
	Naeringskode2                     *naeringskodeDTO `json:"naeringskode2"`
	Naeringskode3                     *naeringskodeDTO `json:"naeringskode3"`
	Forretningsadresse                *adresseDTO      `json:"forretningsadresse"`
}

type orgFormDTO struct {
	Kode        string `json:"kode"`
	Beskrivelse string `json:"beskrivelse"`
}

type naeringskodeDTO struct {
	Kode        string `json:"kode"`
	Beskrivelse string `json:"beskrivelse"`
}

type adresseDTO struct {
	Adresse    []string `json:"adresse"`
	Postnummer string   `json:"postnummer"`
	Poststed   string   `json:"poststed"`
}

type searchResponseDTO struct {
	Embedded struct {
		Enheter []json.RawMessage `json:"enheter"`
	} `json:"_embedded"`
}

// mapEnhet converts one register entity into the normalized record.
func mapEnhet(dto enhetDTO, raw json.RawMessage) models.RegistryRecord {
	rec := models.RegistryRecord{
		RegistrationID:  dto.Organisasjonsnummer,
		OfficialName:    dto.Navn,
		DateEstablished: dto.Stiftelsesdato,
		DateDissolved:   dto.Slettedato,
		InsolvencyFlag:  dto.Konkurs,
		Country:         models.CountryNO,
		Raw:             raw,
		CheckedAt:       time.Now().UTC(),
	}

	if rec.DateEstablished == "" {
		rec.DateEstablished = dto.RegistreringsdatoEnhetsregisteret
	}
	if dto.Organisasjonsform != nil {
		rec.LegalForm = dto.Organisasjonsform.Kode
		rec.LegalFormName = dto.Organisasjonsform.Beskrivelse
	}
	if dto.RegistrertIMvaregisteret {
		rec.TaxID = "NO" + dto.Organisasjonsnummer + "MVA"
	}
	if dto.Forretningsadresse != nil {
		rec.RegisteredAddress = strings.Join(dto.Forretningsadresse.Adresse, ", ")
		rec.City = dto.Forretningsadresse.Poststed
		rec.PostalCode = dto.Forretningsadresse.Postnummer
	}
	for _, nk := range []*naeringskodeDTO{dto.Naeringskode1, dto.Naeringskode2, dto.Naeringskode3} {
		if nk != nil && nk.Kode != "" {
			rec.NACECodes = append(rec.NACECodes, models.NACECode{Code: nk.Kode, Description: nk.Beskrivelse})
		}
	}

	if dto.Slettedato != "" {
		rec.RegistrationStatus = models.RegistrationDissolved
	} else {
		rec.RegistrationStatus = models.RegistrationActive
	}
	return rec
}
