// Package ares wraps the Czech ARES economic-subject register. It is the
// primary adapter for CZ companies: a base lookup by IČO, a fuzzy name
// search, and a dependent public-register (VR) call that fills directors,
// registered capital and the registration court once the IČO is known.
package ares

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"firmus/internal/registry/adapters"
	"firmus/internal/registry/models"
)

// ID is the adapter key used in source_data maps, error maps and audit rows.
const ID = "cz_ares"

// DefaultBaseURL is the public ARES v3 REST root.
const DefaultBaseURL = "https://ares.gov.cz/ekonomicke-subjekty-v-be/rest"

const defaultTimeout = 10 * time.Second

// healthProbeICO is a syntactically valid, permanently unassigned IČO. The
// register answering 404 for it still proves the service is up.
const healthProbeICO = "00000001"

// suffixPatterns strips Czech legal-form suffixes before similarity scoring.
// Ordered so composites ("spol. s r.o.", "v likvidaci") go before the
// shorter forms they contain.
var suffixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[,\s]+v\s+likvidaci\s*$`),
	regexp.MustCompile(`(?i)[,\s]+spol\.?\s*s\s*r\.?\s?o\.?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+s\.?\s?r\.?\s?o\.?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+a\.?\s?s\.?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+v\.?\s?o\.?\s?s\.?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+k\.?\s?s\.?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+z\.?\s?s\.?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+o\.?\s?p\.?\s?s\.?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+s\.?\s?p\.?\s*$`),
	regexp.MustCompile(`(?i)[,\s]+družstvo\s*$`),
}

// legalFormNames maps the ARES numeric legal-form codes seen in practice.
// Unknown codes keep an empty human name; the code itself is always kept.
var legalFormNames = map[string]string{
	"101": "Fyzická osoba podnikající dle živnostenského zákona",
	"111": "Veřejná obchodní společnost",
	"112": "Společnost s ručením omezeným",
	"113": "Komanditní společnost",
	"121": "Akciová společnost",
	"141": "Obecně prospěšná společnost",
	"205": "Družstvo",
	"301": "Státní podnik",
	"421": "Odštěpný závod zahraniční právnické osoby",
	"706": "Spolek",
}

// registryCourts maps VR court codes to full court names.
var registryCourts = map[string]string{
	"MSPH": "Městský soud v Praze",
	"KSPH": "Krajský soud v Praze",
	"KSCB": "Krajský soud v Českých Budějovicích",
	"KSPL": "Krajský soud v Plzni",
	"KSUL": "Krajský soud v Ústí nad Labem",
	"KSHK": "Krajský soud v Hradci Králové",
	"KSBR": "Krajský soud v Brně",
	"KSOS": "Krajský soud v Ostravě",
}

// Adapter talks to ARES. Safe for concurrent use.
type Adapter struct {
	baseURL string
	client  *adapters.Client
	logger  *slog.Logger
	desc    adapters.Descriptor
}

// Option configures the adapter.
type Option func(*Adapter)

// WithBaseURL overrides the ARES endpoint root, typically for tests.
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

// New creates the CZ primary adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		baseURL: DefaultBaseURL,
		desc: adapters.Descriptor{
			ID:       ID,
			Country:  models.CountryCZ,
			Protocol: adapters.ProtocolREST,
			CountryNames: []string{
				"cz", "cze", "czech republic", "czechia",
				"česká republika", "česko",
			},
			TLDs:           []string{".cz"},
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

// LookupByID fetches a company by IČO. A malformed IČO cannot identify
// anything and counts as not found.
func (a *Adapter) LookupByID(ctx context.Context, registrationID string) (*models.RegistryRecord, error) {
	ico, ok := NormalizeICO(registrationID)
	if !ok {
		a.warn(ctx, "rejecting malformed ičo", "registration_id", registrationID)
		return nil, nil
	}

	var dto subjectDTO
	found, raw, err := a.client.GetJSON(ctx, ID, a.baseURL+"/ekonomicke-subjekty/"+ico, nil, &dto)
	if err != nil {
		if err := adapters.Degrade(ctx, a.logger, "ares lookup", err); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if !found {
		return nil, nil
	}

	rec := mapSubject(dto, raw)
	a.fillRegisterDetails(ctx, ico, &rec)
	return &rec, nil
}

// SearchByName runs the ARES fuzzy search and scores every hit against the
// query name.
func (a *Adapter) SearchByName(ctx context.Context, name string, maxResults int) ([]models.Candidate, error) {
	payload := searchRequestDTO{ObchodniJmeno: name, Pocet: maxResults}

	var resp searchResponseDTO
	found, _, err := a.client.PostJSON(ctx, ID, a.baseURL+"/ekonomicke-subjekty/vyhledat", payload, nil, &resp)
	if err != nil {
		if err := adapters.Degrade(ctx, a.logger, "ares search", err); err != nil {
			return nil, err
		}
		return []models.Candidate{}, nil
	}
	if !found {
		return []models.Candidate{}, nil
	}

	out := make([]models.Candidate, 0, len(resp.EkonomickeSubjekty))
	for _, raw := range resp.EkonomickeSubjekty {
		var dto subjectDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			a.warn(ctx, "skipping unparseable search hit", "error", err)
			continue
		}
		rec := mapSubject(dto, raw)
		out = append(out, models.Candidate{
			Record:     rec,
			Similarity: a.desc.NameSimilarity(name, rec.OfficialName),
		})
	}
	return out, nil
}

// Health probes the register with an unassigned IČO; any well-formed answer
// (including 404) passes.
func (a *Adapter) Health(ctx context.Context) error {
	req, err := http.NewRequest(http.MethodGet, a.baseURL+"/ekonomicke-subjekty/"+healthProbeICO, nil)
	if err != nil {
		return err
	}
	_, _, err = a.client.Do(ctx, ID, req)
	return err
}

// fillRegisterDetails overlays directors, capital and court data from the
// public-register endpoint. Best effort: any failure leaves the base record
// intact.
func (a *Adapter) fillRegisterDetails(ctx context.Context, ico string, rec *models.RegistryRecord) {
	var dto vrResponseDTO
	found, _, err := a.client.GetJSON(ctx, ID, a.baseURL+"/ekonomicke-subjekty-vr/"+ico, nil, &dto)
	if err != nil {
		a.warn(ctx, "public-register call degraded", "ico", ico, "error", err)
		return
	}
	if !found {
		return
	}

	z := dto.primaryRecord()
	if z == nil {
		return
	}

	if len(z.SpisovaZnacka) > 0 {
		sz := z.SpisovaZnacka[0]
		if name, ok := registryCourts[sz.Soud]; ok {
			rec.RegistrationCourt = name
		} else {
			rec.RegistrationCourt = sz.Soud
		}
		if sz.Oddil != "" && sz.Vlozka.String() != "" {
			rec.RegistrationNumber = sz.Oddil + " " + sz.Vlozka.String()
		}
	}

	for _, organ := range z.StatutarniOrgany {
		for _, clen := range organ.ClenoveOrganu {
			d := clen.director()
			if d.Name != "" {
				rec.Directors = append(rec.Directors, d)
			}
		}
	}

	for _, k := range z.ZakladniKapital {
		if k.Vklad != nil && k.Vklad.Hodnota.String() != "" {
			rec.RegisteredCapital = k.Vklad.Hodnota.String() + " CZK"
			break
		}
	}
}

func (a *Adapter) warn(ctx context.Context, msg string, args ...any) {
	if a.logger != nil {
		a.logger.WarnContext(ctx, msg, args...)
	}
}

// NormalizeICO strips spaces and left-pads to the canonical 8 digits.
func NormalizeICO(s string) (string, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" || len(s) > 8 {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return strings.Repeat("0", 8-len(s)) + s, true
}

type subjectDTO struct {
	ICO           string    `json:"ico"`
	DIC           string    `json:"dic"`
	ObchodniJmeno string    `json:"obchodniJmeno"`
	PravniForma   string    `json:"pravniForma"`
	DatumVzniku   string    `json:"datumVzniku"`
	DatumZaniku   string    `json:"datumZaniku"`
	Sidlo         *sidloDTO `json:"sidlo"`
	CzNace        []string  `json:"czNace"`
}

type sidloDTO struct {
	TextovaAdresa string      `json:"textovaAdresa"`
	NazevObce     string      `json:"nazevObce"`
	PSC           json.Number `json:"psc"`
}

type searchRequestDTO struct {
	ObchodniJmeno string `json:"obchodniJmeno"`
	Pocet         int    `json:"pocet"`
	Start         int    `json:"start"`
}

type searchResponseDTO struct {
	PocetCelkem        int               `json:"pocetCelkem"`
	EkonomickeSubjekty []json.RawMessage `json:"ekonomickeSubjekty"`
}

type vrResponseDTO struct {
	Zaznamy []vrZaznamDTO `json:"zaznamy"`
}

func (r *vrResponseDTO) primaryRecord() *vrZaznamDTO {
	for i := range r.Zaznamy {
		if r.Zaznamy[i].PrimarniZaznam {
			return &r.Zaznamy[i]
		}
	}
	if len(r.Zaznamy) > 0 {
		return &r.Zaznamy[0]
	}
	return nil
}

type vrZaznamDTO struct {
	PrimarniZaznam   bool                 `json:"primarniZaznam"`
	SpisovaZnacka    []vrSpisovaZnackaDTO `json:"spisovaZnacka"`
	StatutarniOrgany []vrOrganDTO         `json:"statutarniOrgany"`
	ZakladniKapital  []vrKapitalDTO       `json:"zakladniKapital"`
}

type vrSpisovaZnackaDTO struct {
	Soud   string      `json:"soud"`
	Oddil  string      `json:"oddil"`
	Vlozka json.Number `json:"vlozka"`
}

type vrOrganDTO struct {
	NazevOrganu   string      `json:"nazevOrganu"`
	ClenoveOrganu []vrClenDTO `json:"clenoveOrganu"`
}

type vrClenDTO struct {
	FyzickaOsoba *vrOsobaDTO    `json:"fyzickaOsoba"`
	Clenstvi     *vrClenstviDTO `json:"clenstvi"`
}

func (c vrClenDTO) director() models.Director {
	var d models.Director
	if c.FyzickaOsoba != nil {
		d.Name = strings.TrimSpace(c.FyzickaOsoba.Jmeno + " " + c.FyzickaOsoba.Prijmeni)
	}
	if c.Clenstvi != nil {
		if c.Clenstvi.Funkce != nil {
			d.Role = c.Clenstvi.Funkce.Nazev
		}
		d.Since = c.Clenstvi.VznikClenstvi
	}
	return d
}

type vrOsobaDTO struct {
	Jmeno    string `json:"jmeno"`
	Prijmeni string `json:"prijmeni"`
}

type vrClenstviDTO struct {
	Funkce        *vrFunkceDTO `json:"funkce"`
	VznikClenstvi string       `json:"vznikClenstvi"`
}

type vrFunkceDTO struct {
	Nazev string `json:"nazev"`
}

type vrKapitalDTO struct {
	Vklad *vrObnosDTO `json:"vklad"`
}

type vrObnosDTO struct {
	Hodnota  json.Number `json:"hodnota"`
	TypObnos string      `json:"typObnos"`
}

// mapSubject converts one ARES economic subject into the normalized record.
func mapSubject(dto subjectDTO, raw json.RawMessage) models.RegistryRecord {
	rec := models.RegistryRecord{
		RegistrationID:  dto.ICO,
		TaxID:           dto.DIC,
		OfficialName:    dto.ObchodniJmeno,
		LegalForm:       dto.PravniForma,
		LegalFormName:   legalFormNames[dto.PravniForma],
		DateEstablished: dto.DatumVzniku,
		DateDissolved:   dto.DatumZaniku,
		Country:         models.CountryCZ,
		Raw:             raw,
		CheckedAt:       time.Now().UTC(),
	}

	if dto.Sidlo != nil {
		rec.RegisteredAddress = dto.Sidlo.TextovaAdresa
		rec.City = dto.Sidlo.NazevObce
		rec.PostalCode = dto.Sidlo.PSC.String()
	}

	for _, code := range dto.CzNace {
		rec.NACECodes = append(rec.NACECodes, models.NACECode{Code: code})
	}

	if dto.DatumZaniku != "" {
		rec.RegistrationStatus = models.RegistrationDissolved
	} else {
		rec.RegistrationStatus = models.RegistrationActive
	}
	return rec
}
