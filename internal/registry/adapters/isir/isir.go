// Package isir wraps the Czech insolvency register (ISIR) web service. It
// is a supplementary adapter: it runs only after the CZ primary adapter has
// produced an IČO, and contributes insolvency proceedings to the profile.
//
// The service speaks SOAP 1.1 document/literal. The request envelope is
// built by hand and the response is decoded with encoding/xml; WSDL
// tooling would be heavier than the single operation justifies.
package isir

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"firmus/internal/registry/adapters"
	"firmus/internal/registry/adapters/ares"
	"firmus/internal/registry/models"
)

// ID is the adapter key used in source_data maps, error maps and audit rows.
const ID = "cz_isir"

// DefaultEndpoint is the public ISIR CUZK web-service endpoint.
const DefaultEndpoint = "https://isir.justice.cz/isir_cuzk_ws/IsirWsCuzkService"

const (
	soapAction     = "getIsirWsCuzkData"
	defaultTimeout = 15 * time.Second
	maxProceedings = 50

	// codeNoData is the service's "confirmed empty" answer: the IČO has no
	// insolvency record. It is a result, not a failure.
	codeNoData = "DATA_NENALEZENA"
)

const envelopeTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:typ="http://isirws.cca.cz/types/">
  <soapenv:Header/>
  <soapenv:Body>
    <typ:getIsirWsCuzkDataRequest>
      <ic>%s</ic>
      <filtrAktualniRizeni>F</filtrAktualniRizeni>
      <maxPocetVysledku>%d</maxPocetVysledku>
    </typ:getIsirWsCuzkDataRequest>
  </soapenv:Body>
</soapenv:Envelope>`

// Adapter talks to ISIR. Safe for concurrent use.
type Adapter struct {
	endpoint string
	client   *adapters.Client
	logger   *slog.Logger
	desc     adapters.Descriptor
}

// Option configures the adapter.
type Option func(*Adapter)

// WithEndpoint overrides the service endpoint, typically for tests.
func WithEndpoint(u string) Option {
	return func(a *Adapter) { a.endpoint = u }
}

// WithClient shares an HTTP client (and its circuit breaker) with the caller.
func WithClient(c *adapters.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// WithLogger sets the logger for degraded-call warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// New creates the CZ insolvency adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		endpoint: DefaultEndpoint,
		desc: adapters.Descriptor{
			ID:       ID,
			Country:  models.CountryCZ,
			Protocol: adapters.ProtocolSOAP,
			CountryNames: []string{
				"cz", "cze", "czech republic", "czechia",
				"česká republika", "česko",
			},
			TLDs:          []string{".cz"},
			Supplementary: true,
			DependsOn:     []string{ares.ID},
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

// LookupByID queries insolvency proceedings for an IČO. A confirmed empty
// register answer returns (nil, nil).
func (a *Adapter) LookupByID(ctx context.Context, registrationID string) (*models.RegistryRecord, error) {
	ico, ok := ares.NormalizeICO(registrationID)
	if !ok {
		a.warn(ctx, "rejecting malformed ičo", "registration_id", registrationID)
		return nil, nil
	}

	envelope := fmt.Sprintf(envelopeTemplate, ico, maxProceedings)
	body, err := a.client.PostXML(ctx, ID, a.endpoint, soapAction, []byte(envelope))
	if err != nil {
		if err := adapters.Degrade(ctx, a.logger, "isir lookup", err); err != nil {
			return nil, err
		}
		return nil, nil
	}

	rec, err := parseResponse(ico, body)
	if err != nil {
		if err := adapters.Degrade(ctx, a.logger, "isir parse", err); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return rec, nil
}

// SearchByName is not offered: the insolvency register is consulted by IČO
// only, and the register's own name search is unsuitable for fuzzy matching.
func (a *Adapter) SearchByName(_ context.Context, _ string, _ int) ([]models.Candidate, error) {
	return []models.Candidate{}, nil
}

// Health probes the service with an unassigned IČO; the "no data" answer
// proves the service is up and parsing.
func (a *Adapter) Health(ctx context.Context) error {
	envelope := fmt.Sprintf(envelopeTemplate, "00000001", 1)
	body, err := a.client.PostXML(ctx, ID, a.endpoint, soapAction, []byte(envelope))
	if err != nil {
		return err
	}
	_, err = parseResponse("00000001", body)
	return err
}

func (a *Adapter) warn(ctx context.Context, msg string, args ...any) {
	if a.logger != nil {
		a.logger.WarnContext(ctx, msg, args...)
	}
}

type envelopeDTO struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response responseDTO `xml:"getIsirWsCuzkDataResponse"`
	} `xml:"Body"`
}

type responseDTO struct {
	Status statusDTO `xml:"status"`
	Data   []caseDTO `xml:"data"`
}

type statusDTO struct {
	Stav stavDTO `xml:"stav"`
}

type stavDTO struct {
	KodChyby   string `xml:"kodChyby"`
	PopisChyby string `xml:"popisChyby"`
}

type caseDTO struct {
	DruhStavKonkursu  string `xml:"druhStavKonkursu"`
	NazevOrganizace   string `xml:"nazevOrganizace"`
	CisloSenatu       string `xml:"cisloSenatu"`
	DruhVec           string `xml:"druhVec"`
	BcVec             string `xml:"bcVec"`
	Rocnik            string `xml:"rocnik"`
	NazevOsoby        string `xml:"nazevOsoby"`
	Ulice             string `xml:"ulice"`
	CisloPopisne      string `xml:"cisloPopisne"`
	Mesto             string `xml:"mesto"`
	PSC               string `xml:"psc"`
	DatumZalozeniVeci string `xml:"datumZalozeniVeci"`
	URLDetailRizeni   string `xml:"urlDetailRizeni"`
}

func (c caseDTO) proceeding() models.InsolvencyProceeding {
	status := models.ProceedingStatus(strings.ToUpper(strings.TrimSpace(c.DruhStavKonkursu)))
	return models.InsolvencyProceeding{
		CaseNumber:    c.caseNumber(),
		Court:         c.NazevOrganizace,
		Status:        status,
		DebtorName:    c.NazevOsoby,
		DebtorAddress: c.debtorAddress(),
		StartedAt:     c.DatumZalozeniVeci,
		IsActive:      status.IsActive(),
	}
}

// caseNumber assembles the court file number, e.g. "26 INS 12345/2016".
func (c caseDTO) caseNumber() string {
	if c.BcVec == "" {
		return ""
	}
	parts := []string{}
	if c.CisloSenatu != "" {
		parts = append(parts, c.CisloSenatu)
	}
	if c.DruhVec != "" {
		parts = append(parts, c.DruhVec)
	}
	num := c.BcVec
	if c.Rocnik != "" {
		num += "/" + c.Rocnik
	}
	parts = append(parts, num)
	return strings.Join(parts, " ")
}

func (c caseDTO) debtorAddress() string {
	street := strings.TrimSpace(c.Ulice)
	if street != "" && c.CisloPopisne != "" {
		street += " " + c.CisloPopisne
	}
	town := strings.TrimSpace(c.PSC + " " + c.Mesto)
	switch {
	case street != "" && town != "":
		return street + ", " + town
	case street != "":
		return street
	default:
		return town
	}
}

// parseResponse decodes a SOAP answer into an insolvency record. A nil
// record with nil error is the register's confirmed "no proceedings".
func parseResponse(ico string, body []byte) (*models.RegistryRecord, error) {
	var env envelopeDTO
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, adapters.NewAdapterError(adapters.ErrorBadData, ID, "decode SOAP response", err)
	}

	resp := env.Body.Response
	if code := strings.TrimSpace(resp.Status.Stav.KodChyby); code != "" {
		if code == codeNoData {
			return nil, nil
		}
		return nil, adapters.NewAdapterError(adapters.ErrorContractMismatch, ID,
			fmt.Sprintf("service error code %s: %s", code, resp.Status.Stav.PopisChyby), nil)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}

	details := &models.InsolvencyDetails{
		Proceedings: make([]models.InsolvencyProceeding, 0, len(resp.Data)),
	}
	for _, c := range resp.Data {
		p := c.proceeding()
		details.Proceedings = append(details.Proceedings, p)
		if p.IsActive {
			details.ActiveCount++
		}
	}

	// Audit storage is JSONB, so the XML payload travels as a JSON string.
	raw, _ := json.Marshal(string(body))

	return &models.RegistryRecord{
		RegistrationID:     ico,
		Country:            models.CountryCZ,
		RegistrationStatus: models.RegistrationUnknown,
		InsolvencyFlag:     len(details.Proceedings) > 0,
		Insolvency:         details,
		Raw:                raw,
		CheckedAt:          time.Now().UTC(),
	}, nil
}
