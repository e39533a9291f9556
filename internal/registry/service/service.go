// Package service orchestrates company enrichment across national
// registry adapters: adapter selection, primary resolution, dependent
// supplementary lookups, aggregation into one legal profile, credibility
// scoring, persistence and promotion.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"firmus/internal/audit"
	"firmus/internal/registry/adapters"
	"firmus/internal/registry/credibility"
	"firmus/internal/registry/metrics"
	"firmus/internal/registry/models"
	"firmus/internal/registry/ports"
	id "firmus/pkg/domain"
	dErrors "firmus/pkg/domain-errors"
	"firmus/pkg/platform/sentinel"
	"firmus/pkg/requestcontext"
)

// ReasonNoApplicableRegistry explains a skipped run: the company's
// coordinates matched no registered adapter.
const ReasonNoApplicableRegistry = "no_applicable_registry"

// Service runs the enrichment state machine. Execution within one call
// is strictly sequential: the supplementary lookup needs the registration
// ID the primary step produced, so there is nothing to fan out.
type Service struct {
	registry  *adapters.Registry
	enrichers map[string]*adapters.Enricher
	policy    adapters.MatchPolicy
	store     ports.ProfileStore
	promoter  ports.CompanyPromoter
	audit     *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	clock     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPromoter sets the company aggregate promoter.
func WithPromoter(p ports.CompanyPromoter) Option {
	return func(s *Service) { s.promoter = p }
}

// WithAudit sets the audit publisher.
func WithAudit(a *audit.Publisher) Option {
	return func(s *Service) { s.audit = a }
}

// WithMetrics sets the metrics instance.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// New constructs the orchestrator. One enricher is built per registered
// adapter so the politeness pacer is shared across every enrichment that
// hits the same upstream registry.
func New(registry *adapters.Registry, policy adapters.MatchPolicy, store ports.ProfileStore, opts ...Option) *Service {
	s := &Service{
		registry:  registry,
		enrichers: make(map[string]*adapters.Enricher),
		policy:    policy,
		store:     store,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, a := range registry.All() {
		s.enrichers[a.Descriptor().ID] = adapters.NewEnricher(policy,
			adapters.WithLogger(s.logger))
	}
	return s
}

// EnrichCompany resolves one company through the applicable adapters and
// persists the aggregated legal profile.
//
// State machine: select adapters, run the primary, then either return an
// ambiguous or no-match outcome, or run supplementary adapters gated on
// the registration ID, aggregate, score, persist and promote. A failing
// adapter is recorded in the result's Errors map without discarding what
// sibling adapters already produced.
func (s *Service) EnrichCompany(ctx context.Context, req models.EnrichmentRequest) (*models.EnrichmentResult, error) {
	if req.CompanyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "company id is required")
	}
	if req.Name == "" && req.RegistrationID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "either name or registration_id is required")
	}

	started := s.clock()

	run := s.registry.FindApplicable(req.HQCountry, req.Domain)
	if len(run) == 0 {
		s.info(ctx, "enrichment skipped, no applicable registry",
			"company_id", req.CompanyID, "hq_country", req.HQCountry, "domain", req.Domain)
		result := &models.EnrichmentResult{
			Status: models.StatusSkipped,
			Reason: ReasonNoApplicableRegistry,
		}
		s.finish(ctx, req, result, nil, started)
		return result, nil
	}

	primary := run[0]
	primaryID := primary.Descriptor().ID
	adaptersRun := []string{primaryID}
	errorsByAdapter := make(map[string]string)

	primaryResult, err := s.runAdapter(ctx, primary, adapters.EnrichRequest{
		CompanyID:      req.CompanyID,
		TenantID:       req.TenantID,
		Name:           req.Name,
		RegistrationID: req.RegistrationID,
	}, req)
	if err != nil {
		errorsByAdapter[primaryID] = err.Error()
		s.warn(ctx, "primary adapter failed", "adapter", primaryID, "company_id", req.CompanyID, "error", err)
		result := &models.EnrichmentResult{
			Status:      models.StatusError,
			Reason:      "primary registry lookup failed",
			AdaptersRun: adaptersRun,
			Errors:      errorsByAdapter,
		}
		s.finish(ctx, req, result, nil, started)
		return result, nil
	}

	switch primaryResult.Outcome {
	case adapters.OutcomeAmbiguous:
		// The caller must pick a candidate and re-invoke with its
		// registration ID. Nothing is chosen or stored here.
		result := &models.EnrichmentResult{
			Status:      models.StatusAmbiguous,
			Candidates:  primaryResult.Candidates,
			AdaptersRun: adaptersRun,
		}
		s.finish(ctx, req, result, nil, started)
		return result, nil

	case adapters.OutcomeNoMatch:
		result := &models.EnrichmentResult{
			Status:      models.StatusNoMatch,
			AdaptersRun: adaptersRun,
		}
		s.finish(ctx, req, result, nil, started)
		return result, nil
	}

	profile := s.newProfile(req, primaryID, primaryResult)

	// Supplementary adapters are gated on the registration ID the
	// primary step settled on.
	regID := profile.RegistrationID
	for _, supp := range run[1:] {
		suppID := supp.Descriptor().ID
		if regID == "" {
			continue
		}
		adaptersRun = append(adaptersRun, suppID)

		suppResult, err := s.runAdapter(ctx, supp, adapters.EnrichRequest{
			CompanyID:      req.CompanyID,
			TenantID:       req.TenantID,
			Name:           req.Name,
			RegistrationID: regID,
		}, req)
		if err != nil {
			// Keep the primary result; the profile just misses this
			// adapter's overlay.
			errorsByAdapter[suppID] = err.Error()
			s.warn(ctx, "supplementary adapter failed", "adapter", suppID, "company_id", req.CompanyID, "error", err)
			continue
		}
		if suppResult.Outcome == adapters.OutcomeAmbiguous {
			result := &models.EnrichmentResult{
				Status:      models.StatusAmbiguous,
				Candidates:  suppResult.Candidates,
				AdaptersRun: adaptersRun,
				Errors:      emptyAsNil(errorsByAdapter),
			}
			s.finish(ctx, req, result, nil, started)
			return result, nil
		}
		overlaySupplementary(profile, suppID, suppResult)
	}

	scored := credibility.Compute(profile, s.clock())
	profile.CredibilityScore = scored.Score
	profile.CredibilityFactors = scored.Factors
	s.metrics.ObserveCredibilityScore(scored.Score)

	if err := s.store.Upsert(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist legal profile")
	}

	if s.promoter != nil {
		if err := s.promoter.PromoteLegalFields(ctx, profile.Promote()); err != nil {
			// The profile row is the source of truth; a promotion
			// failure degrades the company summary, not the run.
			errorsByAdapter["promotion"] = err.Error()
			s.warn(ctx, "company promotion failed", "company_id", req.CompanyID, "error", err)
		}
	}

	score := profile.CredibilityScore
	result := &models.EnrichmentResult{
		Status:             models.StatusEnriched,
		RegistrationID:     profile.RegistrationID,
		OfficialName:       profile.OfficialName,
		CredibilityScore:   &score,
		CredibilityFactors: profile.CredibilityFactors,
		AdaptersRun:        adaptersRun,
		Errors:             emptyAsNil(errorsByAdapter),
	}
	s.finish(ctx, req, result, profile, started)
	return result, nil
}

// GetProfile returns the stored legal profile for a company.
func (s *Service) GetProfile(ctx context.Context, companyID id.CompanyID) (*models.LegalProfile, error) {
	profile, err := s.store.GetByCompany(ctx, companyID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "company has no legal profile")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load legal profile")
	}
	return profile, nil
}

// runAdapter executes one adapter enrichment with panic isolation, emits
// metrics and appends the lookup audit row. An error return here means a
// genuinely unexpected failure; expected conditions were already absorbed
// inside the adapter.
func (s *Service) runAdapter(ctx context.Context, a adapters.Adapter, enrichReq adapters.EnrichRequest, req models.EnrichmentRequest) (result *adapters.Result, err error) {
	adapterID := a.Descriptor().ID
	operation := "search"
	if enrichReq.RegistrationID != "" {
		operation = "lookup"
	}

	started := s.clock()
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("adapter %s panicked: %v", adapterID, r)
		}

		outcome := "error"
		if err == nil && result != nil {
			outcome = string(result.Outcome)
		}
		s.metrics.ObserveAdapterCall(adapterID, operation, outcome, s.clock().Sub(started))
		s.appendLookup(ctx, adapterID, operation, outcome, enrichReq, req, result)
	}()

	// The map is built once in New and must stay read-only here, the
	// handler calls into this from concurrent requests.
	enricher, ok := s.enrichers[adapterID]
	if !ok {
		enricher = adapters.NewEnricher(s.policy, adapters.WithLogger(s.logger))
	}
	return enricher.Enrich(ctx, a, enrichReq)
}

func (s *Service) appendLookup(ctx context.Context, adapterID, operation, outcome string, enrichReq adapters.EnrichRequest, req models.EnrichmentRequest, result *adapters.Result) {
	lookup := &models.RegistryLookup{
		ID:        id.NewLookupID(),
		CompanyID: req.CompanyID,
		TenantID:  req.TenantID,
		Adapter:   adapterID,
		Operation: operation,
		Query:     enrichReq.RegistrationID,
		Outcome:   outcome,
		CheckedAt: s.clock(),
	}
	if lookup.Query == "" {
		lookup.Query = enrichReq.Name
	}
	if result != nil && result.Record != nil {
		lookup.Payload = result.Record.Raw
	}

	if err := s.store.AppendLookup(ctx, lookup); err != nil {
		s.warn(ctx, "lookup audit append failed", "adapter", adapterID, "error", err)
	}
}

// newProfile builds the profile baseline from the primary adapter's
// record.
func (s *Service) newProfile(req models.EnrichmentRequest, primaryID string, res *adapters.Result) *models.LegalProfile {
	rec := res.Record
	profile := &models.LegalProfile{
		CompanyID:          req.CompanyID,
		TenantID:           req.TenantID,
		RegistrationID:     rec.RegistrationID,
		TaxID:              rec.TaxID,
		OfficialName:       rec.OfficialName,
		LegalForm:          rec.LegalForm,
		LegalFormName:      rec.LegalFormName,
		DateEstablished:    rec.DateEstablished,
		DateDissolved:      rec.DateDissolved,
		RegisteredAddress:  rec.RegisteredAddress,
		City:               rec.City,
		PostalCode:         rec.PostalCode,
		NACECodes:          rec.NACECodes,
		RegistrationCourt:  rec.RegistrationCourt,
		RegistrationNumber: rec.RegistrationNumber,
		RegisteredCapital:  rec.RegisteredCapital,
		Directors:          rec.Directors,
		RegistrationStatus: rec.RegistrationStatus,
		Country:            rec.Country,
		InsolvencyFlag:     rec.InsolvencyFlag,
		MatchConfidence:    res.Confidence,
		MatchMethod:        res.Method,
		SourceData:         map[string]json.RawMessage{},
		EnrichedAt:         s.clock(),
	}
	if len(rec.Raw) > 0 {
		profile.SourceData[primaryID] = rec.Raw
	}
	return profile
}

// overlaySupplementary merges one supplementary adapter's findings into
// the profile. Only insolvency fields are overlaid; the baseline identity
// fields always come from the primary record. A confirmed-empty outcome
// leaves the baseline untouched.
func overlaySupplementary(profile *models.LegalProfile, adapterID string, res *adapters.Result) {
	if res.Outcome != adapters.OutcomeMatched || res.Record == nil {
		return
	}
	rec := res.Record

	profile.InsolvencyFlag = rec.InsolvencyFlag
	if rec.Insolvency != nil {
		profile.InsolvencyDetails = rec.Insolvency.Proceedings
		profile.ActiveInsolvencyCount = rec.Insolvency.ActiveCount
	}
	if len(rec.Raw) > 0 {
		if profile.SourceData == nil {
			profile.SourceData = map[string]json.RawMessage{}
		}
		profile.SourceData[adapterID] = rec.Raw
	}
}

// finish emits the audit event and outcome metric for a terminal state.
// profile is non-nil only for enriched outcomes.
func (s *Service) finish(ctx context.Context, req models.EnrichmentRequest, result *models.EnrichmentResult, profile *models.LegalProfile, started time.Time) {
	s.metrics.IncrementOutcome(string(result.Status))

	if s.audit == nil {
		return
	}
	event := audit.Event{
		CompanyID:        req.CompanyID,
		TenantID:         req.TenantID,
		RequestID:        requestcontext.RequestID(ctx),
		Status:           string(result.Status),
		Reason:           result.Reason,
		AdaptersRun:      result.AdaptersRun,
		CredibilityScore: result.CredibilityScore,
		DurationMS:       s.clock().Sub(started).Milliseconds(),
		Timestamp:        s.clock(),
	}
	if profile != nil {
		event.MatchMethod = string(profile.MatchMethod)
		event.MatchConfidence = profile.MatchConfidence
	}
	s.audit.Emit(ctx, event)
}

func emptyAsNil(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}

func (s *Service) info(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *Service) warn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}
