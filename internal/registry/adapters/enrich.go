package adapters

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"firmus/internal/registry/models"
	id "firmus/pkg/domain"
)

// MatchPolicy holds the name-resolution thresholds. The band between
// AmbiguousThreshold and AcceptThreshold is returned to the caller for
// human disambiguation instead of being decided automatically.
type MatchPolicy struct {
	// AcceptThreshold is the similarity at or above which the top search
	// candidate is accepted automatically.
	AcceptThreshold float64

	// AmbiguousThreshold is the similarity at or above which candidates
	// are worth showing to a human. Below it, a candidate is noise.
	AmbiguousThreshold float64

	// SearchDelay is the politeness pause preceding every name-search
	// call against a public registry. Direct ID lookups never wait.
	SearchDelay time.Duration

	// MaxCandidates caps how many search results an adapter is asked for.
	MaxCandidates int
}

// DefaultMatchPolicy returns the production thresholds.
func DefaultMatchPolicy() MatchPolicy {
	return MatchPolicy{
		AcceptThreshold:    0.85,
		AmbiguousThreshold: 0.60,
		SearchDelay:        300 * time.Millisecond,
		MaxCandidates:      10,
	}
}

func (p MatchPolicy) withDefaults() MatchPolicy {
	d := DefaultMatchPolicy()
	if p.AcceptThreshold <= 0 {
		p.AcceptThreshold = d.AcceptThreshold
	}
	if p.AmbiguousThreshold <= 0 {
		p.AmbiguousThreshold = d.AmbiguousThreshold
	}
	// Zero means unset; a negative delay disables pacing outright.
	if p.SearchDelay == 0 {
		p.SearchDelay = d.SearchDelay
	}
	if p.MaxCandidates <= 0 {
		p.MaxCandidates = d.MaxCandidates
	}
	return p
}

// SearchPacer spaces out name-search calls. One pacer is shared per
// adapter so the delay holds across concurrent enrichments, not just
// within one call.
type SearchPacer struct {
	limiter *rate.Limiter
}

// NewSearchPacer creates a pacer enforcing at least delay between
// searches. A non-positive delay disables pacing.
func NewSearchPacer(delay time.Duration) *SearchPacer {
	if delay <= 0 {
		return &SearchPacer{}
	}
	l := rate.NewLimiter(rate.Every(delay), 1)
	// Drain the initial token so the very first search waits as well.
	l.Allow()
	return &SearchPacer{limiter: l}
}

// Wait blocks until the next search may proceed or ctx is done.
func (p *SearchPacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// Outcome is the adapter-level resolution state.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeAmbiguous Outcome = "ambiguous"
	OutcomeNoMatch   Outcome = "no_match"
)

// Result is what one adapter enrichment produced.
type Result struct {
	Outcome    Outcome
	Method     models.MatchMethod
	Confidence float64
	Record     *models.RegistryRecord
	Candidates []models.Candidate
}

// EnrichRequest drives one adapter enrichment.
type EnrichRequest struct {
	CompanyID      id.CompanyID
	TenantID       id.TenantID
	Name           string
	RegistrationID string

	// Store persists an accepted record immediately. The orchestrator
	// passes false and persists once after aggregation.
	Store bool
}

// RecordSink persists a record accepted during enrichment.
type RecordSink interface {
	SaveRecord(ctx context.Context, companyID id.CompanyID, tenantID id.TenantID, adapterID string, rec *models.RegistryRecord, confidence float64, method models.MatchMethod) error
}

// Enricher runs the shared resolve-and-fetch template over any Adapter:
// direct ID lookup when an ID is known, otherwise paced fuzzy name search
// with threshold-based acceptance.
type Enricher struct {
	policy MatchPolicy
	pacer  *SearchPacer
	sink   RecordSink
	logger *slog.Logger
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithSink sets the sink used when EnrichRequest.Store is true.
func WithSink(sink RecordSink) EnricherOption {
	return func(e *Enricher) { e.sink = sink }
}

// WithPacer sets the shared search pacer.
func WithPacer(p *SearchPacer) EnricherOption {
	return func(e *Enricher) { e.pacer = p }
}

// WithLogger sets a logger for decision tracing.
func WithLogger(logger *slog.Logger) EnricherOption {
	return func(e *Enricher) { e.logger = logger }
}

// NewEnricher creates the enrichment template with the given policy.
func NewEnricher(policy MatchPolicy, opts ...EnricherOption) *Enricher {
	e := &Enricher{policy: policy.withDefaults()}
	for _, opt := range opts {
		opt(e)
	}
	if e.pacer == nil {
		e.pacer = NewSearchPacer(e.policy.SearchDelay)
	}
	return e
}

// Policy returns the enricher's effective match policy.
func (e *Enricher) Policy() MatchPolicy { return e.policy }

// Enrich resolves one company through one adapter.
//
// With a registration ID the lookup is direct and terminal: found yields
// a matched result with confidence 1.0, not-found yields no_match, and
// search is never consulted. Without an ID the adapter's name search runs
// after the politeness delay and the top candidate decides the outcome.
func (e *Enricher) Enrich(ctx context.Context, a Adapter, req EnrichRequest) (*Result, error) {
	adapterID := a.Descriptor().ID

	if req.RegistrationID != "" {
		rec, err := a.LookupByID(ctx, req.RegistrationID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return &Result{Outcome: OutcomeNoMatch, Method: models.MatchIDDirect}, nil
		}
		e.debug(ctx, "direct lookup matched", "adapter", adapterID, "registration_id", req.RegistrationID)
		if err := e.store(ctx, adapterID, req, rec, 1.0, models.MatchIDDirect); err != nil {
			return nil, err
		}
		return &Result{
			Outcome:    OutcomeMatched,
			Method:     models.MatchIDDirect,
			Confidence: 1.0,
			Record:     rec,
		}, nil
	}

	if err := e.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	candidates, err := a.SearchByName(ctx, req.Name, e.policy.MaxCandidates)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &Result{Outcome: OutcomeNoMatch, Method: models.MatchNameAuto}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})

	top := candidates[0]
	switch {
	case top.Similarity >= e.policy.AcceptThreshold:
		rec := top.Record
		e.debug(ctx, "name search auto-accepted", "adapter", adapterID, "similarity", top.Similarity)
		if err := e.store(ctx, adapterID, req, &rec, top.Similarity, models.MatchNameAuto); err != nil {
			return nil, err
		}
		return &Result{
			Outcome:    OutcomeMatched,
			Method:     models.MatchNameAuto,
			Confidence: top.Similarity,
			Record:     &rec,
		}, nil

	case top.Similarity >= e.policy.AmbiguousThreshold:
		ambiguous := make([]models.Candidate, 0, len(candidates))
		for _, c := range candidates {
			if c.Similarity >= e.policy.AmbiguousThreshold {
				ambiguous = append(ambiguous, c)
			}
		}
		e.debug(ctx, "name search ambiguous", "adapter", adapterID,
			"top_similarity", top.Similarity, "candidates", len(ambiguous))
		return &Result{
			Outcome:    OutcomeAmbiguous,
			Method:     models.MatchNameAuto,
			Confidence: top.Similarity,
			Candidates: ambiguous,
		}, nil

	default:
		return &Result{Outcome: OutcomeNoMatch, Method: models.MatchNameAuto}, nil
	}
}

func (e *Enricher) store(ctx context.Context, adapterID string, req EnrichRequest, rec *models.RegistryRecord, confidence float64, method models.MatchMethod) error {
	if !req.Store || e.sink == nil {
		return nil
	}
	return e.sink.SaveRecord(ctx, req.CompanyID, req.TenantID, adapterID, rec, confidence, method)
}

func (e *Enricher) debug(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.DebugContext(ctx, msg, args...)
	}
}
