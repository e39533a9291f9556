// Package adapters defines the capability every national business-registry
// implementation satisfies, the shared fuzzy name-matching helpers, and the
// enrichment template that turns one adapter into a resolve-and-fetch step.
//
// Adapters encapsulate their wire protocol completely. A SOAP insolvency
// register and a REST company register expose the same three operations;
// callers cannot tell them apart.
package adapters

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"firmus/internal/registry/models"
	pstrings "firmus/pkg/platform/strings"
)

// Protocol defines the supported communication protocols for registry adapters.
type Protocol string

const (
	ProtocolREST Protocol = "rest"
	ProtocolSOAP Protocol = "soap"
)

// Descriptor advertises what an adapter covers and how it matches names.
type Descriptor struct {
	// ID is the stable adapter key, e.g. "cz_ares". Used in source_data
	// maps, error maps, metrics labels and audit rows.
	ID string

	Country  models.Country
	Protocol Protocol

	// CountryNames are the spellings accepted for hq_country matching,
	// including the two-letter code. Casing and duplicates are cleaned
	// up at registration.
	CountryNames []string

	// TLDs are the domain suffixes claimed by this adapter, with leading
	// dot, e.g. ".cz".
	TLDs []string

	// Supplementary adapters never resolve a company on their own; they
	// run after a primary adapter produced a registration ID.
	Supplementary bool

	// DependsOn lists the primary adapter IDs whose output feeds this
	// supplementary adapter.
	DependsOn []string

	// SuffixPatterns strip country-specific legal-form suffixes before
	// name comparison ("s.r.o.", "ASA", "Oyj", "SARL").
	SuffixPatterns []*regexp.Regexp
}

// MatchesCompany reports whether this adapter claims the given company
// coordinates: true iff the country name/code matches or the domain TLD
// matches. Selection precedence between the two lives in the Registry.
func (d Descriptor) MatchesCompany(hqCountry, domain string) bool {
	return d.matchesCountry(hqCountry) || d.matchesDomain(domain)
}

func (d Descriptor) matchesCountry(hqCountry string) bool {
	c := strings.ToLower(strings.TrimSpace(hqCountry))
	if c == "" {
		return false
	}
	for _, name := range d.CountryNames {
		if c == name {
			return true
		}
	}
	return false
}

func (d Descriptor) matchesDomain(domain string) bool {
	tld := domainTLD(domain)
	if tld == "" {
		return false
	}
	for _, t := range d.TLDs {
		if tld == t {
			return true
		}
	}
	return false
}

// NameSimilarity scores a query against a candidate name using this
// adapter's suffix patterns. Result is in [0,1].
func (d Descriptor) NameSimilarity(query, candidate string) float64 {
	return Similarity(query, candidate, d.SuffixPatterns)
}

// domainTLD extracts the final dotted label of a hostname, lowercased and
// with a leading dot. Scheme prefixes and paths are tolerated so callers
// can pass whatever the CRM stored.
func domainTLD(domain string) string {
	h := strings.ToLower(strings.TrimSpace(domain))
	if h == "" {
		return ""
	}
	if i := strings.Index(h, "://"); i >= 0 {
		h = h[i+3:]
	}
	if i := strings.IndexAny(h, "/?#"); i >= 0 {
		h = h[:i]
	}
	if i := strings.LastIndexByte(h, ':'); i >= 0 && !strings.Contains(h[i:], "]") {
		h = h[:i]
	}
	i := strings.LastIndexByte(h, '.')
	if i < 0 || i == len(h)-1 {
		return ""
	}
	return h[i:]
}

// Adapter is the universal interface all national registries implement.
type Adapter interface {
	// Descriptor returns the adapter's static capability description.
	Descriptor() Descriptor

	// LookupByID performs an exact lookup. A confirmed "not found" returns
	// (nil, nil); transport and parse failures are handled inside the
	// adapter and degrade to (nil, nil) with a logged warning. Only
	// genuinely unexpected conditions (bad credentials, contract drift)
	// surface as errors.
	LookupByID(ctx context.Context, registrationID string) (*models.RegistryRecord, error)

	// SearchByName performs a best-effort fuzzy search, returning up to
	// maxResults candidates ordered descending by similarity. No hits is
	// an empty slice, never nil-as-error.
	SearchByName(ctx context.Context, name string, maxResults int) ([]models.Candidate, error)

	// Health checks whether the upstream registry is reachable.
	Health(ctx context.Context) error
}

// Registry holds the configured adapter set. Built once at process start
// and injected; registration order defines selection precedence.
type Registry struct {
	ordered []Adapter
	descs   []Descriptor
	byID    map[string]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Adapter)}
}

// Register adds an adapter. IDs must be unique. The descriptor's match
// sets are normalized here so selection never depends on how an adapter
// spelled them.
func (r *Registry) Register(a Adapter) error {
	d := a.Descriptor()
	if d.ID == "" {
		return fmt.Errorf("adapter descriptor has empty ID")
	}
	if _, exists := r.byID[d.ID]; exists {
		return fmt.Errorf("adapter %s already registered", d.ID)
	}
	d.CountryNames = pstrings.DedupeAndTrimLower(d.CountryNames)
	d.TLDs = pstrings.DedupeAndTrimLower(d.TLDs)
	r.byID[d.ID] = a
	r.ordered = append(r.ordered, a)
	r.descs = append(r.descs, d)
	return nil
}

// Get retrieves an adapter by ID.
func (r *Registry) Get(id string) (Adapter, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// All returns every registered adapter in registration order.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// FindApplicable selects the run list for a company: at most one primary
// adapter plus any supplementary adapters depending on it.
//
// Country wins over domain: the TLD is consulted only when hq_country is
// absent or matches no adapter. A company resolves to one country, so the
// first primary claiming the coordinates (in registration order) takes it.
func (r *Registry) FindApplicable(hqCountry, domain string) []Adapter {
	primary := r.findPrimary(hqCountry, domain)
	if primary == nil {
		return nil
	}

	run := []Adapter{primary}
	primaryID := primary.Descriptor().ID
	for i, a := range r.ordered {
		d := r.descs[i]
		if !d.Supplementary {
			continue
		}
		for _, dep := range d.DependsOn {
			if dep == primaryID {
				run = append(run, a)
				break
			}
		}
	}
	return run
}

func (r *Registry) findPrimary(hqCountry, domain string) Adapter {
	for i, a := range r.ordered {
		if d := r.descs[i]; !d.Supplementary && d.matchesCountry(hqCountry) {
			return a
		}
	}
	for i, a := range r.ordered {
		if d := r.descs[i]; !d.Supplementary && d.matchesDomain(domain) {
			return a
		}
	}
	return nil
}
