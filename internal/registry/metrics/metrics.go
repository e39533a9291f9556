// Package metrics provides observability for the registry subsystem.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for adapter calls and
// enrichment outcomes. All methods are nil-safe so tests can pass a nil
// receiver without wiring a registry.
type Metrics struct {
	// Adapter call totals by adapter, operation and outcome
	AdapterCalls *prometheus.CounterVec

	// Adapter call latencies by adapter and operation
	AdapterLatency *prometheus.HistogramVec

	// Enrichment run outcomes by terminal status
	EnrichmentOutcome *prometheus.CounterVec

	// Distribution of computed credibility scores
	CredibilityScore prometheus.Histogram

	// Cache hit/miss totals for direct lookups
	LookupCache *prometheus.CounterVec
}

// New creates a Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		AdapterCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "firmus_registry_adapter_calls_total",
			Help: "Total registry adapter calls by adapter, operation and outcome",
		}, []string{"adapter", "operation", "outcome"}), // operation: "lookup", "search", "health"

		AdapterLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "firmus_registry_adapter_duration_seconds",
			Help:    "Duration of registry adapter calls by adapter and operation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"adapter", "operation"}),

		EnrichmentOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "firmus_registry_enrichment_outcomes_total",
			Help: "Total enrichment runs by terminal status",
		}, []string{"status"}),

		CredibilityScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "firmus_registry_credibility_score",
			Help:    "Distribution of computed credibility scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),

		LookupCache: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "firmus_registry_lookup_cache_total",
			Help: "Direct-lookup cache results by adapter and result",
		}, []string{"adapter", "result"}), // result: "hit", "miss"
	}
}

// ObserveAdapterCall records one adapter call with its duration.
func (m *Metrics) ObserveAdapterCall(adapter, operation, outcome string, d time.Duration) {
	if m != nil {
		m.AdapterCalls.WithLabelValues(adapter, operation, outcome).Inc()
		m.AdapterLatency.WithLabelValues(adapter, operation).Observe(d.Seconds())
	}
}

// IncrementOutcome records one enrichment run's terminal status.
func (m *Metrics) IncrementOutcome(status string) {
	if m != nil {
		m.EnrichmentOutcome.WithLabelValues(status).Inc()
	}
}

// ObserveCredibilityScore records a computed score.
func (m *Metrics) ObserveCredibilityScore(score int) {
	if m != nil {
		m.CredibilityScore.Observe(float64(score))
	}
}

// IncrementCache records a cache hit or miss for a direct lookup.
func (m *Metrics) IncrementCache(adapter, result string) {
	if m != nil {
		m.LookupCache.WithLabelValues(adapter, result).Inc()
	}
}
