// Package cache fronts adapter direct lookups with a TTL cache. Only
// LookupByID results are cached: a registration ID identifies exactly one
// company, so the result is deterministic within the TTL. Name searches
// and confirmed not-founds are never cached.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"firmus/internal/registry/adapters"
	"firmus/internal/registry/metrics"
	"firmus/internal/registry/models"
	"firmus/pkg/platform/sentinel"
)

// Store is the key-value backend behind the cache. Implementations return
// sentinel.ErrNotFound for absent or expired keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Adapter wraps a registry adapter with a lookup cache. SearchByName and
// Health pass straight through.
type Adapter struct {
	inner   adapters.Adapter
	store   Store
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a cached Adapter.
type Option func(*Adapter)

// WithMetrics records cache hits and misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// WithLogger sets a logger for cache degradation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// Wrap puts a TTL cache in front of an adapter's LookupByID. A nil store
// or non-positive TTL returns the adapter unchanged.
func Wrap(inner adapters.Adapter, store Store, ttl time.Duration, opts ...Option) adapters.Adapter {
	if store == nil || ttl <= 0 {
		return inner
	}
	a := &Adapter{inner: inner, store: store, ttl: ttl}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Descriptor returns the wrapped adapter's descriptor.
func (a *Adapter) Descriptor() adapters.Descriptor {
	return a.inner.Descriptor()
}

// LookupByID serves a cached record when present, otherwise delegates and
// caches a found result. Cache failures degrade to the live lookup: a
// broken Redis must never break enrichment.
func (a *Adapter) LookupByID(ctx context.Context, registrationID string) (*models.RegistryRecord, error) {
	adapterID := a.inner.Descriptor().ID
	key := a.key(adapterID, registrationID)

	if raw, err := a.store.Get(ctx, key); err == nil {
		var rec models.RegistryRecord
		if err := json.Unmarshal(raw, &rec); err == nil {
			a.metrics.IncrementCache(adapterID, "hit")
			return &rec, nil
		}
		a.warn(ctx, "cached record corrupt, falling through", adapterID, err)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		a.warn(ctx, "cache read failed", adapterID, err)
	}
	a.metrics.IncrementCache(adapterID, "miss")

	rec, err := a.inner.LookupByID(ctx, registrationID)
	if err != nil || rec == nil {
		return rec, err
	}

	if raw, err := json.Marshal(rec); err == nil {
		if err := a.store.Set(ctx, key, raw, a.ttl); err != nil {
			a.warn(ctx, "cache write failed", adapterID, err)
		}
	}
	return rec, nil
}

// SearchByName delegates to the wrapped adapter. Search results depend on
// upstream ranking and are not cached.
func (a *Adapter) SearchByName(ctx context.Context, name string, maxResults int) ([]models.Candidate, error) {
	return a.inner.SearchByName(ctx, name, maxResults)
}

// Health delegates to the wrapped adapter.
func (a *Adapter) Health(ctx context.Context) error {
	return a.inner.Health(ctx)
}

func (a *Adapter) key(adapterID, registrationID string) string {
	return "registry:lookup:" + adapterID + ":" + registrationID
}

func (a *Adapter) warn(ctx context.Context, msg, adapterID string, err error) {
	if a.logger != nil {
		a.logger.WarnContext(ctx, msg, "adapter", adapterID, "error", err)
	}
}
