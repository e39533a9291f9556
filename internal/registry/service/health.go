package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"firmus/internal/registry/adapters"
	"firmus/internal/registry/models"
)

// healthProbeTimeout bounds one adapter's health probe so a single stuck
// registry cannot stall the diagnostics endpoint.
const healthProbeTimeout = 5 * time.Second

// AdapterStatus is one adapter's descriptor plus its live health probe
// result.
type AdapterStatus struct {
	ID            string            `json:"id"`
	Country       models.Country    `json:"country"`
	Protocol      adapters.Protocol `json:"protocol"`
	Supplementary bool              `json:"supplementary"`
	DependsOn     []string          `json:"depends_on,omitempty"`
	Healthy       bool              `json:"healthy"`
	Error         string            `json:"error,omitempty"`
}

// AdapterStatuses probes every registered adapter in parallel. This is
// diagnostics only; enrichment itself stays strictly sequential.
func (s *Service) AdapterStatuses(ctx context.Context) []AdapterStatus {
	all := s.registry.All()
	statuses := make([]AdapterStatus, len(all))

	g, ctx := errgroup.WithContext(ctx)
	for i, a := range all {
		d := a.Descriptor()
		statuses[i] = AdapterStatus{
			ID:            d.ID,
			Country:       d.Country,
			Protocol:      d.Protocol,
			Supplementary: d.Supplementary,
			DependsOn:     d.DependsOn,
		}

		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
			defer cancel()

			if err := a.Health(probeCtx); err != nil {
				statuses[i].Error = err.Error()
			} else {
				statuses[i].Healthy = true
			}
			return nil
		})
	}
	// Probes never return errors; failures land in the status entries.
	_ = g.Wait()
	return statuses
}
