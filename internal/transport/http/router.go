// Package httptransport assembles the HTTP surface: middleware chain,
// operational endpoints and the registry API mount. Business logic lives
// behind the mounted handlers.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	registryhandler "firmus/internal/registry/handler"
	"firmus/pkg/platform/httputil"
	authmw "firmus/pkg/platform/middleware/auth"
	"firmus/pkg/platform/middleware/metadata"
	"firmus/pkg/platform/middleware/request"
	"firmus/pkg/platform/middleware/requesttime"
)

const requestTimeout = 60 * time.Second

// NewRouter wires the public endpoints. When validator is nil the tenant
// is taken from the X-Tenant-ID header; that mode is for development
// deployments behind a trusted boundary only.
func NewRouter(registry *registryhandler.Handler, validator authmw.TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(request.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Timeout(requestTimeout))

	r.Get("/healthz", handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if validator != nil {
			r.Use(authmw.RequireTenant(validator, logger))
		} else {
			r.Use(authmw.HeaderTenant(logger))
		}
		registry.Register(r)
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
