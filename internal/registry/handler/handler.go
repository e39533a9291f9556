package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"firmus/internal/registry/models"
	"firmus/internal/registry/service"
	id "firmus/pkg/domain"
	dErrors "firmus/pkg/domain-errors"
	"firmus/pkg/platform/httputil"
	"firmus/pkg/requestcontext"
)

// Service defines the enrichment operations the handler exposes.
type Service interface {
	EnrichCompany(ctx context.Context, req models.EnrichmentRequest) (*models.EnrichmentResult, error)
	GetProfile(ctx context.Context, companyID id.CompanyID) (*models.LegalProfile, error)
	AdapterStatuses(ctx context.Context) []service.AdapterStatus
}

// Handler wires registry endpoints to the enrichment service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registry handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registry/companies/{companyID}/enrich", h.HandleEnrich)
	r.Get("/registry/companies/{companyID}/profile", h.HandleGetProfile)
	r.Get("/registry/adapters", h.HandleListAdapters)
}

// HandleEnrich handles POST /registry/companies/{companyID}/enrich.
func (h *Handler) HandleEnrich(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	companyID, err := id.ParseCompanyID(chi.URLParam(r, "companyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[EnrichRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.EnrichCompany(ctx, models.EnrichmentRequest{
		CompanyID:      companyID,
		TenantID:       tenantID,
		Name:           req.Name,
		RegistrationID: req.RegistrationID,
		HQCountry:      req.HQCountry,
		Domain:         req.Domain,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "company enrichment failed",
			"request_id", requestID,
			"company_id", companyID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "company enrichment finished",
		"request_id", requestID,
		"company_id", companyID,
		"status", result.Status,
		"adapters", result.AdaptersRun,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	// Every terminal outcome, including an adapter-level error, is a
	// completed run from the caller's view; the status field carries the
	// distinction.
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleGetProfile handles GET /registry/companies/{companyID}/profile.
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	companyID, err := id.ParseCompanyID(chi.URLParam(r, "companyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	profile, err := h.service.GetProfile(ctx, companyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if profile.TenantID != tenantID {
		// Same envelope as absence so profile existence does not leak
		// across tenants.
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "company has no legal profile"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// HandleListAdapters handles GET /registry/adapters.
func (h *Handler) HandleListAdapters(w http.ResponseWriter, r *http.Request) {
	statuses := h.service.AdapterStatuses(r.Context())
	httputil.WriteJSON(w, http.StatusOK, AdaptersResponse{Adapters: statuses})
}
