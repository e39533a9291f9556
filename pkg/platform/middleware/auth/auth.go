package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "firmus/pkg/domain"
	request "firmus/pkg/platform/middleware/request"
	"firmus/pkg/requestcontext"
)

// TokenValidator defines the interface for validating service JWT tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenClaims represents the claims we expect from the token validator.
type TokenClaims struct {
	TenantID string
	JTI      string
}

// GetTenantID retrieves the authenticated tenant ID from the context.
func GetTenantID(ctx context.Context) id.TenantID {
	return requestcontext.TenantID(ctx)
}

// WithTenantID injects a tenant ID into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithTenantID(ctx context.Context, tenantID id.TenantID) context.Context {
	return requestcontext.WithTenantID(ctx, tenantID)
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireTenant authenticates the calling service via a Bearer token and
// stores the tenant ID claimed by the token in the request context.
// Requests without a valid token never reach the next handler.
func RequireTenant(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			ctx := r.Context()
			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			tenantID, err := id.ParseTenantID(claims.TenantID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - token missing tenant claim",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Token carries no valid tenant")
				return
			}

			ctx = requestcontext.WithTenantID(ctx, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HeaderTenant resolves the tenant from the X-Tenant-ID header instead of a
// signed token. Development deployments only; never enable where the network
// boundary is not trusted.
func HeaderTenant(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tenantID, err := id.ParseTenantID(r.Header.Get("X-Tenant-ID"))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - missing or invalid tenant header",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "X-Tenant-ID header required")
				return
			}

			ctx = requestcontext.WithTenantID(ctx, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
