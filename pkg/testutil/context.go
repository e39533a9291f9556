package testutil

import (
	"context"
	"net/http"

	id "firmus/pkg/domain"
	"firmus/pkg/requestcontext"
)

// WithTenant adds a tenant ID to the request context. This simulates what
// the auth middleware would do for authenticated requests. If the tenantID
// is not a valid UUID, it will not be added to the context.
func WithTenant(req *http.Request, tenantID string) *http.Request {
	if parsed, err := id.ParseTenantID(tenantID); err == nil {
		return req.WithContext(requestcontext.WithTenantID(req.Context(), parsed))
	}
	return req
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
