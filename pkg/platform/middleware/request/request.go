// Package request provides middleware that assigns every inbound request a
// request ID. Inbound X-Request-ID headers are trusted so IDs propagate
// across service hops; otherwise a fresh UUID is generated. The ID is
// stored via requestcontext and echoed on the response.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"firmus/pkg/requestcontext"
)

const headerName = "X-Request-ID"

// Middleware attaches a request ID to the context and response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerName)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(headerName, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
