package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

// ContextKeyRequestID carries the request identifier through the handler
// chain.
const ContextKeyRequestID contextKey = "gateway.request-id"

const requestIDHeader = "X-Request-Id"

// RequestID assigns every request a UUID unless the client supplied one, and
// echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimSpace(req.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(req.Context(), ContextKeyRequestID, id)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// RequestIDFromContext extracts the identifier assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}
