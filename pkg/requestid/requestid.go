// Package requestid correlates log records across one HTTP request.
//
// Middleware picks the request ID: the inbound X-Request-ID header when it
// passes validation, a fresh UUID otherwise. The ID travels on the request
// context and is echoed in the response header so gateway logs and service
// logs line up. LoggerExtractor plugs the ID into the logger package's
// context extractors.
package requestid

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Header is the request-ID header exchanged with clients and the gateway.
const Header = "X-Request-ID"

// maxLen bounds client-supplied IDs so hostile headers cannot bloat logs.
const maxLen = 128

type ctxKey struct{}

// WithContext returns a context carrying the request ID.
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request ID stored in ctx, or "" when absent.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Middleware ensures every request carries a usable request ID. Client IDs
// that are empty, too long, or contain characters outside [A-Za-z0-9_-] are
// replaced rather than rejected.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if !valid(id) {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
	})
}

// LoggerExtractor adapts FromContext to the logger package's context
// extractor signature.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := FromContext(ctx); id != "" {
			return slog.String("request_id", id), true
		}
		return slog.Attr{}, false
	}
}

func valid(id string) bool {
	if id == "" || len(id) > maxLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
