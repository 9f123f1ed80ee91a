// Package environment carries the deployment environment (development,
// staging, production) through request contexts, so downstream code and log
// records can tell which deployment they are running in without threading a
// parameter everywhere.
//
// The HTTP middleware stamps every request context; FromContext and the
// Is* predicates read it back; LoggerExtractor surfaces it as a slog
// attribute via the logger package's context extractors.
package environment

import (
	"context"
	"log/slog"
	"net/http"
)

// Environment names one deployment tier.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

type ctxKey struct{}

// WithContext returns a context carrying env.
func WithContext(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, ctxKey{}, env)
}

// FromContext returns the environment stored in ctx, or "" when absent.
func FromContext(ctx context.Context) Environment {
	if ctx == nil {
		return ""
	}
	env, _ := ctx.Value(ctxKey{}).(Environment)
	return env
}

// IsProduction reports whether ctx carries the production environment.
// The short "prod" spelling some deployments use counts too.
func IsProduction(ctx context.Context) bool {
	env := FromContext(ctx)
	return env == Production || env == "prod"
}

// IsStaging reports whether ctx carries the staging environment.
func IsStaging(ctx context.Context) bool {
	env := FromContext(ctx)
	return env == Staging || env == "stage"
}

// IsDevelopment reports whether ctx carries the development environment.
func IsDevelopment(ctx context.Context) bool {
	env := FromContext(ctx)
	return env == Development || env == "dev"
}

// Middleware stamps env onto the context of every request passing through.
func Middleware(env Environment) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), env)))
		})
	}
}

// LoggerExtractor adapts FromContext to the logger package's context
// extractor signature.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if env := FromContext(ctx); env != "" {
			return slog.String("env", string(env)), true
		}
		return slog.Attr{}, false
	}
}
