package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shelfmark/shelfmark/pkg/logger"
)

// HealthCheckHandler builds a probe handler. With no check functions it acts
// as a liveness probe and always answers 200 "ALIVE". With check functions
// it acts as a readiness probe: all checks must pass for 200 "READY",
// otherwise it answers 500 "NOT_READY" and logs the failing check.
func HealthCheckHandler(ctx context.Context, log *slog.Logger, checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ALIVE"))
			return
		}

		for _, check := range checks {
			if err := check(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", logger.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("NOT_READY"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	}
}
