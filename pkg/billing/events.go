package billing

import (
	"context"
	"log/slog"
)

// EventLogger captures structured billing audit events. Logging must never
// block or fail a billing flow, so the interface returns nothing.
type EventLogger interface {
	Log(ctx context.Context, event AuditEvent)
}

// SlogEventLogger forwards audit events to the application logger.
type SlogEventLogger struct {
	logger *slog.Logger
}

// NewSlogEventLogger returns an EventLogger writing to logger, or
// slog.Default() when logger is nil.
func NewSlogEventLogger(logger *slog.Logger) *SlogEventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogEventLogger{logger: logger}
}

func (l *SlogEventLogger) Log(ctx context.Context, event AuditEvent) {
	attrs := []any{
		slog.String("event_type", string(event.Type)),
		slog.String("subscription_id", event.SubscriptionID),
		slog.String("actor_id", event.ActorID),
		slog.Time("occurred_at", event.OccurredAt),
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String("meta_"+k, v))
	}
	l.logger.InfoContext(ctx, "billing event", attrs...)
}
