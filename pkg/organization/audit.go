package organization

import (
	"context"
	"log/slog"
)

// SlogAuditLogger forwards membership audit events to the application
// logger.
type SlogAuditLogger struct {
	logger *slog.Logger
}

// NewSlogAuditLogger returns an AuditLogger writing to logger, or
// slog.Default() when logger is nil.
func NewSlogAuditLogger(logger *slog.Logger) *SlogAuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditLogger{logger: logger}
}

func (l *SlogAuditLogger) Log(ctx context.Context, event AuditEvent) {
	attrs := []any{
		slog.String("action", string(event.Action)),
		slog.String("organization_id", event.OrganizationID),
		slog.String("actor_id", event.ActorID),
		slog.String("subject_id", event.SubjectID),
		slog.Time("occurred_at", event.Timestamp),
	}
	if event.RoleBefore != "" {
		attrs = append(attrs, slog.String("role_before", string(event.RoleBefore)))
	}
	if event.RoleAfter != "" {
		attrs = append(attrs, slog.String("role_after", string(event.RoleAfter)))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String("meta_"+k, v))
	}
	l.logger.InfoContext(ctx, "membership event", attrs...)
}
