package organization

import (
	"context"
	"log/slog"
)

// SeatCounter is the slice of the repository the reconciling publisher
// needs: the organization (for its subscription) and its active seat count.
type SeatCounter interface {
	GetOrganization(ctx context.Context, organizationID string) (*Organization, error)
	CountActiveMembers(ctx context.Context, organizationID string) (int, error)
}

// SeatReconcileFunc triggers seat reconciliation for a subscription against
// the current active member count. Wired to the billing service at startup.
type SeatReconcileFunc func(ctx context.Context, subscriptionID string, memberCount int) error

// ReconcilingSeatPublisher resolves an organization's active member count
// and hands it to billing for seat reconciliation. Errors are logged, never
// returned: membership changes must not fail because reconciliation did.
type ReconcilingSeatPublisher struct {
	repo      SeatCounter
	reconcile SeatReconcileFunc
	logger    *slog.Logger
}

// NewReconcilingSeatPublisher creates a publisher bridging membership
// changes to billing seat reconciliation.
// Panics if any required dependency is nil to fail fast during initialization.
func NewReconcilingSeatPublisher(repo SeatCounter, reconcile SeatReconcileFunc, logger *slog.Logger) *ReconcilingSeatPublisher {
	if repo == nil {
		panic("organization: SeatCounter is required")
	}
	if reconcile == nil {
		panic("organization: SeatReconcileFunc is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcilingSeatPublisher{repo: repo, reconcile: reconcile, logger: logger}
}

func (p *ReconcilingSeatPublisher) Enqueue(ctx context.Context, organizationID string) {
	org, err := p.repo.GetOrganization(ctx, organizationID)
	if err != nil {
		p.logger.ErrorContext(ctx, "seat reconciliation: load organization",
			slog.String("organization_id", organizationID),
			slog.Any("error", err))
		return
	}
	if org.SubscriptionID == "" {
		p.logger.DebugContext(ctx, "seat reconciliation skipped: no subscription",
			slog.String("organization_id", organizationID))
		return
	}

	count, err := p.repo.CountActiveMembers(ctx, organizationID)
	if err != nil {
		p.logger.ErrorContext(ctx, "seat reconciliation: count members",
			slog.String("organization_id", organizationID),
			slog.Any("error", err))
		return
	}

	if err := p.reconcile(ctx, org.SubscriptionID, count); err != nil {
		p.logger.ErrorContext(ctx, "seat reconciliation failed",
			slog.String("organization_id", organizationID),
			slog.String("subscription_id", org.SubscriptionID),
			slog.Int("member_count", count),
			slog.Any("error", err))
		return
	}

	p.logger.InfoContext(ctx, "seat reconciliation triggered",
		slog.String("organization_id", organizationID),
		slog.String("subscription_id", org.SubscriptionID),
		slog.Int("member_count", count))
}
