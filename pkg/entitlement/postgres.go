package entitlement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfmark/shelfmark/pkg/pg"
)

// PostgresSubscriptionSource reads normalized subscription records from the
// billing_subscriptions table.
type PostgresSubscriptionSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSubscriptionSource returns a SubscriptionSource backed by pool.
// Panics when pool is nil.
func NewPostgresSubscriptionSource(pool *pgxpool.Pool) *PostgresSubscriptionSource {
	if pool == nil {
		panic("entitlement: pgx pool is required")
	}
	return &PostgresSubscriptionSource{pool: pool}
}

func (s *PostgresSubscriptionSource) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionRecord, error) {
	const query = `
		SELECT subscription_id, plan_key, status, billing_interval, add_ons
		FROM billing_subscriptions
		WHERE subscription_id = $1`

	var (
		record SubscriptionRecord
		addOns []byte
	)
	err := s.pool.QueryRow(ctx, query, subscriptionID).Scan(
		&record.ID,
		&record.PlanKey,
		&record.Status,
		&record.BillingInterval,
		&addOns,
	)
	if pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, subscriptionID)
	}
	if err != nil {
		return nil, fmt.Errorf("entitlement: query subscription: %w", err)
	}

	if len(addOns) > 0 {
		if err := json.Unmarshal(addOns, &record.AddOns); err != nil {
			return nil, fmt.Errorf("entitlement: decode add-ons for %s: %w", subscriptionID, err)
		}
	}
	return &record, nil
}

// PostgresMembershipSource reads active memberships from the
// organization_memberships table. Invited, suspended, and revoked
// memberships do not grant entitlements and are treated as absent.
type PostgresMembershipSource struct {
	pool *pgxpool.Pool
}

// NewPostgresMembershipSource returns a MembershipSource backed by pool.
// Panics when pool is nil.
func NewPostgresMembershipSource(pool *pgxpool.Pool) *PostgresMembershipSource {
	if pool == nil {
		panic("entitlement: pgx pool is required")
	}
	return &PostgresMembershipSource{pool: pool}
}

func (s *PostgresMembershipSource) GetMembership(ctx context.Context, userID, organizationID string) (*Membership, error) {
	const query = `
		SELECT organization_id, user_id, role, status = 'active' AS seat_consumed
		FROM organization_memberships
		WHERE user_id = $1 AND organization_id = $2 AND status = 'active'`

	var m Membership
	err := s.pool.QueryRow(ctx, query, userID, organizationID).Scan(
		&m.OrganizationID,
		&m.UserID,
		&m.Role,
		&m.SeatConsumed,
	)
	if pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: user=%s organization=%s", ErrMembershipNotFound, userID, organizationID)
	}
	if err != nil {
		return nil, fmt.Errorf("entitlement: query membership: %w", err)
	}
	return &m, nil
}
