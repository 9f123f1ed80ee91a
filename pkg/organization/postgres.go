package organization

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfmark/shelfmark/pkg/pg"
)

const (
	organizationColumns = `organization_id, name, owner_id, billing_contact_id,
		subscription_id, policy_flags, created_at, updated_at`

	membershipColumns = `membership_id, organization_id, user_id, role, status,
		billing_admin, invited_by, invited_at, accepted_at, revoked_at`

	invitationColumns = `token, organization_id, email, role, inviter_id,
		created_at, expires_at`
)

// PostgresRepository persists organizations, memberships, and invitations
// in PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a Repository backed by pool.
// Panics when pool is nil.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("organization: pgx pool is required")
	}
	return &PostgresRepository{pool: pool}
}

// SaveOrganization inserts or replaces an organization record. Not part of
// the Repository interface; organizations are provisioned outside the
// membership lifecycle.
func (r *PostgresRepository) SaveOrganization(ctx context.Context, org *Organization) error {
	const query = `
		INSERT INTO organizations (` + organizationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (organization_id) DO UPDATE SET
			name = EXCLUDED.name,
			owner_id = EXCLUDED.owner_id,
			billing_contact_id = EXCLUDED.billing_contact_id,
			subscription_id = EXCLUDED.subscription_id,
			policy_flags = EXCLUDED.policy_flags,
			updated_at = NOW()`

	flags, err := json.Marshal(org.PolicyFlags)
	if err != nil {
		return fmt.Errorf("organization: encode policy flags: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		org.ID,
		org.Name,
		org.OwnerID,
		org.BillingContactID,
		org.SubscriptionID,
		flags,
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("organization: save organization: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetOrganization(ctx context.Context, organizationID string) (*Organization, error) {
	const query = `
		SELECT ` + organizationColumns + `
		FROM organizations
		WHERE organization_id = $1`

	org, err := scanOrganization(r.pool.QueryRow(ctx, query, organizationID))
	if pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: %s", ErrOrganizationNotFound, organizationID)
	}
	if err != nil {
		return nil, fmt.Errorf("organization: query organization: %w", err)
	}
	return org, nil
}

func (r *PostgresRepository) GetMembership(ctx context.Context, organizationID, userID string) (*Membership, error) {
	const query = `
		SELECT ` + membershipColumns + `
		FROM organization_memberships
		WHERE organization_id = $1 AND user_id = $2`

	m, err := scanMembership(r.pool.QueryRow(ctx, query, organizationID, userID))
	if pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: user=%s organization=%s", ErrMembershipNotFound, userID, organizationID)
	}
	if err != nil {
		return nil, fmt.Errorf("organization: query membership: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) SaveMembership(ctx context.Context, membership *Membership) (*Membership, error) {
	const query = `
		INSERT INTO organization_memberships (` + membershipColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (organization_id, user_id) DO UPDATE SET
			role = EXCLUDED.role,
			status = EXCLUDED.status,
			billing_admin = EXCLUDED.billing_admin,
			invited_by = EXCLUDED.invited_by,
			invited_at = EXCLUDED.invited_at,
			accepted_at = EXCLUDED.accepted_at,
			revoked_at = EXCLUDED.revoked_at
		RETURNING ` + membershipColumns

	id := membership.ID
	if id == "" {
		id = newMembershipID()
	}

	stored, err := scanMembership(r.pool.QueryRow(ctx, query,
		id,
		membership.OrganizationID,
		membership.UserID,
		membership.Role,
		membership.Status,
		membership.BillingAdmin,
		membership.InvitedBy,
		membership.InvitedAt,
		membership.AcceptedAt,
		membership.RevokedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("organization: save membership: %w", err)
	}
	return stored, nil
}

func (r *PostgresRepository) DeleteMembership(ctx context.Context, organizationID, userID string) error {
	const query = `
		DELETE FROM organization_memberships
		WHERE organization_id = $1 AND user_id = $2`

	if _, err := r.pool.Exec(ctx, query, organizationID, userID); err != nil {
		return fmt.Errorf("organization: delete membership: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountActiveMembers(ctx context.Context, organizationID string) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM organization_memberships
		WHERE organization_id = $1 AND status = 'active'`

	var count int
	if err := r.pool.QueryRow(ctx, query, organizationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("organization: count active members: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) CreateInvitation(ctx context.Context, invitation *Invitation) error {
	const query = `
		INSERT INTO membership_invitations (` + invitationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		invitation.Token,
		invitation.OrganizationID,
		invitation.Email,
		invitation.Role,
		invitation.InviterID,
		invitation.CreatedAt,
		invitation.ExpiresAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return fmt.Errorf("organization: invitation token already in use")
	}
	if err != nil {
		return fmt.Errorf("organization: create invitation: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetInvitation(ctx context.Context, token string) (*Invitation, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM membership_invitations
		WHERE token = $1`

	var inv Invitation
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&inv.Token,
		&inv.OrganizationID,
		&inv.Email,
		&inv.Role,
		&inv.InviterID,
		&inv.CreatedAt,
		&inv.ExpiresAt,
	)
	if pg.IsNotFoundError(err) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization: query invitation: %w", err)
	}
	return &inv, nil
}

func (r *PostgresRepository) DeleteInvitation(ctx context.Context, token string) error {
	const query = `DELETE FROM membership_invitations WHERE token = $1`

	if _, err := r.pool.Exec(ctx, query, token); err != nil {
		return fmt.Errorf("organization: delete invitation: %w", err)
	}
	return nil
}

func scanOrganization(row pgx.Row) (*Organization, error) {
	var (
		org   Organization
		flags []byte
	)
	err := row.Scan(
		&org.ID,
		&org.Name,
		&org.OwnerID,
		&org.BillingContactID,
		&org.SubscriptionID,
		&flags,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &org.PolicyFlags); err != nil {
			return nil, fmt.Errorf("decode policy flags: %w", err)
		}
	}
	return &org, nil
}

func scanMembership(row pgx.Row) (*Membership, error) {
	var m Membership
	err := row.Scan(
		&m.ID,
		&m.OrganizationID,
		&m.UserID,
		&m.Role,
		&m.Status,
		&m.BillingAdmin,
		&m.InvitedBy,
		&m.InvitedAt,
		&m.AcceptedAt,
		&m.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
