package organization

import "context"

// Repository is the persistence layer for organizations, memberships, and
// invitations. Implementations must return the package sentinel errors for
// missing records so the service can distinguish not-found from failure.
type Repository interface {
	// GetOrganization loads an organization by ID.
	GetOrganization(ctx context.Context, organizationID string) (*Organization, error)

	// GetMembership loads the membership of a user within an organization,
	// regardless of its status.
	GetMembership(ctx context.Context, organizationID, userID string) (*Membership, error)
	// SaveMembership inserts or updates a membership, assigning an ID when
	// the record has none, and returns the stored copy.
	SaveMembership(ctx context.Context, membership *Membership) (*Membership, error)
	// DeleteMembership removes a membership record outright. Lifecycle
	// operations soft-revoke instead; this is for administrative cleanup.
	DeleteMembership(ctx context.Context, organizationID, userID string) error

	// CreateInvitation stores a pending invitation keyed by its token.
	CreateInvitation(ctx context.Context, invitation *Invitation) error
	// GetInvitation loads a pending invitation by token.
	GetInvitation(ctx context.Context, token string) (*Invitation, error)
	// DeleteInvitation removes an invitation once consumed or revoked.
	DeleteInvitation(ctx context.Context, token string) error
}
