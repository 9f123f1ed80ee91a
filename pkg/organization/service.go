package organization

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shelfmark/shelfmark/pkg/entitlement"
)

const defaultInvitationTTL = 7 * 24 * time.Hour

// AuditLogger captures structured membership audit events. Logging must
// never block or fail a membership operation, so the interface returns
// nothing.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent)
}

// SeatEventPublisher notifies downstream billing that an organization's
// active member count may have changed and its seats need reconciling.
// Publishing is fire-and-forget.
type SeatEventPublisher interface {
	Enqueue(ctx context.Context, organizationID string)
}

// TokenGenerator produces signed invitation tokens.
type TokenGenerator interface {
	Generate(organizationID, email string, expiresAt time.Time) (string, error)
}

// EntitlementInvalidator evicts entitlement caches affected by membership
// changes. Satisfied by entitlement.Service.
type EntitlementInvalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
	InvalidateOrganization(ctx context.Context, organizationID string) error
	InvalidateSubscription(ctx context.Context, subscriptionID string) error
}

// roleRank orders membership roles for assignment and removal checks.
var roleRank = map[entitlement.MembershipRole]int{
	entitlement.RoleMember: 1,
	entitlement.RoleAdmin:  2,
	entitlement.RoleOwner:  3,
}

// roleAllowsAssignment reports whether an actor's role may assign the
// target role. Roles can assign their own rank and below.
func roleAllowsAssignment(actor, target entitlement.MembershipRole) bool {
	return roleRank[actor] >= roleRank[target]
}

// InviteInput describes a membership invitation request. ExpiresAt
// overrides the service's default invitation TTL when set.
type InviteInput struct {
	OrganizationID string
	InviterID      string
	Email          string
	Role           entitlement.MembershipRole
	ExpiresAt      *time.Time
}

// Service coordinates membership lifecycle operations and the invariants
// around them: role hierarchy enforcement, audit logging, entitlement cache
// invalidation, and seat reconciliation triggers.
type Service interface {
	// InviteMember creates a pending invitation. The inviter must hold an
	// active membership with a rank at or above the invited role.
	InviteMember(ctx context.Context, input InviteInput) (*Invitation, error)
	// AcceptInvitation converts a pending invitation into an active
	// membership and consumes the invitation token.
	AcceptInvitation(ctx context.Context, token, userID string) (*Membership, error)
	// RemoveMember revokes a membership. Owners can only be removed by
	// owners; members may always remove themselves.
	RemoveMember(ctx context.Context, organizationID, actorID, targetUserID string) (*Membership, error)
	// ChangeRole assigns a new role to a member. Promotions to owner and
	// changes to an owner's role require an owner actor.
	ChangeRole(ctx context.Context, organizationID, actorID, targetUserID string, newRole entitlement.MembershipRole) (*Membership, error)
}

type service struct {
	repo          Repository
	audit         AuditLogger
	seats         SeatEventPublisher
	tokens        TokenGenerator
	invalidator   EntitlementInvalidator
	invitationTTL time.Duration
	now           func() time.Time
}

// NewService creates an organization Service.
// Panics if any required dependency is nil to fail fast during initialization.
func NewService(repo Repository, audit AuditLogger, seats SeatEventPublisher, tokens TokenGenerator, invalidator EntitlementInvalidator, opts ...Option) Service {
	if repo == nil {
		panic("organization: Repository is required")
	}
	if audit == nil {
		panic("organization: AuditLogger is required")
	}
	if seats == nil {
		panic("organization: SeatEventPublisher is required")
	}
	if tokens == nil {
		panic("organization: TokenGenerator is required")
	}
	if invalidator == nil {
		panic("organization: EntitlementInvalidator is required")
	}

	s := &service{
		repo:          repo,
		audit:         audit,
		seats:         seats,
		tokens:        tokens,
		invalidator:   invalidator,
		invitationTTL: defaultInvitationTTL,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) InviteMember(ctx context.Context, input InviteInput) (*Invitation, error) {
	if strings.TrimSpace(input.Email) == "" {
		return nil, ErrInvalidEmail
	}
	if _, err := entitlement.ParseMembershipRole(string(input.Role)); err != nil {
		return nil, err
	}

	org, err := s.repo.GetOrganization(ctx, input.OrganizationID)
	if err != nil {
		return nil, err
	}
	inviter, err := s.requireActiveMembership(ctx, input.OrganizationID, input.InviterID)
	if err != nil {
		return nil, err
	}
	if !roleAllowsAssignment(inviter.Role, input.Role) {
		return nil, fmt.Errorf("%w: role %s cannot assign role %s", ErrPermissionDenied, inviter.Role, input.Role)
	}

	now := s.now()
	expiresAt := now.Add(s.invitationTTL)
	if input.ExpiresAt != nil {
		expiresAt = *input.ExpiresAt
	}

	token, err := s.tokens.Generate(org.ID, input.Email, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("organization: generate invitation token: %w", err)
	}

	invitation := &Invitation{
		Token:          token,
		OrganizationID: org.ID,
		Email:          input.Email,
		Role:           input.Role,
		InviterID:      inviter.UserID,
		CreatedAt:      now,
		ExpiresAt:      expiresAt,
	}
	if err := s.repo.CreateInvitation(ctx, invitation); err != nil {
		return nil, fmt.Errorf("organization: store invitation: %w", err)
	}

	s.audit.Log(ctx, AuditEvent{
		OrganizationID: org.ID,
		ActorID:        inviter.UserID,
		SubjectID:      input.Email,
		Action:         AuditMemberInvited,
		Timestamp:      now,
		Metadata:       map[string]string{"role": string(input.Role)},
	})

	return invitation, nil
}

func (s *service) AcceptInvitation(ctx context.Context, token, userID string) (*Membership, error) {
	invitation, err := s.repo.GetInvitation(ctx, token)
	if err != nil {
		return nil, err
	}
	org, err := s.repo.GetOrganization(ctx, invitation.OrganizationID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !invitation.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: at %s", ErrInvitationExpired, invitation.ExpiresAt.Format(time.RFC3339))
	}

	// Re-invites reuse the existing record's identity so a revoked member
	// rejoining keeps a single membership row.
	existing, err := s.repo.GetMembership(ctx, invitation.OrganizationID, userID)
	if err != nil && !errors.Is(err, ErrMembershipNotFound) {
		return nil, err
	}

	invitedAt := invitation.CreatedAt
	membership := &Membership{
		OrganizationID: invitation.OrganizationID,
		UserID:         userID,
		Role:           invitation.Role,
		Status:         StatusActive,
		InvitedBy:      invitation.InviterID,
		InvitedAt:      &invitedAt,
		AcceptedAt:     &now,
	}
	if existing != nil {
		membership.ID = existing.ID
	}

	stored, err := s.repo.SaveMembership(ctx, membership)
	if err != nil {
		return nil, fmt.Errorf("organization: store membership: %w", err)
	}
	if err := s.repo.DeleteInvitation(ctx, invitation.Token); err != nil {
		return nil, fmt.Errorf("organization: consume invitation: %w", err)
	}

	s.audit.Log(ctx, AuditEvent{
		OrganizationID: invitation.OrganizationID,
		ActorID:        userID,
		SubjectID:      userID,
		Action:         AuditMemberAccepted,
		RoleAfter:      stored.Role,
		Timestamp:      now,
		Metadata:       map[string]string{"invited_by": invitation.InviterID},
	})

	if err := s.invalidateEntitlements(ctx, org, stored.UserID); err != nil {
		return nil, err
	}
	s.seats.Enqueue(ctx, invitation.OrganizationID)

	return stored, nil
}

func (s *service) RemoveMember(ctx context.Context, organizationID, actorID, targetUserID string) (*Membership, error) {
	org, err := s.repo.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	actor, err := s.requireActiveMembership(ctx, organizationID, actorID)
	if err != nil {
		return nil, err
	}
	target, err := s.repo.GetMembership(ctx, organizationID, targetUserID)
	if err != nil {
		return nil, err
	}

	if target.Role == entitlement.RoleOwner && actor.Role != entitlement.RoleOwner {
		return nil, fmt.Errorf("%w: only an owner can remove another owner", ErrPermissionDenied)
	}
	// Self-removal is always allowed; removing anyone else requires
	// outranking them.
	if roleRank[actor.Role] <= roleRank[target.Role] && actorID != targetUserID {
		return nil, fmt.Errorf("%w: insufficient privileges to remove this member", ErrPermissionDenied)
	}

	now := s.now()
	updated := *target
	updated.Status = StatusRevoked
	updated.RevokedAt = &now

	stored, err := s.repo.SaveMembership(ctx, &updated)
	if err != nil {
		return nil, fmt.Errorf("organization: store membership: %w", err)
	}

	s.audit.Log(ctx, AuditEvent{
		OrganizationID: organizationID,
		ActorID:        actorID,
		SubjectID:      targetUserID,
		Action:         AuditMemberRemoved,
		RoleBefore:     target.Role,
		Timestamp:      now,
	})

	if err := s.invalidateEntitlements(ctx, org, targetUserID); err != nil {
		return nil, err
	}
	s.seats.Enqueue(ctx, organizationID)

	return stored, nil
}

func (s *service) ChangeRole(ctx context.Context, organizationID, actorID, targetUserID string, newRole entitlement.MembershipRole) (*Membership, error) {
	if _, err := entitlement.ParseMembershipRole(string(newRole)); err != nil {
		return nil, err
	}

	org, err := s.repo.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	actor, err := s.requireActiveMembership(ctx, organizationID, actorID)
	if err != nil {
		return nil, err
	}
	target, err := s.repo.GetMembership(ctx, organizationID, targetUserID)
	if err != nil {
		return nil, err
	}

	if target.Role == entitlement.RoleOwner && actor.Role != entitlement.RoleOwner {
		return nil, fmt.Errorf("%w: only an owner may change another owner's role", ErrPermissionDenied)
	}
	if newRole == entitlement.RoleOwner && actor.Role != entitlement.RoleOwner {
		return nil, fmt.Errorf("%w: only an owner may promote a member to owner", ErrPermissionDenied)
	}
	if !roleAllowsAssignment(actor.Role, newRole) {
		return nil, fmt.Errorf("%w: insufficient privileges to assign role %s", ErrPermissionDenied, newRole)
	}

	now := s.now()
	updated := *target
	updated.Role = newRole

	stored, err := s.repo.SaveMembership(ctx, &updated)
	if err != nil {
		return nil, fmt.Errorf("organization: store membership: %w", err)
	}

	s.audit.Log(ctx, AuditEvent{
		OrganizationID: organizationID,
		ActorID:        actorID,
		SubjectID:      targetUserID,
		Action:         AuditRoleChanged,
		RoleBefore:     target.Role,
		RoleAfter:      newRole,
		Timestamp:      now,
	})

	// Role changes shift entitlements but never seat counts, so no seat
	// reconciliation is enqueued.
	if err := s.invalidateEntitlements(ctx, org, targetUserID); err != nil {
		return nil, err
	}

	return stored, nil
}

func (s *service) requireActiveMembership(ctx context.Context, organizationID, userID string) (*Membership, error) {
	membership, err := s.repo.GetMembership(ctx, organizationID, userID)
	if err != nil {
		return nil, err
	}
	if membership.Status != StatusActive {
		return nil, fmt.Errorf("%w: membership is not active", ErrPermissionDenied)
	}
	return membership, nil
}

func (s *service) invalidateEntitlements(ctx context.Context, org *Organization, userID string) error {
	if err := s.invalidator.InvalidateOrganization(ctx, org.ID); err != nil {
		return fmt.Errorf("organization: invalidate organization entitlements: %w", err)
	}
	if org.SubscriptionID != "" {
		if err := s.invalidator.InvalidateSubscription(ctx, org.SubscriptionID); err != nil {
			return fmt.Errorf("organization: invalidate subscription entitlements: %w", err)
		}
	}
	if userID != "" {
		if err := s.invalidator.InvalidateUser(ctx, userID); err != nil {
			return fmt.Errorf("organization: invalidate user entitlements: %w", err)
		}
	}
	return nil
}
