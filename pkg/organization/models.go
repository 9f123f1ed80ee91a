package organization

import (
	"fmt"
	"time"

	"github.com/shelfmark/shelfmark/pkg/entitlement"
)

// PolicyFlags are the structured policy toggles stored alongside an
// organization. The zero value is NOT the default policy; use
// DefaultPolicyFlags for new organizations.
type PolicyFlags struct {
	// SharingEnabled controls whether members can share resources outside
	// the organization.
	SharingEnabled bool `json:"sharing_enabled"`
	// ExternalExportsAllowed permits exports outside the organization.
	ExternalExportsAllowed bool `json:"external_exports_allowed"`
	// RetentionDays is an optional content retention period. Nil inherits
	// the global default.
	RetentionDays *int `json:"retention_days,omitempty"`
}

// DefaultPolicyFlags returns the policy applied to new organizations:
// sharing on, external exports off, no retention override.
func DefaultPolicyFlags() PolicyFlags {
	return PolicyFlags{SharingEnabled: true}
}

// Organization is a persistent organization record bound to a team
// subscription.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// OwnerID is the current owner with irrevocable billing authority.
	OwnerID          string `json:"owner_id"`
	BillingContactID string `json:"billing_contact_id"`
	// SubscriptionID is the active team subscription, empty when the
	// organization has none.
	SubscriptionID string      `json:"subscription_id,omitempty"`
	PolicyFlags    PolicyFlags `json:"policy_flags"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// MembershipStatus is the lifecycle state of an organization membership.
type MembershipStatus string

const (
	StatusInvited   MembershipStatus = "invited"
	StatusActive    MembershipStatus = "active"
	StatusSuspended MembershipStatus = "suspended"
	StatusRevoked   MembershipStatus = "revoked"
)

// ParseMembershipStatus validates a raw string against the known statuses.
func ParseMembershipStatus(s string) (MembershipStatus, error) {
	switch MembershipStatus(s) {
	case StatusInvited, StatusActive, StatusSuspended, StatusRevoked:
		return MembershipStatus(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMembershipStatus, s)
	}
}

// Membership is a user's membership inside an organization. Treated as an
// immutable value: mutations build an updated copy and save it.
type Membership struct {
	ID             string                     `json:"id"`
	OrganizationID string                     `json:"organization_id"`
	UserID         string                     `json:"user_id"`
	Role           entitlement.MembershipRole `json:"role"`
	Status         MembershipStatus           `json:"status"`
	// BillingAdmin lets the member perform billing operations without
	// being owner.
	BillingAdmin bool       `json:"billing_admin"`
	InvitedBy    string     `json:"invited_by,omitempty"`
	InvitedAt    *time.Time `json:"invited_at,omitempty"`
	AcceptedAt   *time.Time `json:"accepted_at,omitempty"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
}

// ConsumesSeat reports whether the membership counts against the
// organization's paid seat allocation. Only active memberships do; invited,
// suspended, and revoked members hold no seat.
func (m Membership) ConsumesSeat() bool {
	return m.Status == StatusActive
}

// Invitation is a pending invitation awaiting acceptance. The token doubles
// as its lookup key.
type Invitation struct {
	Token          string                     `json:"token"`
	OrganizationID string                     `json:"organization_id"`
	Email          string                     `json:"email"`
	Role           entitlement.MembershipRole `json:"role"`
	InviterID      string                     `json:"inviter_id"`
	CreatedAt      time.Time                  `json:"created_at"`
	ExpiresAt      time.Time                  `json:"expires_at"`
}

// AuditAction names a membership change in the audit log.
type AuditAction string

const (
	AuditMemberInvited  AuditAction = "invite"
	AuditMemberAccepted AuditAction = "accept"
	AuditMemberRemoved  AuditAction = "remove"
	AuditRoleChanged    AuditAction = "role_change"
)

// AuditEvent is the structured payload captured for every membership change.
// RoleBefore/RoleAfter are empty when the action does not touch roles.
type AuditEvent struct {
	OrganizationID string                     `json:"organization_id"`
	ActorID        string                     `json:"actor_id"`
	SubjectID      string                     `json:"subject_id"`
	Action         AuditAction                `json:"action"`
	RoleBefore     entitlement.MembershipRole `json:"role_before,omitempty"`
	RoleAfter      entitlement.MembershipRole `json:"role_after,omitempty"`
	Timestamp      time.Time                  `json:"timestamp"`
	Metadata       map[string]string          `json:"metadata,omitempty"`
}
