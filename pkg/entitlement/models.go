package entitlement

import (
	"fmt"
	"strings"
	"time"
)

// AddOnGrant is a provisioned add-on tied to a subscription.
type AddOnGrant struct {
	Type     AddOnType `json:"type"`
	Quantity int       `json:"quantity"`
}

// Validate reports whether the grant carries a usable quantity.
func (g AddOnGrant) Validate() error {
	if g.Quantity < 1 {
		return fmt.Errorf("%w: got %d for %s", ErrInvalidAddOnQuantity, g.Quantity, g.Type)
	}
	return nil
}

// SubscriptionRecord is the normalized subscription shape used for
// entitlement computation. It is intentionally narrower than the billing
// subscription model; sources map their storage into it.
type SubscriptionRecord struct {
	ID              string             `json:"id"`
	PlanKey         PlanKey            `json:"plan_key"`
	Status          SubscriptionStatus `json:"status"`
	BillingInterval BillingInterval    `json:"billing_interval"`
	AddOns          []AddOnGrant       `json:"add_ons,omitempty"`
}

// IsActive reports whether the subscription grants paid entitlements.
func (r *SubscriptionRecord) IsActive() bool {
	return r.Status == StatusActive
}

// Membership is a user's association with an organization, reduced to
// what entitlement resolution needs.
type Membership struct {
	OrganizationID string         `json:"organization_id"`
	UserID         string         `json:"user_id"`
	Role           MembershipRole `json:"role"`
	SeatConsumed   bool           `json:"seat_consumed"`
}

// Subject identifies who entitlements are computed for. OrganizationID is
// empty when the user acts in their personal context.
type Subject struct {
	UserID         string
	OrganizationID string
}

// CacheKey derives the deterministic cache key for this subject and
// subscription combination: "user:<id>|org:<id|self>|sub:<id|none>".
func (s Subject) CacheKey(subscriptionID string) string {
	org := s.OrganizationID
	if org == "" {
		org = "self"
	}
	sub := subscriptionID
	if sub == "" {
		sub = "none"
	}
	return fmt.Sprintf("user:%s|org:%s|sub:%s", s.UserID, org, sub)
}

// Tags returns the invalidation tags a cached entry for this subject must
// carry: always the user tag, plus organization and subscription tags when
// those dimensions are present.
func (s Subject) Tags(subscriptionID string) []string {
	tags := []string{userTag(s.UserID)}
	if s.OrganizationID != "" {
		tags = append(tags, organizationTag(s.OrganizationID))
	}
	if subscriptionID != "" {
		tags = append(tags, subscriptionTag(subscriptionID))
	}
	return tags
}

func userTag(id string) string         { return "user:" + id }
func organizationTag(id string) string { return "organization:" + id }
func subscriptionTag(id string) string { return "subscription:" + id }

// Payload is the computed entitlement set returned to clients.
type Payload struct {
	Plan           PlanKey        `json:"plan"`
	FeatureFlags   map[string]any `json:"feature_flags"`
	SubscriptionID string         `json:"subscription_id,omitempty"`
	OrganizationID string         `json:"organization_id,omitempty"`
	Role           MembershipRole `json:"role,omitempty"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// StorageQuotaGB extracts the storage quota flag. JSON round-trips turn
// numbers into float64, so both representations are accepted.
func (p Payload) StorageQuotaGB() int {
	switch v := p.FeatureFlags[FlagStorageQuotaGB].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// HasFlag reports whether the named flag evaluates truthy. Booleans must be
// true; numeric flags must be non-zero.
func (p Payload) HasFlag(flag string) bool {
	switch v := p.FeatureFlags[flag].(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return false
	}
}

// Claims represents the payload as token claims bound to an expiry.
// Optional dimensions are omitted entirely rather than emitted empty so the
// canonical serialization stays stable across contexts.
func (p Payload) Claims(expiresAt time.Time) map[string]any {
	claims := map[string]any{
		"plan":          string(p.Plan),
		"feature_flags": p.FeatureFlags,
		"generated_at":  p.GeneratedAt.UTC().Format(time.RFC3339Nano),
		"expires_at":    expiresAt.UTC().Format(time.RFC3339Nano),
	}
	if p.OrganizationID != "" {
		claims["organization_id"] = p.OrganizationID
	}
	if p.Role != "" {
		claims["role"] = string(p.Role)
	}
	if p.SubscriptionID != "" {
		claims["subscription_id"] = p.SubscriptionID
	}
	return claims
}

// Result wraps a computed payload together with its signed token.
type Result struct {
	Payload   Payload   `json:"payload"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
