package entitlement

import "fmt"

// PlanKey identifies a subscription plan in the catalog.
type PlanKey string

const (
	PlanFree          PlanKey = "free"
	PlanIndividualPro PlanKey = "individual_pro"
	PlanTeam          PlanKey = "team"
)

// ParsePlanKey validates a raw string against the known plan keys.
func ParsePlanKey(s string) (PlanKey, error) {
	switch PlanKey(s) {
	case PlanFree, PlanIndividualPro, PlanTeam:
		return PlanKey(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, s)
	}
}

// BillingInterval represents the billing frequency for a subscription plan.
type BillingInterval string

const (
	BillingIntervalMonthly BillingInterval = "monthly"
	BillingIntervalAnnual  BillingInterval = "annual"
)

// ParseBillingInterval validates a raw string against the known intervals.
func ParseBillingInterval(s string) (BillingInterval, error) {
	switch BillingInterval(s) {
	case BillingIntervalMonthly, BillingIntervalAnnual:
		return BillingInterval(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidBillingInterval, s)
	}
}

// AddOnType identifies a purchasable add-on product.
type AddOnType string

const (
	AddOnStorage100GB AddOnType = "storage_100_gb"
)

// SubscriptionStatus represents the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusCanceled SubscriptionStatus = "canceled"
	StatusPastDue  SubscriptionStatus = "past_due"
)

// ParseSubscriptionStatus validates a raw string against the known statuses.
func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	switch SubscriptionStatus(s) {
	case StatusActive, StatusCanceled, StatusPastDue:
		return SubscriptionStatus(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSubscriptionStatus, s)
	}
}

// MembershipRole is a member's role within an organization.
type MembershipRole string

const (
	RoleOwner  MembershipRole = "owner"
	RoleAdmin  MembershipRole = "admin"
	RoleMember MembershipRole = "member"
)

// ParseMembershipRole validates a raw string against the known roles.
func ParseMembershipRole(s string) (MembershipRole, error) {
	switch MembershipRole(s) {
	case RoleOwner, RoleAdmin, RoleMember:
		return MembershipRole(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// Canonical feature flag keys exposed in entitlement payloads.
const (
	FlagAdsDisabled    = "ads.disabled"
	FlagSyncEnabled    = "sync.enabled"
	FlagSearchAdvanced = "search.advanced"
	FlagStorageQuotaGB = "storage.quota_gb"
	FlagOrgAdmin       = "org.admin"
)
