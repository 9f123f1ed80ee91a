package entitlement

import "errors"

var (
	ErrUnknownPlan               = errors.New("unknown plan key")
	ErrUnknownAddOn              = errors.New("unknown add-on type")
	ErrInvalidBillingInterval    = errors.New("invalid billing interval")
	ErrInvalidSubscriptionStatus = errors.New("invalid subscription status")
	ErrInvalidRole               = errors.New("invalid membership role")
	ErrInvalidAddOnQuantity      = errors.New("add-on quantity must be >= 1")
	ErrInvalidCatalog            = errors.New("invalid entitlement catalog")

	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrMembershipNotFound   = errors.New("no membership found for user in organization")

	ErrEmptySecret      = errors.New("token signing secret must be provided")
	ErrInvalidToken     = errors.New("invalid entitlement token")
	ErrSignatureInvalid = errors.New("entitlement token signature mismatch")
	ErrTokenExpired     = errors.New("entitlement token expired")
)
