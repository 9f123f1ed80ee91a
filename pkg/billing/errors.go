package billing

import "errors"

var (
	ErrInvalidCustomerType  = errors.New("invalid customer type")
	ErrInvalidEventType     = errors.New("invalid webhook event type")
	ErrInvalidInvoiceStatus = errors.New("invalid invoice status")
	ErrInvalidSeatQuantity  = errors.New("seat quantity must be >= 1")
	ErrInvalidMemberCount   = errors.New("member count must be >= 0")

	ErrIntentNotFound            = errors.New("purchase intent not found")
	ErrSubscriptionNotFound      = errors.New("subscription not found")
	ErrIntentMissingSubscription = errors.New("subscription_id missing from purchase intent metadata")

	ErrMalformedPayload = errors.New("malformed webhook payload")

	ErrCheckoutFailed        = errors.New("failed to create checkout session")
	ErrPortalFailed          = errors.New("failed to create billing portal session")
	ErrSeatUpdateUnsupported = errors.New("seat updates are not supported by this provider")
)
