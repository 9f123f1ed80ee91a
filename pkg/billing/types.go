package billing

import "fmt"

// CustomerType distinguishes which entity owns a subscription.
type CustomerType string

const (
	CustomerUser         CustomerType = "user"
	CustomerOrganization CustomerType = "organization"
)

// ParseCustomerType validates a raw string against the known customer types.
func ParseCustomerType(s string) (CustomerType, error) {
	switch CustomerType(s) {
	case CustomerUser, CustomerOrganization:
		return CustomerType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCustomerType, s)
	}
}

// IntentStatus is the lifecycle state of a checkout purchase intent.
type IntentStatus string

const (
	IntentPending   IntentStatus = "pending"
	IntentCompleted IntentStatus = "completed"
	IntentExpired   IntentStatus = "expired"
	IntentCanceled  IntentStatus = "canceled"
)

// WebhookEventType enumerates provider events the service reacts to.
// Unknown types are recorded for idempotency but otherwise ignored.
type WebhookEventType string

const (
	EventSubscriptionCreated  WebhookEventType = "subscription.created"
	EventSubscriptionUpdated  WebhookEventType = "subscription.updated"
	EventSubscriptionCanceled WebhookEventType = "subscription.canceled"
	EventPaymentFailed        WebhookEventType = "invoice.payment_failed"
	EventPaymentSucceeded     WebhookEventType = "invoice.payment_succeeded"
)

// ParseWebhookEventType validates a raw string against the known event types.
func ParseWebhookEventType(s string) (WebhookEventType, error) {
	switch WebhookEventType(s) {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionCanceled,
		EventPaymentFailed, EventPaymentSucceeded:
		return WebhookEventType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEventType, s)
	}
}

// InvoiceStatus is the state of a persisted invoice record.
type InvoiceStatus string

const (
	InvoiceOpen          InvoiceStatus = "open"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceVoid          InvoiceStatus = "void"
	InvoiceUncollectible InvoiceStatus = "uncollectible"
	InvoicePastDue       InvoiceStatus = "past_due"
)

// ParseInvoiceStatus validates a raw string against the known invoice statuses.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch InvoiceStatus(s) {
	case InvoiceOpen, InvoicePaid, InvoiceVoid, InvoiceUncollectible, InvoicePastDue:
		return InvoiceStatus(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidInvoiceStatus, s)
	}
}

// ReconciliationOutcome is the result of comparing organization members
// against purchased seats.
type ReconciliationOutcome string

const (
	// OutcomeInSync means members exactly match purchased seats.
	OutcomeInSync ReconciliationOutcome = "in_sync"
	// OutcomeUpdated means the provider accepted a seat increase.
	OutcomeUpdated ReconciliationOutcome = "updated"
	// OutcomeOverageRequiresAction means members exceed seats and the
	// provider rejected the increase; a human has to intervene.
	OutcomeOverageRequiresAction ReconciliationOutcome = "overage_requires_action"
	// OutcomeUnderUtilized means fewer members than seats. Seats are never
	// shrunk automatically.
	OutcomeUnderUtilized ReconciliationOutcome = "under_utilized"
)

// AuditEventType categorizes billing audit events.
type AuditEventType string

const (
	AuditSubscriptionActivated AuditEventType = "subscription_activated"
	AuditSubscriptionUpdated   AuditEventType = "subscription_updated"
	AuditSubscriptionCanceled  AuditEventType = "subscription_canceled"
	AuditPaymentFailed         AuditEventType = "payment_failed"
	AuditPaymentRecovered      AuditEventType = "payment_recovered"
	AuditGracePeriodExpired    AuditEventType = "grace_period_expired"
)
