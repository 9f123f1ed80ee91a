package billing

import (
	"time"

	"github.com/shelfmark/shelfmark/pkg/entitlement"
)

// PurchaseIntent tracks a checkout session awaiting provider confirmation.
// The intent ID is shared with the provider through session metadata so the
// completion webhook can be tied back to the originating request.
type PurchaseIntent struct {
	ID                 string                      `json:"intent_id"`
	CustomerType       CustomerType                `json:"customer_type"`
	CustomerID         string                      `json:"customer_id"`
	PlanKey            entitlement.PlanKey         `json:"plan_key"`
	BillingInterval    entitlement.BillingInterval `json:"billing_interval"`
	SeatQuantity       int                         `json:"seat_quantity"`
	Status             IntentStatus                `json:"status"`
	ProviderSessionID  string                      `json:"provider_session_id,omitempty"`
	ProviderSessionURL string                      `json:"provider_session_url,omitempty"`
	ReturnURL          string                      `json:"return_url,omitempty"`
	CancelURL          string                      `json:"cancel_url,omitempty"`
	Metadata           map[string]string           `json:"metadata,omitempty"`
	ExpiresAt          *time.Time                  `json:"expires_at,omitempty"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
}

// Subscription is the normalized subscription state synchronized from the
// billing provider via webhooks.
type Subscription struct {
	ID                   string                         `json:"subscription_id"`
	ProviderID           string                         `json:"provider_id"`
	CustomerType         CustomerType                   `json:"customer_type"`
	CustomerID           string                         `json:"customer_id"`
	PlanKey              entitlement.PlanKey            `json:"plan_key"`
	BillingInterval      entitlement.BillingInterval    `json:"billing_interval"`
	Status               entitlement.SubscriptionStatus `json:"status"`
	SeatQuantity         int                            `json:"seat_quantity"`
	AddOns               []entitlement.AddOnGrant       `json:"add_ons,omitempty"`
	CurrentPeriodStart   *time.Time                     `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time                     `json:"current_period_end,omitempty"`
	TrialEnd             *time.Time                     `json:"trial_end,omitempty"`
	CancelAt             *time.Time                     `json:"cancel_at,omitempty"`
	CanceledAt           *time.Time                     `json:"canceled_at,omitempty"`
	GracePeriodExpiresAt *time.Time                     `json:"grace_period_expires_at,omitempty"`
	Metadata             map[string]string              `json:"metadata,omitempty"`
	CreatedAt            time.Time                      `json:"created_at"`
	UpdatedAt            time.Time                      `json:"updated_at"`
}

// IsPastDue reports whether the subscription is waiting out a grace period.
func (s *Subscription) IsPastDue() bool {
	return s.Status == entitlement.StatusPastDue
}

// InvoiceRecord is a persisted invoice exposed to end users.
type InvoiceRecord struct {
	ID                string            `json:"invoice_id"`
	SubscriptionID    string            `json:"subscription_id"`
	AmountDue         int64             `json:"amount_due"`
	Currency          string            `json:"currency"`
	Status            InvoiceStatus     `json:"status"`
	PeriodStart       *time.Time        `json:"period_start,omitempty"`
	PeriodEnd         *time.Time        `json:"period_end,omitempty"`
	ProviderInvoiceID string            `json:"provider_invoice_id,omitempty"`
	PDFURL            string            `json:"pdf_url,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// WebhookEvent is a normalized provider event stored for idempotency.
type WebhookEvent struct {
	ID         string           `json:"event_id"`
	Type       WebhookEventType `json:"event_type"`
	Payload    map[string]any   `json:"payload"`
	ReceivedAt time.Time        `json:"received_at"`
}

// AuditEvent is a structured billing event for analytics and support.
type AuditEvent struct {
	Type           AuditEventType    `json:"event_type"`
	SubscriptionID string            `json:"subscription_id,omitempty"`
	ActorID        string            `json:"actor_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

// PaymentFailure describes a failed payment that opened a grace period.
type PaymentFailure struct {
	SubscriptionID       string     `json:"subscription_id"`
	InvoiceID            string     `json:"invoice_id,omitempty"`
	AmountDue            int64      `json:"amount_due"`
	Currency             string     `json:"currency"`
	OccurredAt           time.Time  `json:"occurred_at"`
	GracePeriodExpiresAt *time.Time `json:"grace_period_expires_at,omitempty"`
}

// CheckoutSession is the result of a checkout session creation request.
type CheckoutSession struct {
	Intent      PurchaseIntent `json:"intent"`
	CheckoutURL string         `json:"checkout_url"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
}

// SeatReconciliationResult records the outcome of one reconciliation attempt.
type SeatReconciliationResult struct {
	SubscriptionID      string                `json:"subscription_id"`
	MemberCount         int                   `json:"member_count"`
	SeatQuantity        int                   `json:"seat_quantity"`
	Outcome             ReconciliationOutcome `json:"outcome"`
	UpdatedSubscription *Subscription         `json:"updated_subscription,omitempty"`
}
