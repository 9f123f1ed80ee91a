package billing

import (
	"context"
	"time"

	"github.com/shelfmark/shelfmark/pkg/entitlement"
)

// Repository is the persistence layer required by the billing service.
// Lookup methods return ErrIntentNotFound / ErrSubscriptionNotFound for
// missing records.
type Repository interface {
	// SavePurchaseIntent inserts or updates an intent keyed by its ID.
	SavePurchaseIntent(ctx context.Context, intent *PurchaseIntent) error
	// GetPurchaseIntent loads an intent by its public ID.
	GetPurchaseIntent(ctx context.Context, intentID string) (*PurchaseIntent, error)
	// GetPurchaseIntentBySession loads an intent by the provider session ID.
	GetPurchaseIntentBySession(ctx context.Context, sessionID string) (*PurchaseIntent, error)
	// MarkPurchaseIntentCompleted transitions an intent to completed.
	MarkPurchaseIntentCompleted(ctx context.Context, intentID string) (*PurchaseIntent, error)

	// UpsertSubscription inserts or fully replaces a subscription.
	UpsertSubscription(ctx context.Context, subscription *Subscription) error
	// GetSubscription loads a subscription by its ID.
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	// UpdateSubscriptionStatus sets the status and grace period deadline.
	// A nil gracePeriodExpiresAt clears any existing deadline.
	UpdateSubscriptionStatus(ctx context.Context, subscriptionID string, status entitlement.SubscriptionStatus, gracePeriodExpiresAt *time.Time) (*Subscription, error)
	// ListExpiredGracePeriods returns past-due subscriptions whose grace
	// period ended at or before asOf, oldest first.
	ListExpiredGracePeriods(ctx context.Context, asOf time.Time, limit int) ([]Subscription, error)

	// RecordInvoice inserts or updates an invoice keyed by its ID.
	RecordInvoice(ctx context.Context, invoice *InvoiceRecord) error
	// ListInvoices returns the newest invoices for a customer.
	ListInvoices(ctx context.Context, customerType CustomerType, customerID string, limit int) ([]InvoiceRecord, error)

	// RecordWebhookEvent stores the event for idempotency tracking and
	// reports whether it was seen for the first time.
	RecordWebhookEvent(ctx context.Context, event *WebhookEvent) (bool, error)
	// RecordSeatReconciliation appends a reconciliation attempt to history.
	RecordSeatReconciliation(ctx context.Context, result *SeatReconciliationResult) error
}
