package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shelfmark/shelfmark/pkg/email"
)

// Notifier dispatches billing notifications to end users. Failures propagate
// to the caller so webhook processing is retried by the provider.
type Notifier interface {
	NotifyPaymentFailure(ctx context.Context, failure PaymentFailure) error
	NotifyGracePeriodExpired(ctx context.Context, subscription *Subscription) error
	NotifySeatOverage(ctx context.Context, subscription *Subscription, memberCount int) error
}

// LogNotifier records billing notifications to the application logger.
// It backs local development and acts as a fallback when no email sender
// is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a Notifier writing to logger, or slog.Default()
// when logger is nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyPaymentFailure(ctx context.Context, failure PaymentFailure) error {
	n.logger.WarnContext(ctx, "payment failure",
		slog.String("subscription_id", failure.SubscriptionID),
		slog.String("invoice_id", failure.InvoiceID),
		slog.Int64("amount_due", failure.AmountDue),
		slog.String("currency", failure.Currency),
	)
	return nil
}

func (n *LogNotifier) NotifyGracePeriodExpired(ctx context.Context, subscription *Subscription) error {
	n.logger.WarnContext(ctx, "grace period expired",
		slog.String("subscription_id", subscription.ID),
		slog.String("customer_id", subscription.CustomerID),
	)
	return nil
}

func (n *LogNotifier) NotifySeatOverage(ctx context.Context, subscription *Subscription, memberCount int) error {
	n.logger.WarnContext(ctx, "seat overage detected",
		slog.String("subscription_id", subscription.ID),
		slog.Int("seat_quantity", subscription.SeatQuantity),
		slog.Int("member_count", memberCount),
	)
	return nil
}

// RecipientResolver maps a billing customer to the email address that
// should receive billing notifications. For organizations this is the
// billing contact, for users their account address.
type RecipientResolver func(ctx context.Context, customerType CustomerType, customerID string) (string, error)

// EmailNotifier delivers billing notifications by email.
type EmailNotifier struct {
	sender  email.EmailSender
	resolve RecipientResolver
	repo    Repository
}

// NewEmailNotifier creates a Notifier sending through the given sender.
// The repository is used to resolve the paying customer for events that
// only carry a subscription ID.
// Panics if any dependency is nil to fail fast during initialization.
func NewEmailNotifier(sender email.EmailSender, resolve RecipientResolver, repo Repository) *EmailNotifier {
	if sender == nil {
		panic("billing: email sender is required")
	}
	if resolve == nil {
		panic("billing: recipient resolver is required")
	}
	if repo == nil {
		panic("billing: repository is required")
	}
	return &EmailNotifier{sender: sender, resolve: resolve, repo: repo}
}

func (n *EmailNotifier) NotifyPaymentFailure(ctx context.Context, failure PaymentFailure) error {
	subscription, err := n.repo.GetSubscription(ctx, failure.SubscriptionID)
	if err != nil {
		return fmt.Errorf("billing: resolve payment failure recipient: %w", err)
	}
	return n.send(ctx, subscription.CustomerType, subscription.CustomerID, email.SendEmailParams{
		Subject: "Payment failed for your Shelfmark subscription",
		BodyHTML: fmt.Sprintf(
			"<p>We could not collect payment for invoice <strong>%s</strong> (%d %s).</p>"+
				"<p>Please update your payment method to keep your subscription active.</p>",
			failure.InvoiceID, failure.AmountDue, failure.Currency,
		),
		Tag: "billing-payment-failed",
	})
}

func (n *EmailNotifier) NotifyGracePeriodExpired(ctx context.Context, subscription *Subscription) error {
	return n.send(ctx, subscription.CustomerType, subscription.CustomerID, email.SendEmailParams{
		Subject: "Your Shelfmark subscription has been canceled",
		BodyHTML: fmt.Sprintf(
			"<p>The grace period for subscription <strong>%s</strong> has ended and the subscription was canceled.</p>"+
				"<p>You can reactivate it anytime from the billing page.</p>",
			subscription.ID,
		),
		Tag: "billing-grace-expired",
	})
}

func (n *EmailNotifier) NotifySeatOverage(ctx context.Context, subscription *Subscription, memberCount int) error {
	return n.send(ctx, subscription.CustomerType, subscription.CustomerID, email.SendEmailParams{
		Subject: "Your team has outgrown its seats",
		BodyHTML: fmt.Sprintf(
			"<p>Your organization has %d active members but only %d purchased seats.</p>"+
				"<p>We could not raise the seat count automatically; please review your plan.</p>",
			memberCount, subscription.SeatQuantity,
		),
		Tag: "billing-seat-overage",
	})
}

func (n *EmailNotifier) send(ctx context.Context, customerType CustomerType, customerID string, params email.SendEmailParams) error {
	recipient, err := n.resolve(ctx, customerType, customerID)
	if err != nil {
		return fmt.Errorf("billing: resolve notification recipient: %w", err)
	}
	params.SendTo = recipient
	return n.sender.SendEmail(ctx, params)
}
