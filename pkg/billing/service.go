package billing

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shelfmark/shelfmark/pkg/entitlement"
)

const (
	defaultGracePeriodDays = 7
	defaultInvoiceLimit    = 20
)

// EntitlementInvalidator evicts entitlement caches affected by billing
// changes. Satisfied by entitlement.Service.
type EntitlementInvalidator interface {
	InvalidateSubscription(ctx context.Context, subscriptionID string) error
	InvalidateUser(ctx context.Context, userID string) error
	InvalidateOrganization(ctx context.Context, organizationID string) error
}

// CheckoutInput describes a checkout session request.
type CheckoutInput struct {
	CustomerType    CustomerType
	CustomerID      string
	PlanKey         entitlement.PlanKey
	BillingInterval entitlement.BillingInterval
	SeatQuantity    int
	ReturnURL       string
	CancelURL       string
	Metadata        map[string]string
}

// Service coordinates purchase intents, subscription state, invoices, and
// the notifications and cache invalidations they trigger.
type Service interface {
	// CreateCheckoutSession records a purchase intent and opens a provider
	// checkout session for it.
	CreateCheckoutSession(ctx context.Context, input CheckoutInput) (*CheckoutSession, error)
	// CreatePortalSession opens the provider's self-serve billing portal.
	CreatePortalSession(ctx context.Context, params PortalParams) (*PortalSession, error)
	// MarkIntentCompleted finalizes the purchase intent tied to a provider
	// session and returns the subscription it produced.
	MarkIntentCompleted(ctx context.Context, providerSessionID string) (*Subscription, error)
	// HandleWebhook records and dispatches a provider event. Events already
	// seen are absorbed silently; unknown event types are recorded but
	// otherwise ignored.
	HandleWebhook(ctx context.Context, event WebhookEvent) error
	// ListInvoices returns the newest invoices for a customer. A limit of
	// zero or less falls back to the default page size.
	ListInvoices(ctx context.Context, customerType CustomerType, customerID string, limit int) ([]InvoiceRecord, error)
	// ReconcileSeats compares active organization members against purchased
	// seats and raises the seat count with the provider when members exceed
	// seats. Seats are never shrunk automatically.
	ReconcileSeats(ctx context.Context, subscriptionID string, memberCount int) (*SeatReconciliationResult, error)
	// ProcessGracePeriodExpiration cancels a subscription whose grace
	// period has lapsed.
	ProcessGracePeriodExpiration(ctx context.Context, subscriptionID string) (*Subscription, error)
	// ProcessExpiredGracePeriods cancels every subscription whose grace
	// period ended at or before asOf and reports how many were processed.
	ProcessExpiredGracePeriods(ctx context.Context, asOf time.Time, limit int) (int, error)
}

type service struct {
	repo            Repository
	provider        Provider
	notifier        Notifier
	events          EventLogger
	invalidator     EntitlementInvalidator
	gracePeriodDays int
	now             func() time.Time
}

// NewService creates a billing Service.
// Panics if any required dependency is nil to fail fast during initialization.
func NewService(repo Repository, provider Provider, notifier Notifier, events EventLogger, invalidator EntitlementInvalidator, opts ...Option) Service {
	if repo == nil {
		panic("billing: Repository is required")
	}
	if provider == nil {
		panic("billing: Provider is required")
	}
	if notifier == nil {
		panic("billing: Notifier is required")
	}
	if events == nil {
		panic("billing: EventLogger is required")
	}
	if invalidator == nil {
		panic("billing: EntitlementInvalidator is required")
	}

	s := &service{
		repo:            repo,
		provider:        provider,
		notifier:        notifier,
		events:          events,
		invalidator:     invalidator,
		gracePeriodDays: defaultGracePeriodDays,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) CreateCheckoutSession(ctx context.Context, input CheckoutInput) (*CheckoutSession, error) {
	if input.SeatQuantity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSeatQuantity, input.SeatQuantity)
	}

	now := s.now()
	intent := &PurchaseIntent{
		ID:              newID("pi_"),
		CustomerType:    input.CustomerType,
		CustomerID:      input.CustomerID,
		PlanKey:         input.PlanKey,
		BillingInterval: input.BillingInterval,
		SeatQuantity:    input.SeatQuantity,
		Status:          IntentPending,
		ReturnURL:       input.ReturnURL,
		CancelURL:       input.CancelURL,
		Metadata:        input.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if intent.Metadata == nil {
		intent.Metadata = map[string]string{}
	}
	if err := s.repo.SavePurchaseIntent(ctx, intent); err != nil {
		return nil, fmt.Errorf("billing: save purchase intent: %w", err)
	}

	// The intent ID rides along in session metadata; caller metadata wins
	// on key collisions.
	sessionMetadata := map[string]string{"purchase_intent_id": intent.ID}
	for k, v := range intent.Metadata {
		sessionMetadata[k] = v
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerType:    input.CustomerType,
		CustomerID:      input.CustomerID,
		PlanKey:         input.PlanKey,
		BillingInterval: input.BillingInterval,
		SeatQuantity:    input.SeatQuantity,
		Metadata:        sessionMetadata,
		ReturnURL:       input.ReturnURL,
		CancelURL:       input.CancelURL,
	})
	if err != nil {
		return nil, errors.Join(ErrCheckoutFailed, err)
	}

	intent.ProviderSessionID = session.ID
	intent.ProviderSessionURL = session.URL
	intent.ExpiresAt = session.ExpiresAt
	if session.Metadata != nil {
		intent.Metadata = session.Metadata
	}
	intent.UpdatedAt = s.now()
	if err := s.repo.SavePurchaseIntent(ctx, intent); err != nil {
		return nil, fmt.Errorf("billing: update purchase intent: %w", err)
	}

	return &CheckoutSession{
		Intent:      *intent,
		CheckoutURL: intent.ProviderSessionURL,
		ExpiresAt:   intent.ExpiresAt,
	}, nil
}

func (s *service) CreatePortalSession(ctx context.Context, params PortalParams) (*PortalSession, error) {
	session, err := s.provider.CreateBillingPortalSession(ctx, params)
	if err != nil {
		return nil, errors.Join(ErrPortalFailed, err)
	}
	return session, nil
}

func (s *service) MarkIntentCompleted(ctx context.Context, providerSessionID string) (*Subscription, error) {
	intent, err := s.repo.GetPurchaseIntentBySession(ctx, providerSessionID)
	if err != nil {
		return nil, err
	}

	completed, err := s.repo.MarkPurchaseIntentCompleted(ctx, intent.ID)
	if err != nil {
		return nil, fmt.Errorf("billing: mark intent completed: %w", err)
	}

	subscriptionID := completed.Metadata["subscription_id"]
	if subscriptionID == "" {
		return nil, fmt.Errorf("%w: intent %s", ErrIntentMissingSubscription, completed.ID)
	}

	subscription, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	if err := s.invalidateEntitlements(ctx, subscription); err != nil {
		return nil, err
	}
	s.events.Log(ctx, AuditEvent{
		Type:           AuditSubscriptionActivated,
		SubscriptionID: subscription.ID,
		ActorID:        subscription.CustomerID,
		OccurredAt:     s.now(),
	})
	return subscription, nil
}

func (s *service) HandleWebhook(ctx context.Context, event WebhookEvent) error {
	firstSeen, err := s.repo.RecordWebhookEvent(ctx, &event)
	if err != nil {
		return fmt.Errorf("billing: record webhook event: %w", err)
	}
	if !firstSeen {
		return nil
	}

	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionCanceled:
		return s.handleSubscriptionEvent(ctx, event)
	case EventPaymentFailed:
		return s.handlePaymentFailed(ctx, event)
	case EventPaymentSucceeded:
		return s.handlePaymentSucceeded(ctx, event)
	default:
		return nil
	}
}

func (s *service) ListInvoices(ctx context.Context, customerType CustomerType, customerID string, limit int) ([]InvoiceRecord, error) {
	if limit <= 0 {
		limit = defaultInvoiceLimit
	}
	return s.repo.ListInvoices(ctx, customerType, customerID, limit)
}

func (s *service) ReconcileSeats(ctx context.Context, subscriptionID string, memberCount int) (*SeatReconciliationResult, error) {
	subscription, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	if memberCount < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMemberCount, memberCount)
	}

	if memberCount == subscription.SeatQuantity {
		return s.recordReconciliation(ctx, &SeatReconciliationResult{
			SubscriptionID: subscription.ID,
			MemberCount:    memberCount,
			SeatQuantity:   subscription.SeatQuantity,
			Outcome:        OutcomeInSync,
		})
	}

	if memberCount > subscription.SeatQuantity {
		updated, err := s.provider.UpdateSubscriptionSeats(ctx, subscription.ProviderID, memberCount)
		if err != nil {
			if notifyErr := s.notifier.NotifySeatOverage(ctx, subscription, memberCount); notifyErr != nil {
				return nil, notifyErr
			}
			return s.recordReconciliation(ctx, &SeatReconciliationResult{
				SubscriptionID: subscription.ID,
				MemberCount:    memberCount,
				SeatQuantity:   subscription.SeatQuantity,
				Outcome:        OutcomeOverageRequiresAction,
			})
		}

		if err := s.repo.UpsertSubscription(ctx, updated); err != nil {
			return nil, fmt.Errorf("billing: persist updated subscription: %w", err)
		}
		if err := s.invalidateEntitlements(ctx, updated); err != nil {
			return nil, err
		}
		return s.recordReconciliation(ctx, &SeatReconciliationResult{
			SubscriptionID:      updated.ID,
			MemberCount:         memberCount,
			SeatQuantity:        updated.SeatQuantity,
			Outcome:             OutcomeUpdated,
			UpdatedSubscription: updated,
		})
	}

	return s.recordReconciliation(ctx, &SeatReconciliationResult{
		SubscriptionID: subscription.ID,
		MemberCount:    memberCount,
		SeatQuantity:   subscription.SeatQuantity,
		Outcome:        OutcomeUnderUtilized,
	})
}

func (s *service) ProcessGracePeriodExpiration(ctx context.Context, subscriptionID string) (*Subscription, error) {
	if _, err := s.repo.GetSubscription(ctx, subscriptionID); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateSubscriptionStatus(ctx, subscriptionID, entitlement.StatusCanceled, nil)
	if err != nil {
		return nil, fmt.Errorf("billing: cancel lapsed subscription: %w", err)
	}

	if err := s.notifier.NotifyGracePeriodExpired(ctx, updated); err != nil {
		return nil, err
	}
	s.events.Log(ctx, AuditEvent{
		Type:           AuditGracePeriodExpired,
		SubscriptionID: updated.ID,
		ActorID:        updated.CustomerID,
		OccurredAt:     s.now(),
	})
	if err := s.invalidateEntitlements(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) ProcessExpiredGracePeriods(ctx context.Context, asOf time.Time, limit int) (int, error) {
	lapsed, err := s.repo.ListExpiredGracePeriods(ctx, asOf, limit)
	if err != nil {
		return 0, fmt.Errorf("billing: list expired grace periods: %w", err)
	}

	var (
		processed int
		errs      []error
	)
	for _, subscription := range lapsed {
		if _, err := s.ProcessGracePeriodExpiration(ctx, subscription.ID); err != nil {
			errs = append(errs, fmt.Errorf("subscription %s: %w", subscription.ID, err))
			continue
		}
		processed++
	}
	return processed, errors.Join(errs...)
}

func (s *service) handleSubscriptionEvent(ctx context.Context, event WebhookEvent) error {
	payload, ok := event.Payload["subscription"].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: subscription object missing", ErrMalformedPayload)
	}

	subscription, err := s.subscriptionFromPayload(payload)
	if err != nil {
		return err
	}
	if err := s.repo.UpsertSubscription(ctx, subscription); err != nil {
		return fmt.Errorf("billing: upsert subscription: %w", err)
	}

	auditType := AuditSubscriptionUpdated
	switch {
	case event.Type == EventSubscriptionCanceled:
		auditType = AuditSubscriptionCanceled
	case subscription.Status == entitlement.StatusActive:
		auditType = AuditSubscriptionActivated
	}

	s.events.Log(ctx, AuditEvent{
		Type:           auditType,
		SubscriptionID: subscription.ID,
		ActorID:        subscription.CustomerID,
		OccurredAt:     s.now(),
	})
	return s.invalidateEntitlements(ctx, subscription)
}

func (s *service) handlePaymentFailed(ctx context.Context, event WebhookEvent) error {
	payload, ok := event.Payload["invoice"].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: invoice object missing", ErrMalformedPayload)
	}

	invoice, err := s.invoiceFromPayload(payload)
	if err != nil {
		return err
	}
	if err := s.repo.RecordInvoice(ctx, invoice); err != nil {
		return fmt.Errorf("billing: record invoice: %w", err)
	}

	gracePeriodExpiresAt := s.now().AddDate(0, 0, s.gracePeriodDays)
	subscription, err := s.repo.UpdateSubscriptionStatus(ctx, invoice.SubscriptionID, entitlement.StatusPastDue, &gracePeriodExpiresAt)
	if err != nil {
		return err
	}

	failure := PaymentFailure{
		SubscriptionID:       invoice.SubscriptionID,
		InvoiceID:            invoice.ID,
		AmountDue:            invoice.AmountDue,
		Currency:             invoice.Currency,
		OccurredAt:           s.now(),
		GracePeriodExpiresAt: &gracePeriodExpiresAt,
	}
	if err := s.notifier.NotifyPaymentFailure(ctx, failure); err != nil {
		return err
	}
	s.events.Log(ctx, AuditEvent{
		Type:           AuditPaymentFailed,
		SubscriptionID: invoice.SubscriptionID,
		ActorID:        subscription.CustomerID,
		Metadata:       map[string]string{"invoice_id": invoice.ID},
		OccurredAt:     s.now(),
	})
	return s.invalidateEntitlements(ctx, subscription)
}

func (s *service) handlePaymentSucceeded(ctx context.Context, event WebhookEvent) error {
	payload, ok := event.Payload["invoice"].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: invoice object missing", ErrMalformedPayload)
	}

	invoice, err := s.invoiceFromPayload(payload)
	if err != nil {
		return err
	}
	if err := s.repo.RecordInvoice(ctx, invoice); err != nil {
		return fmt.Errorf("billing: record invoice: %w", err)
	}

	subscription, err := s.repo.UpdateSubscriptionStatus(ctx, invoice.SubscriptionID, entitlement.StatusActive, nil)
	if err != nil {
		return err
	}

	s.events.Log(ctx, AuditEvent{
		Type:           AuditPaymentRecovered,
		SubscriptionID: invoice.SubscriptionID,
		ActorID:        subscription.CustomerID,
		Metadata:       map[string]string{"invoice_id": invoice.ID},
		OccurredAt:     s.now(),
	})
	return s.invalidateEntitlements(ctx, subscription)
}

func (s *service) recordReconciliation(ctx context.Context, result *SeatReconciliationResult) (*SeatReconciliationResult, error) {
	if err := s.repo.RecordSeatReconciliation(ctx, result); err != nil {
		return nil, fmt.Errorf("billing: record seat reconciliation: %w", err)
	}
	return result, nil
}

// invalidateEntitlements evicts the subscription tag plus the tag of
// whichever entity pays for it.
func (s *service) invalidateEntitlements(ctx context.Context, subscription *Subscription) error {
	if err := s.invalidator.InvalidateSubscription(ctx, subscription.ID); err != nil {
		return fmt.Errorf("billing: invalidate subscription entitlements: %w", err)
	}
	if subscription.CustomerType == CustomerUser {
		if err := s.invalidator.InvalidateUser(ctx, subscription.CustomerID); err != nil {
			return fmt.Errorf("billing: invalidate user entitlements: %w", err)
		}
		return nil
	}
	if err := s.invalidator.InvalidateOrganization(ctx, subscription.CustomerID); err != nil {
		return fmt.Errorf("billing: invalidate organization entitlements: %w", err)
	}
	return nil
}

func newID(prefix string) string {
	id := uuid.New()
	return prefix + hex.EncodeToString(id[:])
}
