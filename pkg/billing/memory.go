package billing

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shelfmark/shelfmark/pkg/entitlement"
)

// MemoryRepository is an in-memory Repository for tests and local
// development. All returned records are copies; mutating them does not
// affect stored state.
type MemoryRepository struct {
	mu              sync.RWMutex
	intents         map[string]PurchaseIntent
	subscriptions   map[string]Subscription
	invoices        map[string]InvoiceRecord
	webhookEvents   map[string]time.Time
	reconciliations []SeatReconciliationResult
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		intents:       make(map[string]PurchaseIntent),
		subscriptions: make(map[string]Subscription),
		invoices:      make(map[string]InvoiceRecord),
		webhookEvents: make(map[string]time.Time),
	}
}

func (r *MemoryRepository) SavePurchaseIntent(_ context.Context, intent *PurchaseIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents[intent.ID] = copyIntent(*intent)
	return nil
}

func (r *MemoryRepository) GetPurchaseIntent(_ context.Context, intentID string) (*PurchaseIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	intent, ok := r.intents[intentID]
	if !ok {
		return nil, ErrIntentNotFound
	}
	intent = copyIntent(intent)
	return &intent, nil
}

func (r *MemoryRepository) GetPurchaseIntentBySession(_ context.Context, sessionID string) (*PurchaseIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, intent := range r.intents {
		if intent.ProviderSessionID == sessionID {
			intent = copyIntent(intent)
			return &intent, nil
		}
	}
	return nil, ErrIntentNotFound
}

func (r *MemoryRepository) MarkPurchaseIntentCompleted(_ context.Context, intentID string) (*PurchaseIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	intent, ok := r.intents[intentID]
	if !ok {
		return nil, ErrIntentNotFound
	}
	intent.Status = IntentCompleted
	intent.UpdatedAt = time.Now()
	r.intents[intentID] = intent
	intent = copyIntent(intent)
	return &intent, nil
}

func (r *MemoryRepository) UpsertSubscription(_ context.Context, sub *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscriptions[sub.ID] = copySubscription(*sub)
	return nil
}

func (r *MemoryRepository) GetSubscription(_ context.Context, subscriptionID string) (*Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subscriptions[subscriptionID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	sub = copySubscription(sub)
	return &sub, nil
}

func (r *MemoryRepository) UpdateSubscriptionStatus(_ context.Context, subscriptionID string, status entitlement.SubscriptionStatus, gracePeriodExpiresAt *time.Time) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subscriptions[subscriptionID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	sub.Status = status
	sub.GracePeriodExpiresAt = copyTime(gracePeriodExpiresAt)
	sub.UpdatedAt = time.Now()
	r.subscriptions[subscriptionID] = sub
	sub = copySubscription(sub)
	return &sub, nil
}

func (r *MemoryRepository) ListExpiredGracePeriods(_ context.Context, asOf time.Time, limit int) ([]Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []Subscription
	for _, sub := range r.subscriptions {
		if sub.Status != entitlement.StatusPastDue || sub.GracePeriodExpiresAt == nil {
			continue
		}
		if sub.GracePeriodExpiresAt.After(asOf) {
			continue
		}
		expired = append(expired, copySubscription(sub))
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].GracePeriodExpiresAt.Before(*expired[j].GracePeriodExpiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (r *MemoryRepository) RecordInvoice(_ context.Context, invoice *InvoiceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[invoice.ID] = copyInvoice(*invoice)
	return nil
}

func (r *MemoryRepository) ListInvoices(_ context.Context, customerType CustomerType, customerID string, limit int) ([]InvoiceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []InvoiceRecord
	for _, invoice := range r.invoices {
		sub, ok := r.subscriptions[invoice.SubscriptionID]
		if !ok || sub.CustomerType != customerType || sub.CustomerID != customerID {
			continue
		}
		matched = append(matched, copyInvoice(invoice))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *MemoryRepository) RecordWebhookEvent(_ context.Context, event *WebhookEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, seen := r.webhookEvents[event.ID]; seen {
		return false, nil
	}
	r.webhookEvents[event.ID] = time.Now()
	return true, nil
}

func (r *MemoryRepository) RecordSeatReconciliation(_ context.Context, result *SeatReconciliationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record := *result
	if record.UpdatedSubscription != nil {
		sub := copySubscription(*record.UpdatedSubscription)
		record.UpdatedSubscription = &sub
	}
	r.reconciliations = append(r.reconciliations, record)
	return nil
}

// SeatReconciliations returns all recorded reconciliation results in
// insertion order.
func (r *MemoryRepository) SeatReconciliations() []SeatReconciliationResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.reconciliations)
}

func copyIntent(intent PurchaseIntent) PurchaseIntent {
	intent.Metadata = maps.Clone(intent.Metadata)
	intent.ExpiresAt = copyTime(intent.ExpiresAt)
	return intent
}

func copySubscription(sub Subscription) Subscription {
	sub.AddOns = slices.Clone(sub.AddOns)
	sub.Metadata = maps.Clone(sub.Metadata)
	sub.CurrentPeriodStart = copyTime(sub.CurrentPeriodStart)
	sub.CurrentPeriodEnd = copyTime(sub.CurrentPeriodEnd)
	sub.TrialEnd = copyTime(sub.TrialEnd)
	sub.CancelAt = copyTime(sub.CancelAt)
	sub.CanceledAt = copyTime(sub.CanceledAt)
	sub.GracePeriodExpiresAt = copyTime(sub.GracePeriodExpiresAt)
	return sub
}

func copyInvoice(invoice InvoiceRecord) InvoiceRecord {
	invoice.Metadata = maps.Clone(invoice.Metadata)
	invoice.PeriodStart = copyTime(invoice.PeriodStart)
	invoice.PeriodEnd = copyTime(invoice.PeriodEnd)
	return invoice
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
