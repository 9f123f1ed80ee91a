package billing

import (
	"fmt"
	"time"

	"golang.org/x/text/currency"

	"github.com/shelfmark/shelfmark/pkg/entitlement"
)

// subscriptionFromPayload maps a provider subscription object to the
// normalized model. Only plan_key and subscription_id are mandatory;
// everything else falls back to sensible defaults so partial provider
// payloads still sync.
func (s *service) subscriptionFromPayload(payload map[string]any) (*Subscription, error) {
	subscriptionID := stringField(payload, "subscription_id", "")
	if subscriptionID == "" {
		return nil, fmt.Errorf("%w: subscription_id missing", ErrMalformedPayload)
	}

	planKey, err := entitlement.ParsePlanKey(stringField(payload, "plan_key", ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	interval, err := entitlement.ParseBillingInterval(stringField(payload, "billing_interval", string(entitlement.BillingIntervalMonthly)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	status, err := entitlement.ParseSubscriptionStatus(stringField(payload, "status", string(entitlement.StatusActive)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	customerType, err := ParseCustomerType(stringField(payload, "customer_type", string(CustomerUser)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	currentPeriodStart, err := timeField(payload, "current_period_start")
	if err != nil {
		return nil, err
	}
	currentPeriodEnd, err := timeField(payload, "current_period_end")
	if err != nil {
		return nil, err
	}
	trialEnd, err := timeField(payload, "trial_end")
	if err != nil {
		return nil, err
	}
	cancelAt, err := timeField(payload, "cancel_at")
	if err != nil {
		return nil, err
	}
	canceledAt, err := timeField(payload, "canceled_at")
	if err != nil {
		return nil, err
	}
	graceExpiresAt, err := timeField(payload, "grace_period_expires_at")
	if err != nil {
		return nil, err
	}
	createdAt, err := timeField(payload, "created_at")
	if err != nil {
		return nil, err
	}
	updatedAt, err := timeField(payload, "updated_at")
	if err != nil {
		return nil, err
	}

	addOns, err := addOnsField(payload, "add_ons")
	if err != nil {
		return nil, err
	}

	now := s.now()
	subscription := &Subscription{
		ID:                   subscriptionID,
		ProviderID:           stringField(payload, "provider_id", subscriptionID),
		CustomerType:         customerType,
		CustomerID:           stringField(payload, "customer_id", ""),
		PlanKey:              planKey,
		BillingInterval:      interval,
		Status:               status,
		SeatQuantity:         intField(payload, "seat_quantity", 1),
		AddOns:               addOns,
		CurrentPeriodStart:   currentPeriodStart,
		CurrentPeriodEnd:     currentPeriodEnd,
		TrialEnd:             trialEnd,
		CancelAt:             cancelAt,
		CanceledAt:           canceledAt,
		GracePeriodExpiresAt: graceExpiresAt,
		Metadata:             metadataField(payload, "metadata"),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if createdAt != nil {
		subscription.CreatedAt = *createdAt
	}
	if updatedAt != nil {
		subscription.UpdatedAt = *updatedAt
	}
	return subscription, nil
}

// invoiceFromPayload maps a provider invoice object to the persisted
// record. subscription_id is mandatory; a missing invoice_id is replaced
// with a generated one so retried events still upsert cleanly.
func (s *service) invoiceFromPayload(payload map[string]any) (*InvoiceRecord, error) {
	subscriptionID := stringField(payload, "subscription_id", "")
	if subscriptionID == "" {
		return nil, fmt.Errorf("%w: subscription_id missing from invoice", ErrMalformedPayload)
	}

	status, err := ParseInvoiceStatus(stringField(payload, "status", string(InvoiceOpen)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	code, err := normalizeCurrency(stringField(payload, "currency", "USD"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	periodStart, err := timeField(payload, "period_start")
	if err != nil {
		return nil, err
	}
	periodEnd, err := timeField(payload, "period_end")
	if err != nil {
		return nil, err
	}
	createdAt, err := timeField(payload, "created_at")
	if err != nil {
		return nil, err
	}
	updatedAt, err := timeField(payload, "updated_at")
	if err != nil {
		return nil, err
	}

	now := s.now()
	invoice := &InvoiceRecord{
		ID:                stringField(payload, "invoice_id", newID("in_")),
		SubscriptionID:    subscriptionID,
		AmountDue:         int64Field(payload, "amount_due", 0),
		Currency:          code,
		Status:            status,
		PeriodStart:       periodStart,
		PeriodEnd:         periodEnd,
		ProviderInvoiceID: stringField(payload, "provider_invoice_id", ""),
		PDFURL:            stringField(payload, "pdf_url", ""),
		Metadata:          metadataField(payload, "metadata"),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if createdAt != nil {
		invoice.CreatedAt = *createdAt
	}
	if updatedAt != nil {
		invoice.UpdatedAt = *updatedAt
	}
	return invoice, nil
}

// normalizeCurrency validates an ISO 4217 code and returns its canonical
// uppercase form.
func normalizeCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("unsupported currency %q: %w", code, err)
	}
	return unit.String(), nil
}

func stringField(payload map[string]any, key, fallback string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return fallback
	}
	s, ok := value.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}

// intField tolerates float64 since JSON numbers decode as such.
func intField(payload map[string]any, key string, fallback int) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func int64Field(payload map[string]any, key string, fallback int64) int64 {
	switch v := payload[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return fallback
	}
}

// timeField parses optional RFC 3339 timestamps. Absent and null values
// yield nil; malformed values are rejected rather than silently dropped.
func timeField(payload map[string]any, key string) (*time.Time, error) {
	value, ok := payload[key]
	if !ok || value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case time.Time:
		return &v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("%w: bad %s timestamp: %w", ErrMalformedPayload, key, err)
		}
		return &parsed, nil
	default:
		return nil, fmt.Errorf("%w: unsupported %s value", ErrMalformedPayload, key)
	}
}

func metadataField(payload map[string]any, key string) map[string]string {
	raw, ok := payload[key].(map[string]any)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func addOnsField(payload map[string]any, key string) ([]entitlement.AddOnGrant, error) {
	raw, ok := payload[key].([]any)
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	grants := make([]entitlement.AddOnGrant, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: add_ons entries must be objects", ErrMalformedPayload)
		}
		grant := entitlement.AddOnGrant{
			Type:     entitlement.AddOnType(stringField(obj, "type", "")),
			Quantity: intField(obj, "quantity", 1),
		}
		if err := grant.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		grants = append(grants, grant)
	}
	return grants, nil
}
