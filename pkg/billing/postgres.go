package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfmark/shelfmark/pkg/entitlement"
	"github.com/shelfmark/shelfmark/pkg/pg"
)

const (
	intentColumns = `intent_id, customer_type, customer_id, plan_key, billing_interval,
		seat_quantity, status, provider_session_id, provider_session_url, return_url,
		cancel_url, metadata, expires_at, created_at, updated_at`

	subscriptionColumns = `subscription_id, provider_id, customer_type, customer_id,
		plan_key, billing_interval, status, seat_quantity, add_ons,
		current_period_start, current_period_end, trial_end, cancel_at, canceled_at,
		grace_period_expires_at, metadata, created_at, updated_at`

	invoiceColumns = `invoice_id, subscription_id, amount_due, currency, status,
		period_start, period_end, provider_invoice_id, pdf_url, metadata,
		created_at, updated_at`
)

// PostgresRepository persists billing state in PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a Repository backed by pool.
// Panics when pool is nil.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("billing: pgx pool is required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) SavePurchaseIntent(ctx context.Context, intent *PurchaseIntent) error {
	const query = `
		INSERT INTO billing_purchase_intents (` + intentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (intent_id) DO UPDATE SET
			status = EXCLUDED.status,
			provider_session_id = EXCLUDED.provider_session_id,
			provider_session_url = EXCLUDED.provider_session_url,
			metadata = EXCLUDED.metadata,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()`

	metadata, err := json.Marshal(intent.Metadata)
	if err != nil {
		return fmt.Errorf("billing: encode intent metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		intent.ID,
		intent.CustomerType,
		intent.CustomerID,
		intent.PlanKey,
		intent.BillingInterval,
		intent.SeatQuantity,
		intent.Status,
		intent.ProviderSessionID,
		intent.ProviderSessionURL,
		intent.ReturnURL,
		intent.CancelURL,
		metadata,
		intent.ExpiresAt,
		intent.CreatedAt,
		intent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("billing: save purchase intent: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetPurchaseIntent(ctx context.Context, intentID string) (*PurchaseIntent, error) {
	const query = `
		SELECT ` + intentColumns + `
		FROM billing_purchase_intents
		WHERE intent_id = $1`

	intent, err := scanIntent(r.pool.QueryRow(ctx, query, intentID))
	if pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: %s", ErrIntentNotFound, intentID)
	}
	if err != nil {
		return nil, fmt.Errorf("billing: query purchase intent: %w", err)
	}
	return intent, nil
}

func (r *PostgresRepository) GetPurchaseIntentBySession(ctx context.Context, sessionID string) (*PurchaseIntent, error) {
	const query = `
		SELECT ` + intentColumns + `
		FROM billing_purchase_intents
		WHERE provider_session_id = $1`

	intent, err := scanIntent(r.pool.QueryRow(ctx, query, sessionID))
	if pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: session %s", ErrIntentNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("billing: query purchase intent by session: %w", err)
	}
	return intent, nil
}

func (r *PostgresRepository) MarkPurchaseIntentCompleted(ctx context.Context, intentID string) (*PurchaseIntent, error) {
	const query = `
		UPDATE billing_purchase_intents
		SET status = 'completed', updated_at = NOW()
		WHERE intent_id = $1
		RETURNING ` + intentColumns

	intent, err := scanIntent(r.pool.QueryRow(ctx, query, intentID))
	if pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: %s", ErrIntentNotFound, intentID)
	}
	if err != nil {
		return nil, fmt.Errorf("billing: mark purchase intent completed: %w", err)
	}
	return intent, nil
}

func (r *PostgresRepository) UpsertSubscription(ctx context.Context, sub *Subscription) error {
	const query = `
		INSERT INTO billing_subscriptions (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (subscription_id) DO UPDATE SET
			provider_id = EXCLUDED.provider_id,
			customer_type = EXCLUDED.customer_type,
			customer_id = EXCLUDED.customer_id,
			plan_key = EXCLUDED.plan_key,
			billing_interval = EXCLUDED.billing_interval,
			status = EXCLUDED.status,
			seat_quantity = EXCLUDED.seat_quantity,
			add_ons = EXCLUDED.add_ons,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			trial_end = EXCLUDED.trial_end,
			cancel_at = EXCLUDED.cancel_at,
			canceled_at = EXCLUDED.canceled_at,
			grace_period_expires_at = EXCLUDED.grace_period_expires_at,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()`

	addOns, err := json.Marshal(sub.AddOns)
	if err != nil {
		return fmt.Errorf("billing: encode subscription add-ons: %w", err)
	}
	metadata, err := json.Marshal(sub.Metadata)
	if err != nil {
		return fmt.Errorf("billing: encode subscription metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		sub.ID,
		sub.ProviderID,
		sub.CustomerType,
		sub.CustomerID,
		sub.PlanKey,
		sub.BillingInterval,
		sub.Status,
		sub.SeatQuantity,
		addOns,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.TrialEnd,
		sub.CancelAt,
		sub.CanceledAt,
		sub.GracePeriodExpiresAt,
		metadata,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("billing: upsert subscription: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	const query = `
		SELECT ` + subscriptionColumns + `
		FROM billing_subscriptions
		WHERE subscription_id = $1`

	sub, err := scanSubscriptionRow(r.pool.QueryRow(ctx, query, subscriptionID))
	if pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, subscriptionID)
	}
	if err != nil {
		return nil, fmt.Errorf("billing: query subscription: %w", err)
	}
	return sub, nil
}

func (r *PostgresRepository) UpdateSubscriptionStatus(ctx context.Context, subscriptionID string, status entitlement.SubscriptionStatus, gracePeriodExpiresAt *time.Time) (*Subscription, error) {
	const query = `
		UPDATE billing_subscriptions
		SET status = $2, grace_period_expires_at = $3, updated_at = NOW()
		WHERE subscription_id = $1
		RETURNING ` + subscriptionColumns

	sub, err := scanSubscriptionRow(r.pool.QueryRow(ctx, query, subscriptionID, status, gracePeriodExpiresAt))
	if pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, subscriptionID)
	}
	if err != nil {
		return nil, fmt.Errorf("billing: update subscription status: %w", err)
	}
	return sub, nil
}

func (r *PostgresRepository) ListExpiredGracePeriods(ctx context.Context, asOf time.Time, limit int) ([]Subscription, error) {
	const query = `
		SELECT ` + subscriptionColumns + `
		FROM billing_subscriptions
		WHERE status = 'past_due'
			AND grace_period_expires_at IS NOT NULL
			AND grace_period_expires_at <= $1
		ORDER BY grace_period_expires_at
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("billing: query expired grace periods: %w", err)
	}
	defer rows.Close()

	var expired []Subscription
	for rows.Next() {
		sub, err := scanSubscriptionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("billing: scan expired grace period: %w", err)
		}
		expired = append(expired, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: iterate expired grace periods: %w", err)
	}
	return expired, nil
}

func (r *PostgresRepository) RecordInvoice(ctx context.Context, invoice *InvoiceRecord) error {
	const query = `
		INSERT INTO billing_invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (invoice_id) DO UPDATE SET
			amount_due = EXCLUDED.amount_due,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			pdf_url = EXCLUDED.pdf_url,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()`

	metadata, err := json.Marshal(invoice.Metadata)
	if err != nil {
		return fmt.Errorf("billing: encode invoice metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		invoice.ID,
		invoice.SubscriptionID,
		invoice.AmountDue,
		invoice.Currency,
		invoice.Status,
		invoice.PeriodStart,
		invoice.PeriodEnd,
		invoice.ProviderInvoiceID,
		invoice.PDFURL,
		metadata,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("billing: record invoice: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListInvoices(ctx context.Context, customerType CustomerType, customerID string, limit int) ([]InvoiceRecord, error) {
	const query = `
		SELECT inv.invoice_id, inv.subscription_id, inv.amount_due, inv.currency, inv.status,
			inv.period_start, inv.period_end, inv.provider_invoice_id, inv.pdf_url, inv.metadata,
			inv.created_at, inv.updated_at
		FROM billing_invoices inv
		JOIN billing_subscriptions sub ON sub.subscription_id = inv.subscription_id
		WHERE sub.customer_type = $1 AND sub.customer_id = $2
		ORDER BY inv.created_at DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, customerType, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("billing: query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []InvoiceRecord
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("billing: scan invoice: %w", err)
		}
		invoices = append(invoices, *invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: iterate invoices: %w", err)
	}
	return invoices, nil
}

// RecordWebhookEvent inserts the event and reports whether this is the first
// time the event ID was seen. Replays hit the conflict clause and return false.
func (r *PostgresRepository) RecordWebhookEvent(ctx context.Context, event *WebhookEvent) (bool, error) {
	const query = `
		INSERT INTO billing_webhook_events (event_id, event_type, payload, received_at, processed_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (event_id) DO NOTHING`

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return false, fmt.Errorf("billing: encode webhook payload: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, event.ID, event.Type, payload, event.ReceivedAt)
	if err != nil {
		return false, fmt.Errorf("billing: record webhook event: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) RecordSeatReconciliation(ctx context.Context, result *SeatReconciliationResult) error {
	const query = `
		INSERT INTO billing_seat_reconciliations (subscription_id, member_count, seat_quantity, outcome, recorded_at)
		VALUES ($1, $2, $3, $4, NOW())`

	_, err := r.pool.Exec(ctx, query,
		result.SubscriptionID,
		result.MemberCount,
		result.SeatQuantity,
		result.Outcome,
	)
	if err != nil {
		return fmt.Errorf("billing: record seat reconciliation: %w", err)
	}
	return nil
}

// NewPostgresRecipientResolver resolves notification recipients against the
// platform's users table: a user customer's own address, or the billing
// contact for organizations. Panics when pool is nil.
func NewPostgresRecipientResolver(pool *pgxpool.Pool) RecipientResolver {
	if pool == nil {
		panic("billing: pgx pool is required")
	}
	return func(ctx context.Context, customerType CustomerType, customerID string) (string, error) {
		var query string
		switch customerType {
		case CustomerUser:
			query = `SELECT email FROM users WHERE id = $1`
		case CustomerOrganization:
			query = `
				SELECT u.email
				FROM organizations o
				JOIN users u ON u.id = o.billing_contact_id
				WHERE o.organization_id = $1`
		default:
			return "", fmt.Errorf("%w: %s", ErrInvalidCustomerType, customerType)
		}

		var recipient string
		err := pool.QueryRow(ctx, query, customerID).Scan(&recipient)
		if pg.IsNotFoundError(err) {
			return "", fmt.Errorf("billing: no billing contact on record for %s %s", customerType, customerID)
		}
		if err != nil {
			return "", fmt.Errorf("billing: query billing contact: %w", err)
		}
		return recipient, nil
	}
}

func scanIntent(row pgx.Row) (*PurchaseIntent, error) {
	var (
		intent   PurchaseIntent
		metadata []byte
	)
	err := row.Scan(
		&intent.ID,
		&intent.CustomerType,
		&intent.CustomerID,
		&intent.PlanKey,
		&intent.BillingInterval,
		&intent.SeatQuantity,
		&intent.Status,
		&intent.ProviderSessionID,
		&intent.ProviderSessionURL,
		&intent.ReturnURL,
		&intent.CancelURL,
		&metadata,
		&intent.ExpiresAt,
		&intent.CreatedAt,
		&intent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeMetadata(metadata, &intent.Metadata); err != nil {
		return nil, err
	}
	return &intent, nil
}

func scanSubscriptionRow(row pgx.Row) (*Subscription, error) {
	var (
		sub      Subscription
		addOns   []byte
		metadata []byte
	)
	err := row.Scan(
		&sub.ID,
		&sub.ProviderID,
		&sub.CustomerType,
		&sub.CustomerID,
		&sub.PlanKey,
		&sub.BillingInterval,
		&sub.Status,
		&sub.SeatQuantity,
		&addOns,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.TrialEnd,
		&sub.CancelAt,
		&sub.CanceledAt,
		&sub.GracePeriodExpiresAt,
		&metadata,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(addOns) > 0 {
		if err := json.Unmarshal(addOns, &sub.AddOns); err != nil {
			return nil, fmt.Errorf("decode add-ons: %w", err)
		}
	}
	if err := decodeMetadata(metadata, &sub.Metadata); err != nil {
		return nil, err
	}
	return &sub, nil
}

func scanInvoice(row pgx.Row) (*InvoiceRecord, error) {
	var (
		invoice  InvoiceRecord
		metadata []byte
	)
	err := row.Scan(
		&invoice.ID,
		&invoice.SubscriptionID,
		&invoice.AmountDue,
		&invoice.Currency,
		&invoice.Status,
		&invoice.PeriodStart,
		&invoice.PeriodEnd,
		&invoice.ProviderInvoiceID,
		&invoice.PDFURL,
		&metadata,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeMetadata(metadata, &invoice.Metadata); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func decodeMetadata(raw []byte, dst *map[string]string) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	return nil
}
