package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/shelfmark/shelfmark/pkg/entitlement"
)

// paddleSessionTTL is how long Paddle hosted checkout and portal links
// typically stay valid.
const paddleSessionTTL = 24 * time.Hour

// PaddleConfig holds configuration for the Paddle billing provider.
// PriceIDs maps "plan_key.interval" (e.g. "team.monthly") to Paddle price
// IDs, parsed from a comma-separated key:value list.
type PaddleConfig struct {
	APIKey      string            `env:"PADDLE_API_KEY,required"`
	Environment string            `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	PriceIDs    map[string]string `env:"PADDLE_PRICE_IDS"`
}

// PaddleProvider implements Provider on top of the Paddle Billing API.
type PaddleProvider struct {
	client *paddle.SDK
	config PaddleConfig
}

// NewPaddleProvider creates a Paddle-backed Provider.
func NewPaddleProvider(config PaddleConfig) (*PaddleProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("billing: paddle API key is required")
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, fmt.Errorf("billing: invalid paddle environment: %s", config.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("billing: create paddle client: %w", err)
	}

	return &PaddleProvider{client: client, config: config}, nil
}

func (p *PaddleProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*ProviderSession, error) {
	priceID, err := p.priceID(params.PlanKey, params.BillingInterval)
	if err != nil {
		return nil, err
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  priceID,
		Quantity: params.SeatQuantity,
	})

	customData := paddle.CustomData{
		"customer_type": string(params.CustomerType),
		"customer_id":   params.CustomerID,
	}
	for k, v := range params.Metadata {
		customData[k] = v
	}

	req := &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomData: customData,
	}
	if params.ReturnURL != "" {
		req.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(params.ReturnURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("billing: create paddle transaction: %w", err)
	}

	if transaction.Checkout == nil || transaction.Checkout.URL == nil {
		return nil, errors.New("billing: no checkout URL returned from paddle")
	}

	expiresAt := time.Now().Add(paddleSessionTTL)
	return &ProviderSession{
		ID:        transaction.ID,
		URL:       *transaction.Checkout.URL,
		ExpiresAt: &expiresAt,
		Metadata:  params.Metadata,
	}, nil
}

func (p *PaddleProvider) CreateBillingPortalSession(ctx context.Context, params PortalParams) (*PortalSession, error) {
	// Paddle expects its own customer ID (ctm_xxx); our customer IDs are
	// stored as the Paddle customer reference when the subscription is
	// first synchronized.
	session, err := p.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx, &paddle.CreateCustomerPortalSessionRequest{
		CustomerID: params.CustomerID,
	})
	if err != nil {
		return nil, fmt.Errorf("billing: create paddle portal session: %w", err)
	}

	if session.URLs.General.Overview == "" {
		return nil, errors.New("billing: no portal URL returned from paddle")
	}

	expiresAt := time.Now().Add(paddleSessionTTL)
	return &PortalSession{
		URL:       session.URLs.General.Overview,
		ExpiresAt: &expiresAt,
	}, nil
}

// UpdateSubscriptionSeats is not wired yet: raising seats on Paddle means
// patching the subscription's catalog items, which requires seat SKUs.
// TODO: model per-seat price items and call SubscriptionsClient.UpdateSubscription.
func (p *PaddleProvider) UpdateSubscriptionSeats(context.Context, string, int) (*Subscription, error) {
	return nil, ErrSeatUpdateUnsupported
}

func (p *PaddleProvider) priceID(plan entitlement.PlanKey, interval entitlement.BillingInterval) (string, error) {
	key := string(plan) + "." + string(interval)
	priceID, ok := p.config.PriceIDs[key]
	if !ok || priceID == "" {
		return "", fmt.Errorf("billing: no paddle price configured for %s", key)
	}
	return priceID, nil
}
