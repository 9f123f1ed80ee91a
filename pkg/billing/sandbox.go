package billing

import (
	"context"
	"fmt"
	"time"
)

const (
	sandboxCheckoutTTL = 30 * time.Minute
	sandboxPortalTTL   = 15 * time.Minute
)

// SandboxProvider is a stateless Provider for local development and tests.
// It fabricates session IDs and URLs without talking to any external
// service; completing a sandbox checkout requires posting the matching
// webhook manually.
type SandboxProvider struct {
	now func() time.Time
}

// NewSandboxProvider returns a sandbox Provider.
func NewSandboxProvider() *SandboxProvider {
	return &SandboxProvider{now: time.Now}
}

func (p *SandboxProvider) CreateCheckoutSession(_ context.Context, params CheckoutParams) (*ProviderSession, error) {
	sessionID := newID("cs_")
	expiresAt := p.now().Add(sandboxCheckoutTTL)
	return &ProviderSession{
		ID:        sessionID,
		URL:       "https://billing.local/checkout/" + sessionID,
		ExpiresAt: &expiresAt,
		Metadata:  params.Metadata,
	}, nil
}

func (p *SandboxProvider) CreateBillingPortalSession(_ context.Context, params PortalParams) (*PortalSession, error) {
	expiresAt := p.now().Add(sandboxPortalTTL)
	return &PortalSession{
		ID:        newID("ps_"),
		URL:       fmt.Sprintf("https://billing.local/portal/%s/%s", params.CustomerType, params.CustomerID),
		ExpiresAt: &expiresAt,
	}, nil
}

// UpdateSubscriptionSeats always fails: the sandbox holds no subscription
// state to mutate. Seat updates need a real provider integration.
func (p *SandboxProvider) UpdateSubscriptionSeats(context.Context, string, int) (*Subscription, error) {
	return nil, ErrSeatUpdateUnsupported
}
