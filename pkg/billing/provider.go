package billing

import (
	"context"
	"time"

	"github.com/shelfmark/shelfmark/pkg/entitlement"
)

// CheckoutParams carries everything a provider needs to open a checkout
// session. Metadata always includes the purchase intent ID so the provider
// echoes it back on completion webhooks.
type CheckoutParams struct {
	CustomerType    CustomerType
	CustomerID      string
	PlanKey         entitlement.PlanKey
	BillingInterval entitlement.BillingInterval
	SeatQuantity    int
	Metadata        map[string]string
	ReturnURL       string
	CancelURL       string
}

// PortalParams identifies the customer a managed billing portal session is
// opened for.
type PortalParams struct {
	CustomerType CustomerType
	CustomerID   string
	ReturnURL    string
}

// ProviderSession is the provider's response to a checkout request.
type ProviderSession struct {
	ID        string
	URL       string
	ExpiresAt *time.Time
	Metadata  map[string]string
}

// PortalSession is the provider's response to a portal request.
type PortalSession struct {
	ID        string
	URL       string
	ExpiresAt *time.Time
}

// Provider abstracts the external payment processor.
type Provider interface {
	// CreateCheckoutSession opens a hosted checkout for the given purchase.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*ProviderSession, error)
	// CreateBillingPortalSession opens the provider's self-serve portal.
	CreateBillingPortalSession(ctx context.Context, params PortalParams) (*PortalSession, error)
	// UpdateSubscriptionSeats raises the seat quantity on the provider side
	// and returns the updated subscription state. Providers without seat
	// management return ErrSeatUpdateUnsupported.
	UpdateSubscriptionSeats(ctx context.Context, providerSubscriptionID string, seatQuantity int) (*Subscription, error)
}
