package billing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Mountable is implemented by services that expose an HTTP surface.
type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures which services to mount in the billing module.
// Each service is optional and will only be mounted if provided.
type RouterOptions struct {
	Billing Mountable
}

// Router creates a new billing module router with configurable services.
//
// Example:
//
//	billingAPI := billing.NewService(cfg, billingSvc, entitlementSvc, auth, log)
//
//	r := chi.NewRouter()
//	r.Mount("/api", billing.Router(billing.RouterOptions{
//	    Billing: billingAPI,
//	}))
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	if opts.Billing != nil {
		r.Mount("/billing", opts.Billing.Handle())
	}

	return r
}
