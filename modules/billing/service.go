package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	billingsvc "github.com/shelfmark/shelfmark/pkg/billing"
	"github.com/shelfmark/shelfmark/pkg/entitlement"
	"github.com/shelfmark/shelfmark/pkg/logger"
)

// AuthFunc resolves the authenticated user's ID from an incoming request.
// Implementations typically validate a session cookie or bearer token
// against the platform's auth subsystem. An error yields a 401 response.
type AuthFunc func(r *http.Request) (string, error)

// Config holds the HTTP-surface settings for the billing module.
type Config struct {
	// WebhookSecret authenticates inbound provider webhooks. Leave empty
	// to disable signature verification (sandbox and local development).
	WebhookSecret string `env:"BILLING_WEBHOOK_SECRET"`
	// WebhookMaxAge bounds how old a signed webhook may be before it is
	// rejected as a replay.
	WebhookMaxAge time.Duration `env:"BILLING_WEBHOOK_MAX_AGE" envDefault:"5m"`
}

// Service exposes the billing and entitlement operations over HTTP. All
// endpoints except the provider webhook require an authenticated user.
type Service struct {
	cfg          Config
	billing      billingsvc.Service
	entitlements entitlement.Service
	auth         AuthFunc
	log          *slog.Logger
}

// NewService creates the billing HTTP service.
// Panics if any required dependency is nil to fail fast during initialization.
func NewService(cfg Config, billing billingsvc.Service, entitlements entitlement.Service, auth AuthFunc, log *slog.Logger) *Service {
	if billing == nil {
		panic("billing module: billing Service is required")
	}
	if entitlements == nil {
		panic("billing module: entitlement Service is required")
	}
	if auth == nil {
		panic("billing module: AuthFunc is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:          cfg,
		billing:      billing,
		entitlements: entitlements,
		auth:         auth,
		log:          log,
	}
}

func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/checkout-session", s.createCheckoutSession)
	r.Post("/portal-session", s.createPortalSession)
	r.Post("/webhook", s.receiveWebhook)
	r.Get("/invoices", s.listInvoices)
	r.Post("/subscriptions/{subscriptionID}/reconcile-seats", s.reconcileSeats)
	r.Get("/entitlements", s.getEntitlements)

	return r
}

// requireUser authenticates the request and writes a 401 response when the
// caller cannot be resolved.
func (s *Service) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := s.auth(r)
	if err != nil || userID == "" {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return "", false
	}
	return userID, true
}

// respondServiceError maps domain errors onto status codes: validation
// failures become 400, missing records 404, everything else an opaque 500.
func (s *Service) respondServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, billingsvc.ErrInvalidSeatQuantity),
		errors.Is(err, billingsvc.ErrInvalidMemberCount),
		errors.Is(err, billingsvc.ErrInvalidCustomerType),
		errors.Is(err, billingsvc.ErrInvalidEventType),
		errors.Is(err, billingsvc.ErrMalformedPayload),
		errors.Is(err, entitlement.ErrUnknownPlan),
		errors.Is(err, entitlement.ErrInvalidBillingInterval):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, billingsvc.ErrSubscriptionNotFound),
		errors.Is(err, billingsvc.ErrIntentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.ErrorContext(r.Context(), op+" failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// errorResponse is the {"detail": "..."} error body the platform's clients
// already parse.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
