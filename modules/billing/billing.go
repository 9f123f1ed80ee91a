package billing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	billingsvc "github.com/shelfmark/shelfmark/pkg/billing"
	"github.com/shelfmark/shelfmark/pkg/binder"
	"github.com/shelfmark/shelfmark/pkg/entitlement"
	"github.com/shelfmark/shelfmark/pkg/logger"
	"github.com/shelfmark/shelfmark/pkg/webhook"
)

type checkoutSessionRequest struct {
	PlanKey         string            `json:"planKey"`
	BillingInterval string            `json:"billingInterval"`
	SeatQuantity    int               `json:"seatQuantity"`
	ReturnURL       string            `json:"returnUrl"`
	CancelURL       string            `json:"cancelUrl"`
	Metadata        map[string]string `json:"metadata"`
	CustomerType    string            `json:"customerType"`
	CustomerID      string            `json:"customerId"`
}

type checkoutSessionResponse struct {
	Intent      billingsvc.PurchaseIntent `json:"intent"`
	CheckoutURL string                    `json:"checkoutUrl"`
	ExpiresAt   *time.Time                `json:"expiresAt"`
}

func (s *Service) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req checkoutSessionRequest
	if err := binder.JSON()(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	customerType, err := billingsvc.ParseCustomerType(req.CustomerType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// A user may only start checkouts for their own customer record.
	if customerType == billingsvc.CustomerUser && req.CustomerID != userID {
		writeError(w, http.StatusForbidden, "Cannot create checkout session for another user")
		return
	}

	planKey, err := entitlement.ParsePlanKey(req.PlanKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	interval, err := entitlement.ParseBillingInterval(req.BillingInterval)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.billing.CreateCheckoutSession(r.Context(), billingsvc.CheckoutInput{
		CustomerType:    customerType,
		CustomerID:      req.CustomerID,
		PlanKey:         planKey,
		BillingInterval: interval,
		SeatQuantity:    req.SeatQuantity,
		ReturnURL:       req.ReturnURL,
		CancelURL:       req.CancelURL,
		Metadata:        req.Metadata,
	})
	if err != nil {
		s.respondServiceError(w, r, err, "create checkout session")
		return
	}

	writeJSON(w, http.StatusOK, checkoutSessionResponse{
		Intent:      session.Intent,
		CheckoutURL: session.CheckoutURL,
		ExpiresAt:   session.ExpiresAt,
	})
}

type portalSessionRequest struct {
	CustomerType string `json:"customerType"`
	CustomerID   string `json:"customerId"`
	ReturnURL    string `json:"returnUrl"`
}

type portalSessionResponse struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

func (s *Service) createPortalSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req portalSessionRequest
	if err := binder.JSON()(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	customerType, err := billingsvc.ParseCustomerType(req.CustomerType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if customerType == billingsvc.CustomerUser && req.CustomerID != userID {
		writeError(w, http.StatusForbidden, "Cannot create portal session for another user")
		return
	}

	session, err := s.billing.CreatePortalSession(r.Context(), billingsvc.PortalParams{
		CustomerType: customerType,
		CustomerID:   req.CustomerID,
		ReturnURL:    req.ReturnURL,
	})
	if err != nil {
		s.respondServiceError(w, r, err, "create portal session")
		return
	}

	writeJSON(w, http.StatusOK, portalSessionResponse{
		URL:       session.URL,
		ExpiresAt: session.ExpiresAt,
	})
}

type webhookPayload struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Payload    map[string]any `json:"payload"`
	ReceivedAt time.Time      `json:"receivedAt"`
}

// receiveWebhook ingests normalized provider events. Signature verification
// runs against the raw body before any decoding, so the handler reads the
// body itself instead of going through the JSON binder.
func (s *Service) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, binder.DefaultMaxJSONSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > binder.DefaultMaxJSONSize {
		writeError(w, http.StatusBadRequest, "request body too large")
		return
	}

	if s.cfg.WebhookSecret != "" {
		headers, err := webhook.HeadersFromRequest(r)
		if err != nil {
			writeError(w, http.StatusForbidden, "invalid webhook signature")
			return
		}
		if err := webhook.VerifySignature(s.cfg.WebhookSecret, body, headers, s.cfg.WebhookMaxAge); err != nil {
			writeError(w, http.StatusForbidden, "invalid webhook signature")
			return
		}
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if payload.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if payload.Payload == nil {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}
	if payload.ReceivedAt.IsZero() {
		writeError(w, http.StatusBadRequest, "receivedAt is required")
		return
	}

	eventType, err := billingsvc.ParseWebhookEventType(payload.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event := billingsvc.WebhookEvent{
		ID:         payload.ID,
		Type:       eventType,
		Payload:    payload.Payload,
		ReceivedAt: payload.ReceivedAt,
	}
	if err := s.billing.HandleWebhook(r.Context(), event); err != nil {
		if errors.Is(err, billingsvc.ErrMalformedPayload) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.ErrorContext(r.Context(), "webhook handling failed",
			logger.Error(err),
			logger.EventType(string(eventType)),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type invoiceListQuery struct {
	CustomerType string `query:"customerType"`
	CustomerID   string `query:"customerId"`
	Limit        int    `query:"limit"`
}

type invoiceListResponse struct {
	Invoices []billingsvc.InvoiceRecord `json:"invoices"`
}

func (s *Service) listInvoices(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var q invoiceListQuery
	if err := binder.Query()(r, &q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	customerType, err := billingsvc.ParseCustomerType(q.CustomerType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if customerType == billingsvc.CustomerUser && q.CustomerID != userID {
		writeError(w, http.StatusForbidden, "Cannot view invoices for another user")
		return
	}

	invoices, err := s.billing.ListInvoices(r.Context(), customerType, q.CustomerID, q.Limit)
	if err != nil {
		s.respondServiceError(w, r, err, "list invoices")
		return
	}
	if invoices == nil {
		invoices = []billingsvc.InvoiceRecord{}
	}

	writeJSON(w, http.StatusOK, invoiceListResponse{Invoices: invoices})
}

type seatReconciliationRequest struct {
	MemberCount int `json:"memberCount"`
}

type seatReconciliationResponse struct {
	Result billingsvc.SeatReconciliationResult `json:"result"`
}

func (s *Service) reconcileSeats(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}

	var req seatReconciliationRequest
	if err := binder.JSON()(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	subscriptionID := chi.URLParam(r, "subscriptionID")
	result, err := s.billing.ReconcileSeats(r.Context(), subscriptionID, req.MemberCount)
	if err != nil {
		s.respondServiceError(w, r, err, "reconcile seats")
		return
	}

	writeJSON(w, http.StatusOK, seatReconciliationResponse{Result: *result})
}
