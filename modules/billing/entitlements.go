package billing

import (
	"errors"
	"net/http"
	"time"

	"github.com/shelfmark/shelfmark/pkg/binder"
	"github.com/shelfmark/shelfmark/pkg/entitlement"
	"github.com/shelfmark/shelfmark/pkg/logger"
)

type entitlementsQuery struct {
	OrganizationID string `query:"organizationId"`
	SubscriptionID string `query:"subscriptionId"`
}

type entitlementsResponse struct {
	Payload   entitlement.Payload `json:"payload"`
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expiresAt"`
}

// getEntitlements resolves the signed entitlement payload for the current
// user, optionally scoped to an organization and subscription.
func (s *Service) getEntitlements(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var q entitlementsQuery
	if err := binder.Query()(r, &q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.entitlements.GetEntitlements(r.Context(), entitlement.Subject{
		UserID:         userID,
		OrganizationID: q.OrganizationID,
	}, q.SubscriptionID)
	if err != nil {
		if errors.Is(err, entitlement.ErrMembershipNotFound) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		s.log.ErrorContext(r.Context(), "resolve entitlements failed",
			logger.Error(err),
			logger.UserID(userID),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, entitlementsResponse{
		Payload:   result.Payload,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}
