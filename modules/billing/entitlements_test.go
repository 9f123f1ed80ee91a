package billing_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/modules/billing"
	"github.com/shelfmark/shelfmark/pkg/entitlement"
)

func TestGetEntitlements(t *testing.T) {
	t.Parallel()

	t.Run("returns signed entitlements for current user", func(t *testing.T) {
		t.Parallel()

		generated := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		expires := generated.Add(5 * time.Minute)

		ents := new(mockEntitlementService)
		ents.On("GetEntitlements", mock.Anything, entitlement.Subject{UserID: "user_1"}, "").
			Return(entitlement.Result{
				Payload: entitlement.Payload{
					Plan:         entitlement.PlanIndividualPro,
					FeatureFlags: map[string]any{"sync_enabled": true, "storage_quota_gb": float64(50)},
					GeneratedAt:  generated,
				},
				Token:     "v1.payload.signature",
				ExpiresAt: expires,
			}, nil).Once()

		srv := newTestServer(t, billing.Config{}, new(mockBillingService), ents, authAs("user_1"))

		resp, err := http.Get(srv.URL + "/billing/entitlements")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "v1.payload.signature", body["token"])
		assert.Equal(t, "2026-06-01T12:05:00Z", body["expiresAt"])

		payload, ok := body["payload"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "individual_pro", payload["plan"])

		flags, ok := payload["feature_flags"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, flags["sync_enabled"])
		assert.Equal(t, float64(50), flags["storage_quota_gb"])

		ents.AssertExpectations(t)
	})

	t.Run("scopes lookup to organization and subscription", func(t *testing.T) {
		t.Parallel()

		ents := new(mockEntitlementService)
		ents.On("GetEntitlements", mock.Anything, entitlement.Subject{UserID: "user_1", OrganizationID: "org_1"}, "sub_1").
			Return(entitlement.Result{
				Payload: entitlement.Payload{Plan: entitlement.PlanTeam},
				Token:   "v1.team.signature",
			}, nil).Once()

		srv := newTestServer(t, billing.Config{}, new(mockBillingService), ents, authAs("user_1"))

		resp, err := http.Get(srv.URL + "/billing/entitlements?organizationId=org_1&subscriptionId=sub_1")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		ents.AssertExpectations(t)
	})

	t.Run("non-member lookup returns 403", func(t *testing.T) {
		t.Parallel()

		ents := new(mockEntitlementService)
		ents.On("GetEntitlements", mock.Anything, entitlement.Subject{UserID: "user_1", OrganizationID: "org_2"}, "").
			Return(entitlement.Result{}, fmt.Errorf("%w: user_1 in org_2", entitlement.ErrMembershipNotFound)).Once()

		srv := newTestServer(t, billing.Config{}, new(mockBillingService), ents, authAs("user_1"))

		resp, err := http.Get(srv.URL + "/billing/entitlements?organizationId=org_2")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Contains(t, decodeBody(t, resp)["detail"], "no membership found")
	})

	t.Run("infrastructure failure returns opaque 500", func(t *testing.T) {
		t.Parallel()

		ents := new(mockEntitlementService)
		ents.On("GetEntitlements", mock.Anything, mock.Anything, mock.Anything).
			Return(entitlement.Result{}, errors.New("cache offline")).Once()

		srv := newTestServer(t, billing.Config{}, new(mockBillingService), ents, authAs("user_1"))

		resp, err := http.Get(srv.URL + "/billing/entitlements")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Internal server error", decodeBody(t, resp)["detail"])
	})

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()

		ents := new(mockEntitlementService)
		srv := newTestServer(t, billing.Config{}, new(mockBillingService), ents, func(*http.Request) (string, error) {
			return "", errors.New("no session")
		})

		resp, err := http.Get(srv.URL + "/billing/entitlements")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		ents.AssertNotCalled(t, "GetEntitlements", mock.Anything, mock.Anything, mock.Anything)
	})
}
