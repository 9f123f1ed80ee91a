package entitlement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/pkg/entitlement"
)

type mockSubscriptionSource struct {
	mock.Mock
}

func (m *mockSubscriptionSource) GetSubscription(ctx context.Context, subscriptionID string) (*entitlement.SubscriptionRecord, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entitlement.SubscriptionRecord), args.Error(1)
}

type mockMembershipSource struct {
	mock.Mock
}

func (m *mockMembershipSource) GetMembership(ctx context.Context, userID, organizationID string) (*entitlement.Membership, error) {
	args := m.Called(ctx, userID, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entitlement.Membership), args.Error(1)
}

func newTestService(subs *mockSubscriptionSource, mems *mockMembershipSource, opts ...entitlement.Option) entitlement.Service {
	signer, err := entitlement.NewHMACSigner("test-secret")
	if err != nil {
		panic(err)
	}
	return entitlement.NewService(subs, mems, entitlement.NewMemoryCache(), signer, opts...)
}

func activeSubscription(id string, plan entitlement.PlanKey, addOns ...entitlement.AddOnGrant) *entitlement.SubscriptionRecord {
	return &entitlement.SubscriptionRecord{
		ID:              id,
		PlanKey:         plan,
		Status:          entitlement.StatusActive,
		BillingInterval: entitlement.BillingIntervalMonthly,
		AddOns:          addOns,
	}
}

func TestNewService_PanicsOnMissingDependencies(t *testing.T) {
	t.Parallel()

	signer, err := entitlement.NewHMACSigner("test-secret")
	require.NoError(t, err)
	subs := &mockSubscriptionSource{}
	mems := &mockMembershipSource{}
	cache := entitlement.NewMemoryCache()

	assert.Panics(t, func() { entitlement.NewService(nil, mems, cache, signer) })
	assert.Panics(t, func() { entitlement.NewService(subs, nil, cache, signer) })
	assert.Panics(t, func() { entitlement.NewService(subs, mems, nil, signer) })
	assert.Panics(t, func() { entitlement.NewService(subs, mems, cache, nil) })
}

func TestService_GetEntitlements_FreeFallback(t *testing.T) {
	t.Parallel()

	t.Run("no subscription id resolves to free plan", func(t *testing.T) {
		t.Parallel()

		subs := &mockSubscriptionSource{}
		mems := &mockMembershipSource{}
		svc := newTestService(subs, mems)

		result, err := svc.GetEntitlements(context.Background(), entitlement.Subject{UserID: "user-1"}, "")
		require.NoError(t, err)

		assert.Equal(t, entitlement.PlanFree, result.Payload.Plan)
		assert.Equal(t, 5, result.Payload.StorageQuotaGB())
		assert.Empty(t, result.Payload.SubscriptionID)
		assert.NotEmpty(t, result.Token)
		subs.AssertNotCalled(t, "GetSubscription")
		mems.AssertNotCalled(t, "GetMembership")
	})

	t.Run("unknown subscription resolves to free plan", func(t *testing.T) {
		t.Parallel()

		subs := &mockSubscriptionSource{}
		mems := &mockMembershipSource{}
		subs.On("GetSubscription", mock.Anything, "sub-gone").Return(nil, entitlement.ErrSubscriptionNotFound)
		svc := newTestService(subs, mems)

		result, err := svc.GetEntitlements(context.Background(), entitlement.Subject{UserID: "user-1"}, "sub-gone")
		require.NoError(t, err)

		assert.Equal(t, entitlement.PlanFree, result.Payload.Plan)
		assert.Empty(t, result.Payload.SubscriptionID)
		subs.AssertExpectations(t)
	})

	t.Run("inactive subscription resolves to free plan", func(t *testing.T) {
		t.Parallel()

		canceled := activeSubscription("sub-old", entitlement.PlanIndividualPro)
		canceled.Status = entitlement.StatusCanceled

		subs := &mockSubscriptionSource{}
		mems := &mockMembershipSource{}
		subs.On("GetSubscription", mock.Anything, "sub-old").Return(canceled, nil)
		svc := newTestService(subs, mems)

		result, err := svc.GetEntitlements(context.Background(), entitlement.Subject{UserID: "user-1"}, "sub-old")
		require.NoError(t, err)

		assert.Equal(t, entitlement.PlanFree, result.Payload.Plan)
		assert.False(t, result.Payload.HasFlag(entitlement.FlagSyncEnabled))
		subs.AssertExpectations(t)
	})

	t.Run("source failures propagate", func(t *testing.T) {
		t.Parallel()

		subs := &mockSubscriptionSource{}
		mems := &mockMembershipSource{}
		subs.On("GetSubscription", mock.Anything, "sub-x").Return(nil, errors.New("connection refused"))
		svc := newTestService(subs, mems)

		_, err := svc.GetEntitlements(context.Background(), entitlement.Subject{UserID: "user-1"}, "sub-x")
		assert.Error(t, err)
	})
}

func TestService_GetEntitlements_IndividualPro(t *testing.T) {
	t.Parallel()

	subs := &mockSubscriptionSource{}
	mems := &mockMembershipSource{}
	subs.On("GetSubscription", mock.Anything, "sub-pro").Return(activeSubscription("sub-pro", entitlement.PlanIndividualPro), nil)
	svc := newTestService(subs, mems)

	result, err := svc.GetEntitlements(context.Background(), entitlement.Subject{UserID: "user-1"}, "sub-pro")
	require.NoError(t, err)

	assert.Equal(t, entitlement.PlanIndividualPro, result.Payload.Plan)
	assert.True(t, result.Payload.HasFlag(entitlement.FlagAdsDisabled))
	assert.True(t, result.Payload.HasFlag(entitlement.FlagSyncEnabled))
	assert.True(t, result.Payload.HasFlag(entitlement.FlagSearchAdvanced))
	assert.False(t, result.Payload.HasFlag(entitlement.FlagOrgAdmin))
	assert.Equal(t, 100, result.Payload.StorageQuotaGB())
	assert.Equal(t, "sub-pro", result.Payload.SubscriptionID)
	assert.NotEmpty(t, result.Token)

	claims, err := entitlement.VerifyToken(result.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, "individual_pro", claims["plan"])
	assert.Equal(t, "sub-pro", claims["subscription_id"])
	assert.NotContains(t, claims, "organization_id")
	assert.NotContains(t, claims, "role")
}

func TestService_GetEntitlements_OrganizationContext(t *testing.T) {
	t.Parallel()

	subject := entitlement.Subject{UserID: "user-2", OrganizationID: "org-1"}

	t.Run("admin receives org admin flag", func(t *testing.T) {
		t.Parallel()

		subs := &mockSubscriptionSource{}
		mems := &mockMembershipSource{}
		subs.On("GetSubscription", mock.Anything, "sub-team").Return(activeSubscription("sub-team", entitlement.PlanTeam), nil)
		mems.On("GetMembership", mock.Anything, "user-2", "org-1").Return(&entitlement.Membership{
			OrganizationID: "org-1",
			UserID:         "user-2",
			Role:           entitlement.RoleAdmin,
			SeatConsumed:   true,
		}, nil)
		svc := newTestService(subs, mems)

		result, err := svc.GetEntitlements(context.Background(), subject, "sub-team")
		require.NoError(t, err)

		assert.Equal(t, entitlement.PlanTeam, result.Payload.Plan)
		assert.Equal(t, entitlement.RoleAdmin, result.Payload.Role)
		assert.Equal(t, "org-1", result.Payload.OrganizationID)
		assert.True(t, result.Payload.HasFlag(entitlement.FlagOrgAdmin))
		assert.Equal(t, 100, result.Payload.StorageQuotaGB())

		claims, err := entitlement.VerifyToken(result.Token, "test-secret")
		require.NoError(t, err)
		assert.Equal(t, "org-1", claims["organization_id"])
		assert.Equal(t, "admin", claims["role"])
	})

	t.Run("member does not receive org admin flag", func(t *testing.T) {
		t.Parallel()

		subs := &mockSubscriptionSource{}
		mems := &mockMembershipSource{}
		subs.On("GetSubscription", mock.Anything, "sub-team").Return(activeSubscription("sub-team", entitlement.PlanTeam), nil)
		mems.On("GetMembership", mock.Anything, "user-2", "org-1").Return(&entitlement.Membership{
			OrganizationID: "org-1",
			UserID:         "user-2",
			Role:           entitlement.RoleMember,
			SeatConsumed:   true,
		}, nil)
		svc := newTestService(subs, mems)

		result, err := svc.GetEntitlements(context.Background(), subject, "sub-team")
		require.NoError(t, err)

		assert.False(t, result.Payload.HasFlag(entitlement.FlagOrgAdmin))
		assert.True(t, result.Payload.HasFlag(entitlement.FlagSyncEnabled))
	})

	t.Run("missing membership is rejected", func(t *testing.T) {
		t.Parallel()

		subs := &mockSubscriptionSource{}
		mems := &mockMembershipSource{}
		subs.On("GetSubscription", mock.Anything, "sub-team").Return(activeSubscription("sub-team", entitlement.PlanTeam), nil)
		mems.On("GetMembership", mock.Anything, "user-2", "org-1").Return(nil, entitlement.ErrMembershipNotFound)
		svc := newTestService(subs, mems)

		_, err := svc.GetEntitlements(context.Background(), subject, "sub-team")
		assert.ErrorIs(t, err, entitlement.ErrMembershipNotFound)
	})
}

func TestService_GetEntitlements_AddOns(t *testing.T) {
	t.Parallel()

	t.Run("storage grants raise the quota", func(t *testing.T) {
		t.Parallel()

		subs := &mockSubscriptionSource{}
		mems := &mockMembershipSource{}
		subs.On("GetSubscription", mock.Anything, "sub-pro").Return(
			activeSubscription("sub-pro", entitlement.PlanIndividualPro,
				entitlement.AddOnGrant{Type: entitlement.AddOnStorage100GB, Quantity: 2}),
			nil)
		svc := newTestService(subs, mems)

		result, err := svc.GetEntitlements(context.Background(), entitlement.Subject{UserID: "user-3"}, "sub-pro")
		require.NoError(t, err)

		assert.Equal(t, 300, result.Payload.StorageQuotaGB())
	})

	t.Run("grants on plans without add-on support are ignored", func(t *testing.T) {
		t.Parallel()

		subs := &mockSubscriptionSource{}
		mems := &mockMembershipSource{}
		subs.On("GetSubscription", mock.Anything, "sub-free").Return(
			activeSubscription("sub-free", entitlement.PlanFree,
				entitlement.AddOnGrant{Type: entitlement.AddOnStorage100GB, Quantity: 1}),
			nil)
		svc := newTestService(subs, mems)

		result, err := svc.GetEntitlements(context.Background(), entitlement.Subject{UserID: "user-3"}, "sub-free")
		require.NoError(t, err)

		assert.Equal(t, 5, result.Payload.StorageQuotaGB())
	})

	t.Run("grants with invalid quantity are rejected", func(t *testing.T) {
		t.Parallel()

		subs := &mockSubscriptionSource{}
		mems := &mockMembershipSource{}
		subs.On("GetSubscription", mock.Anything, "sub-pro").Return(
			activeSubscription("sub-pro", entitlement.PlanIndividualPro,
				entitlement.AddOnGrant{Type: entitlement.AddOnStorage100GB, Quantity: 0}),
			nil)
		svc := newTestService(subs, mems)

		_, err := svc.GetEntitlements(context.Background(), entitlement.Subject{UserID: "user-3"}, "sub-pro")
		assert.ErrorIs(t, err, entitlement.ErrInvalidAddOnQuantity)
	})
}

func TestService_GetEntitlements_Caching(t *testing.T) {
	t.Parallel()

	t.Run("second call is served from cache", func(t *testing.T) {
		t.Parallel()

		subs := &mockSubscriptionSource{}
		mems := &mockMembershipSource{}
		subs.On("GetSubscription", mock.Anything, "sub-pro").
			Return(activeSubscription("sub-pro", entitlement.PlanIndividualPro), nil).Once()
		svc := newTestService(subs, mems)

		subject := entitlement.Subject{UserID: "user-4"}
		first, err := svc.GetEntitlements(context.Background(), subject, "sub-pro")
		require.NoError(t, err)
		second, err := svc.GetEntitlements(context.Background(), subject, "sub-pro")
		require.NoError(t, err)

		assert.Equal(t, first.Token, second.Token)
		subs.AssertExpectations(t)
	})

	t.Run("invalidation forces recomputation", func(t *testing.T) {
		t.Parallel()

		subs := &mockSubscriptionSource{}
		mems := &mockMembershipSource{}
		subs.On("GetSubscription", mock.Anything, "sub-pro").
			Return(activeSubscription("sub-pro", entitlement.PlanIndividualPro), nil).Once()
		subs.On("GetSubscription", mock.Anything, "sub-pro").
			Return(activeSubscription("sub-pro", entitlement.PlanIndividualPro,
				entitlement.AddOnGrant{Type: entitlement.AddOnStorage100GB, Quantity: 1}), nil).Once()
		svc := newTestService(subs, mems)

		subject := entitlement.Subject{UserID: "user-4"}
		ctx := context.Background()

		first, err := svc.GetEntitlements(ctx, subject, "sub-pro")
		require.NoError(t, err)
		assert.Equal(t, 100, first.Payload.StorageQuotaGB())

		// Still cached: the grant added above is not visible yet.
		cached, err := svc.GetEntitlements(ctx, subject, "sub-pro")
		require.NoError(t, err)
		assert.Equal(t, 100, cached.Payload.StorageQuotaGB())

		require.NoError(t, svc.InvalidateSubscription(ctx, "sub-pro"))

		refreshed, err := svc.GetEntitlements(ctx, subject, "sub-pro")
		require.NoError(t, err)
		assert.Equal(t, 200, refreshed.Payload.StorageQuotaGB())
		subs.AssertExpectations(t)
	})

	t.Run("invalidating one user leaves others cached", func(t *testing.T) {
		t.Parallel()

		subs := &mockSubscriptionSource{}
		mems := &mockMembershipSource{}
		subs.On("GetSubscription", mock.Anything, "sub-pro").
			Return(activeSubscription("sub-pro", entitlement.PlanIndividualPro), nil).Times(3)
		svc := newTestService(subs, mems)

		ctx := context.Background()
		alice := entitlement.Subject{UserID: "alice"}
		bob := entitlement.Subject{UserID: "bob"}

		_, err := svc.GetEntitlements(ctx, alice, "sub-pro")
		require.NoError(t, err)
		_, err = svc.GetEntitlements(ctx, bob, "sub-pro")
		require.NoError(t, err)

		require.NoError(t, svc.InvalidateUser(ctx, "alice"))

		_, err = svc.GetEntitlements(ctx, alice, "sub-pro")
		require.NoError(t, err)
		_, err = svc.GetEntitlements(ctx, bob, "sub-pro")
		require.NoError(t, err)

		subs.AssertExpectations(t)
	})
}

func TestService_GetEntitlements_TTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("short TTLs are clamped to one minute", func(t *testing.T) {
		t.Parallel()

		subs := &mockSubscriptionSource{}
		mems := &mockMembershipSource{}
		svc := newTestService(subs, mems,
			entitlement.WithTTL(10*time.Second),
			entitlement.WithClock(func() time.Time { return now }),
		)

		result, err := svc.GetEntitlements(context.Background(), entitlement.Subject{UserID: "user-5"}, "")
		require.NoError(t, err)

		assert.Equal(t, now.Add(time.Minute), result.ExpiresAt)
		assert.Equal(t, now, result.Payload.GeneratedAt)
	})

	t.Run("configured TTL drives token expiry", func(t *testing.T) {
		t.Parallel()

		subs := &mockSubscriptionSource{}
		mems := &mockMembershipSource{}
		svc := newTestService(subs, mems,
			entitlement.WithTTL(10*time.Minute),
			entitlement.WithClock(func() time.Time { return now }),
		)

		result, err := svc.GetEntitlements(context.Background(), entitlement.Subject{UserID: "user-5"}, "")
		require.NoError(t, err)

		assert.Equal(t, now.Add(10*time.Minute), result.ExpiresAt)

		claims, err := entitlement.VerifyToken(result.Token, "test-secret")
		require.NoError(t, err)
		assert.Equal(t, now.Add(10*time.Minute).Format(time.RFC3339Nano), claims["expires_at"])
	})
}

func TestSubject_CacheKey(t *testing.T) {
	t.Parallel()

	personal := entitlement.Subject{UserID: "u1"}
	assert.Equal(t, "user:u1|org:self|sub:none", personal.CacheKey(""))

	org := entitlement.Subject{UserID: "u1", OrganizationID: "o1"}
	assert.Equal(t, "user:u1|org:o1|sub:s1", org.CacheKey("s1"))
}

func TestSubject_Tags(t *testing.T) {
	t.Parallel()

	personal := entitlement.Subject{UserID: "u1"}
	assert.ElementsMatch(t, []string{"user:u1"}, personal.Tags(""))

	org := entitlement.Subject{UserID: "u1", OrganizationID: "o1"}
	assert.ElementsMatch(t, []string{"user:u1", "organization:o1", "subscription:s1"}, org.Tags("s1"))
}
