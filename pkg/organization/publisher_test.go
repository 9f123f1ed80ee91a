package organization_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/pkg/entitlement"
	"github.com/shelfmark/shelfmark/pkg/organization"
)

type recordingReconciler struct {
	mu             sync.Mutex
	subscriptionID string
	memberCount    int
	calls          int
	err            error
}

func (r *recordingReconciler) reconcile(_ context.Context, subscriptionID string, memberCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.subscriptionID = subscriptionID
	r.memberCount = memberCount
	return r.err
}

func seedPublisherRepo(t *testing.T, subscriptionID string) *organization.MemoryRepository {
	t.Helper()

	repo := organization.NewMemoryRepository()
	ctx := context.Background()

	org := testOrganization()
	org.SubscriptionID = subscriptionID
	require.NoError(t, repo.SaveOrganization(ctx, org))

	memberships := []struct {
		userID string
		status organization.MembershipStatus
	}{
		{"owner_1", organization.StatusActive},
		{"member_1", organization.StatusActive},
		{"member_2", organization.StatusRevoked},
	}
	for _, m := range memberships {
		_, err := repo.SaveMembership(ctx, &organization.Membership{
			OrganizationID: org.ID,
			UserID:         m.userID,
			Role:           entitlement.RoleMember,
			Status:         m.status,
		})
		require.NoError(t, err)
	}
	return repo
}

func TestNewReconcilingSeatPublisher_PanicsOnMissingDependencies(t *testing.T) {
	t.Parallel()

	repo := organization.NewMemoryRepository()
	reconcile := func(context.Context, string, int) error { return nil }

	assert.PanicsWithValue(t, "organization: SeatCounter is required", func() {
		organization.NewReconcilingSeatPublisher(nil, reconcile, nil)
	})
	assert.PanicsWithValue(t, "organization: SeatReconcileFunc is required", func() {
		organization.NewReconcilingSeatPublisher(repo, nil, nil)
	})
}

func TestReconcilingSeatPublisher_Enqueue(t *testing.T) {
	t.Parallel()

	t.Run("reconciles with the active member count", func(t *testing.T) {
		t.Parallel()

		repo := seedPublisherRepo(t, "sub_1")
		rec := &recordingReconciler{}
		publisher := organization.NewReconcilingSeatPublisher(repo, rec.reconcile, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

		publisher.Enqueue(context.Background(), "org_1")

		assert.Equal(t, 1, rec.calls)
		assert.Equal(t, "sub_1", rec.subscriptionID)
		assert.Equal(t, 2, rec.memberCount)
	})

	t.Run("skips organizations without a subscription", func(t *testing.T) {
		t.Parallel()

		repo := seedPublisherRepo(t, "")
		rec := &recordingReconciler{}
		publisher := organization.NewReconcilingSeatPublisher(repo, rec.reconcile, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

		publisher.Enqueue(context.Background(), "org_1")

		assert.Zero(t, rec.calls)
	})

	t.Run("unknown organization is logged, not raised", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		rec := &recordingReconciler{}
		publisher := organization.NewReconcilingSeatPublisher(
			organization.NewMemoryRepository(), rec.reconcile, slog.New(slog.NewTextHandler(&buf, nil)))

		publisher.Enqueue(context.Background(), "org_ghost")

		assert.Zero(t, rec.calls)
		assert.Contains(t, buf.String(), "load organization")
	})

	t.Run("reconciliation errors are logged, not raised", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		repo := seedPublisherRepo(t, "sub_1")
		rec := &recordingReconciler{err: errors.New("provider down")}
		publisher := organization.NewReconcilingSeatPublisher(repo, rec.reconcile, slog.New(slog.NewTextHandler(&buf, nil)))

		publisher.Enqueue(context.Background(), "org_1")

		assert.Equal(t, 1, rec.calls)
		assert.Contains(t, buf.String(), "seat reconciliation failed")
		assert.Contains(t, buf.String(), "provider down")
	})
}
