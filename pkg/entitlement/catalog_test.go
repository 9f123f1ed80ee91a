package entitlement_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/pkg/entitlement"
)

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()

	catalog := entitlement.DefaultCatalog()

	t.Run("free plan is monthly only with base quota", func(t *testing.T) {
		t.Parallel()

		plan, err := catalog.Plan(entitlement.PlanFree)
		require.NoError(t, err)

		assert.True(t, plan.SupportsInterval(entitlement.BillingIntervalMonthly))
		assert.False(t, plan.SupportsInterval(entitlement.BillingIntervalAnnual))
		assert.False(t, plan.PerSeat)
		assert.Empty(t, plan.SupportsAddOns)
		assert.Equal(t, 5, plan.MemberBundle.StorageQuotaGB)
	})

	t.Run("individual pro unlocks paid features and storage add-on", func(t *testing.T) {
		t.Parallel()

		plan, err := catalog.Plan(entitlement.PlanIndividualPro)
		require.NoError(t, err)

		assert.True(t, plan.SupportsInterval(entitlement.BillingIntervalAnnual))
		assert.True(t, plan.SupportsAddOn(entitlement.AddOnStorage100GB))
		assert.False(t, plan.PerSeat)
		assert.True(t, plan.MemberBundle.AdsDisabled)
		assert.True(t, plan.MemberBundle.SyncEnabled)
		assert.True(t, plan.MemberBundle.SearchAdvanced)
		assert.Equal(t, 100, plan.MemberBundle.StorageQuotaGB)
		assert.False(t, plan.MemberBundle.OrgAdmin)
	})

	t.Run("team plan is per seat with admin override", func(t *testing.T) {
		t.Parallel()

		plan, err := catalog.Plan(entitlement.PlanTeam)
		require.NoError(t, err)

		assert.True(t, plan.PerSeat)
		require.NotNil(t, plan.AdminOverride)

		member := plan.BundleForRole(entitlement.RoleMember)
		assert.False(t, member.OrgAdmin)
		assert.Equal(t, 100, member.StorageQuotaGB)

		admin := plan.BundleForRole(entitlement.RoleAdmin)
		assert.True(t, admin.OrgAdmin)
		assert.Equal(t, 100, admin.StorageQuotaGB, "override must not reset the member quota")

		owner := plan.BundleForRole(entitlement.RoleOwner)
		assert.True(t, owner.OrgAdmin)
	})

	t.Run("unknown plan returns sentinel", func(t *testing.T) {
		t.Parallel()

		_, err := catalog.Plan("enterprise")
		assert.ErrorIs(t, err, entitlement.ErrUnknownPlan)
	})

	t.Run("storage add-on increments by 100", func(t *testing.T) {
		t.Parallel()

		addOn, err := catalog.AddOn(entitlement.AddOnStorage100GB)
		require.NoError(t, err)
		assert.Equal(t, 100, addOn.StorageIncrementGB)

		_, err = catalog.AddOn("gpu_hours")
		assert.ErrorIs(t, err, entitlement.ErrUnknownAddOn)
	})

	t.Run("plans are listed in stable order", func(t *testing.T) {
		t.Parallel()

		plans := catalog.Plans()
		require.Len(t, plans, 3)
		assert.Equal(t, entitlement.PlanFree, plans[0].Key)
		assert.Equal(t, entitlement.PlanIndividualPro, plans[1].Key)
		assert.Equal(t, entitlement.PlanTeam, plans[2].Key)
	})
}

func TestNewCatalog_Validation(t *testing.T) {
	t.Parallel()

	freePlan := entitlement.PlanDefinition{
		Key:              entitlement.PlanFree,
		DisplayName:      "Free",
		BillingIntervals: []entitlement.BillingInterval{entitlement.BillingIntervalMonthly},
		MemberBundle:     entitlement.DefaultBundle(),
	}

	t.Run("rejects catalog without free plan", func(t *testing.T) {
		t.Parallel()

		_, err := entitlement.NewCatalog([]entitlement.PlanDefinition{
			{
				Key:              entitlement.PlanTeam,
				DisplayName:      "Teams",
				BillingIntervals: []entitlement.BillingInterval{entitlement.BillingIntervalMonthly},
			},
		}, nil)
		assert.ErrorIs(t, err, entitlement.ErrInvalidCatalog)
	})

	t.Run("rejects plan without billing intervals", func(t *testing.T) {
		t.Parallel()

		_, err := entitlement.NewCatalog([]entitlement.PlanDefinition{
			freePlan,
			{Key: entitlement.PlanTeam, DisplayName: "Teams"},
		}, nil)
		assert.ErrorIs(t, err, entitlement.ErrInvalidCatalog)
	})

	t.Run("rejects duplicate plan keys", func(t *testing.T) {
		t.Parallel()

		_, err := entitlement.NewCatalog([]entitlement.PlanDefinition{freePlan, freePlan}, nil)
		assert.ErrorIs(t, err, entitlement.ErrInvalidCatalog)
	})

	t.Run("rejects reference to unknown add-on", func(t *testing.T) {
		t.Parallel()

		plan := freePlan
		plan.SupportsAddOns = []entitlement.AddOnType{entitlement.AddOnStorage100GB}
		_, err := entitlement.NewCatalog([]entitlement.PlanDefinition{plan}, nil)
		assert.ErrorIs(t, err, entitlement.ErrInvalidCatalog)
	})

	t.Run("rejects unknown billing interval", func(t *testing.T) {
		t.Parallel()

		plan := freePlan
		plan.BillingIntervals = []entitlement.BillingInterval{"weekly"}
		_, err := entitlement.NewCatalog([]entitlement.PlanDefinition{plan}, nil)
		assert.ErrorIs(t, err, entitlement.ErrInvalidCatalog)
	})
}

func TestLoadCatalog(t *testing.T) {
	t.Parallel()

	t.Run("parses a full catalog document", func(t *testing.T) {
		t.Parallel()

		const doc = `
plans:
  - key: free
    display_name: Free
    billing_intervals: [monthly]
    member_bundle:
      storage_quota_gb: 5
  - key: team
    display_name: Teams
    billing_intervals: [monthly, annual]
    per_seat: true
    member_bundle:
      ads_disabled: true
      sync_enabled: true
      search_advanced: true
      storage_quota_gb: 250
    admin_override:
      org_admin: true
    supports_add_ons: [storage_100_gb]
add_ons:
  - type: storage_100_gb
    storage_increment_gb: 100
`
		catalog, err := entitlement.LoadCatalog(strings.NewReader(doc))
		require.NoError(t, err)

		team, err := catalog.Plan(entitlement.PlanTeam)
		require.NoError(t, err)
		assert.Equal(t, 250, team.MemberBundle.StorageQuotaGB)
		assert.True(t, team.BundleForRole(entitlement.RoleAdmin).OrgAdmin)
		assert.True(t, team.SupportsAddOn(entitlement.AddOnStorage100GB))
	})

	t.Run("rejects documents failing catalog validation", func(t *testing.T) {
		t.Parallel()

		const doc = `
plans:
  - key: team
    display_name: Teams
    billing_intervals: [monthly]
`
		_, err := entitlement.LoadCatalog(strings.NewReader(doc))
		assert.ErrorIs(t, err, entitlement.ErrInvalidCatalog)
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		t.Parallel()

		_, err := entitlement.LoadCatalog(strings.NewReader("plans: ["))
		assert.ErrorIs(t, err, entitlement.ErrInvalidCatalog)
	})
}
