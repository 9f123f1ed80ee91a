package entitlement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/pkg/entitlement"
)

func TestDefaultBundle(t *testing.T) {
	t.Parallel()

	bundle := entitlement.DefaultBundle()
	assert.False(t, bundle.AdsDisabled)
	assert.False(t, bundle.SyncEnabled)
	assert.False(t, bundle.SearchAdvanced)
	assert.Equal(t, 5, bundle.StorageQuotaGB)
	assert.False(t, bundle.OrgAdmin)
}

func TestFeatureBundle_Merge(t *testing.T) {
	t.Parallel()

	t.Run("applies fields that differ from defaults", func(t *testing.T) {
		t.Parallel()

		base := entitlement.FeatureBundle{
			AdsDisabled:    true,
			SyncEnabled:    true,
			SearchAdvanced: true,
			StorageQuotaGB: 100,
		}
		merged := base.Merge(entitlement.FeatureBundle{OrgAdmin: true, StorageQuotaGB: 5})

		assert.True(t, merged.OrgAdmin)
		assert.True(t, merged.AdsDisabled)
		assert.True(t, merged.SyncEnabled)
		assert.True(t, merged.SearchAdvanced)
	})

	t.Run("ignores override fields left at their default", func(t *testing.T) {
		t.Parallel()

		base := entitlement.FeatureBundle{StorageQuotaGB: 100, SyncEnabled: true}
		merged := base.Merge(entitlement.FeatureBundle{StorageQuotaGB: 5})

		// An override quota equal to the default is indistinguishable from
		// "not set" and must not shrink the base quota.
		assert.Equal(t, 100, merged.StorageQuotaGB)
		assert.True(t, merged.SyncEnabled)
	})

	t.Run("override can disable a non-default base value", func(t *testing.T) {
		t.Parallel()

		base := entitlement.FeatureBundle{SyncEnabled: true, StorageQuotaGB: 100}
		merged := base.Merge(entitlement.FeatureBundle{StorageQuotaGB: 1})

		assert.Equal(t, 1, merged.StorageQuotaGB)
		assert.True(t, merged.SyncEnabled)
	})
}

func TestFeatureBundle_WithAddedStorage(t *testing.T) {
	t.Parallel()

	base := entitlement.FeatureBundle{StorageQuotaGB: 100}
	grown := base.WithAddedStorage(200)

	assert.Equal(t, 300, grown.StorageQuotaGB)
	assert.Equal(t, 100, base.StorageQuotaGB, "original bundle must stay untouched")
}

func TestFeatureBundle_Flags(t *testing.T) {
	t.Parallel()

	bundle := entitlement.FeatureBundle{
		AdsDisabled:    true,
		SyncEnabled:    true,
		SearchAdvanced: false,
		StorageQuotaGB: 105,
		OrgAdmin:       true,
	}
	flags := bundle.Flags()

	require.Len(t, flags, 5)
	assert.Equal(t, true, flags[entitlement.FlagAdsDisabled])
	assert.Equal(t, true, flags[entitlement.FlagSyncEnabled])
	assert.Equal(t, false, flags[entitlement.FlagSearchAdvanced])
	assert.Equal(t, 105, flags[entitlement.FlagStorageQuotaGB])
	assert.Equal(t, true, flags[entitlement.FlagOrgAdmin])
}
