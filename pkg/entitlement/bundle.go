package entitlement

// FeatureBundle is a normalized set of entitlement feature values.
// The zero value is NOT the baseline; use DefaultBundle, which includes
// the free-tier storage quota.
type FeatureBundle struct {
	AdsDisabled    bool `json:"ads_disabled" yaml:"ads_disabled"`
	SyncEnabled    bool `json:"sync_enabled" yaml:"sync_enabled"`
	SearchAdvanced bool `json:"search_advanced" yaml:"search_advanced"`
	StorageQuotaGB int  `json:"storage_quota_gb" yaml:"storage_quota_gb"`
	OrgAdmin       bool `json:"org_admin" yaml:"org_admin"`
}

// DefaultBundle returns the baseline bundle every subject starts from:
// ads on, no sync, no advanced search, 5 GB storage, no org admin.
func DefaultBundle() FeatureBundle {
	return FeatureBundle{StorageQuotaGB: 5}
}

// Merge combines an override bundle into the receiver, field by field.
// An override field is applied only when its value differs from the
// DefaultBundle value for that field; an override explicitly set to the
// default is indistinguishable from "not set" and is ignored. Callers
// relying on overrides must keep them sparse (see TEAM's admin override,
// which only flips OrgAdmin).
func (b FeatureBundle) Merge(override FeatureBundle) FeatureBundle {
	def := DefaultBundle()
	merged := b
	if override.AdsDisabled != def.AdsDisabled {
		merged.AdsDisabled = override.AdsDisabled
	}
	if override.SyncEnabled != def.SyncEnabled {
		merged.SyncEnabled = override.SyncEnabled
	}
	if override.SearchAdvanced != def.SearchAdvanced {
		merged.SearchAdvanced = override.SearchAdvanced
	}
	if override.StorageQuotaGB != def.StorageQuotaGB {
		merged.StorageQuotaGB = override.StorageQuotaGB
	}
	if override.OrgAdmin != def.OrgAdmin {
		merged.OrgAdmin = override.OrgAdmin
	}
	return merged
}

// WithAddedStorage returns a copy of the bundle with the storage quota
// increased by incrementGB.
func (b FeatureBundle) WithAddedStorage(incrementGB int) FeatureBundle {
	b.StorageQuotaGB += incrementGB
	return b
}

// Flags serializes the bundle to the flattened flag keys consumed by
// clients and the feature gating layer.
func (b FeatureBundle) Flags() map[string]any {
	return map[string]any{
		FlagAdsDisabled:    b.AdsDisabled,
		FlagSyncEnabled:    b.SyncEnabled,
		FlagSearchAdvanced: b.SearchAdvanced,
		FlagStorageQuotaGB: b.StorageQuotaGB,
		FlagOrgAdmin:       b.OrgAdmin,
	}
}
