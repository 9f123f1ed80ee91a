package featuregate

import (
	"maps"

	"github.com/shelfmark/shelfmark/pkg/entitlement"
)

// Context is a read facade over an entitlement payload. Handlers resolve
// the payload once per request and hand the context to the code paths that
// gate on it, keeping flag lookups and quota math in one place.
type Context struct {
	payload entitlement.Payload
}

// NewContext wraps a resolved entitlement payload.
func NewContext(payload entitlement.Payload) Context {
	return Context{payload: payload}
}

// Payload returns the wrapped entitlement payload.
func (c Context) Payload() entitlement.Payload {
	return c.payload
}

// Plan returns the payload's plan key.
func (c Context) Plan() entitlement.PlanKey {
	return c.payload.Plan
}

// Role returns the caller's membership role, empty for self contexts.
func (c Context) Role() entitlement.MembershipRole {
	return c.payload.Role
}

// FeatureFlags returns a copy of the payload's feature flags.
func (c Context) FeatureFlags() map[string]any {
	return maps.Clone(c.payload.FeatureFlags)
}

// StorageQuotaGB returns the payload's storage quota in gigabytes.
func (c Context) StorageQuotaGB() int {
	return c.payload.StorageQuotaGB()
}

// Has reports whether the named feature flag holds a truthy value.
func (c Context) Has(flag string) bool {
	return c.payload.HasFlag(flag)
}

// Require returns an *Error when the named feature flag is not enabled.
func (c Context) Require(flag string, opts ...RequireOption) error {
	return RequireEntitlement(c.payload.FeatureFlags, flag, opts...)
}

// EvaluateStorageQuota checks the given usage against the payload's own
// storage quota using the default block threshold.
func (c Context) EvaluateStorageQuota(usageGB, pendingUploadGB float64) Evaluation {
	return EvaluateStorageQuota(QuotaCheck{
		UsageGB:         usageGB,
		QuotaGB:         c.payload.StorageQuotaGB(),
		PendingUploadGB: pendingUploadGB,
	})
}

// AssertStorageQuota checks the given usage against the payload's own
// storage quota and fails when the projection exceeds the block threshold.
func (c Context) AssertStorageQuota(usageGB, pendingUploadGB float64) (Evaluation, error) {
	return AssertStorageQuota(QuotaCheck{
		UsageGB:         usageGB,
		QuotaGB:         c.payload.StorageQuotaGB(),
		PendingUploadGB: pendingUploadGB,
	})
}
