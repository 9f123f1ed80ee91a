// Package featuregate enforces entitlement flags and storage quotas at the
// point of use.
//
// Entitlement payloads describe what a caller may do; this package turns
// those payloads into allow/deny decisions. Gate failures are structured
// errors carrying an error code, an HTTP status, and a detail map, so
// handlers can serve them to clients without reformatting.
//
// # Core Components
//
//   - RequireEntitlement: checks a feature flag in a raw flag map.
//   - EvaluateStorageQuota / AssertStorageQuota: project storage usage
//     against a quota with a soft warning line and a hard block threshold.
//   - Context: a per-request facade binding the checks to a resolved
//     entitlement payload.
//
// # Quick Start
//
//	payload, err := entitlements.ResolveEntitlements(ctx, userID, orgID)
//	if err != nil {
//		return err
//	}
//	gate := featuregate.NewContext(payload)
//
//	if err := gate.Require(entitlement.FlagSearchAdvanced); err != nil {
//		var gateErr *featuregate.Error
//		errors.As(err, &gateErr)
//		writeJSON(w, gateErr.StatusCode(), gateErr.Payload())
//		return
//	}
//
//	if _, err := gate.AssertStorageQuota(usageGB, uploadGB); err != nil {
//		// Upload would push usage past the block threshold.
//	}
//
// # Quota Semantics
//
// A quota check projects current usage plus pending uploads. The projection
// warns as soon as it reaches the quota, but blocks only once it exceeds
// quota multiplied by the threshold (10% headroom by default). Warn-but-allow
// lets clients surface "almost full" messaging while uploads still succeed.
//
// # Error Handling
//
// All failures are *Error values. Use errors.As to recover the structured
// form and branch on the Code field (CodeEntitlementRequired,
// CodeStorageQuotaExceeded).
package featuregate
