// Package entitlement computes, signs, and caches per-user feature
// entitlements derived from subscriptions, organization memberships, and
// purchased add-ons.
//
// The package resolves a subject (user, optionally acting inside an
// organization) against the plan catalog: active subscriptions map to their
// plan's feature bundle, organization admins and owners receive the plan's
// admin override, and storage add-ons raise the quota. Subjects without an
// active subscription fall back to the free plan. Results are signed with
// HMAC-SHA256 so downstream services can trust them without a database
// round-trip, and cached under invalidation tags so billing and membership
// events can evict exactly the affected subjects.
//
// # Core Components
//
//   - Service: resolves and caches entitlements, and invalidates them by
//     user, subscription, or organization tag
//   - Catalog: validated set of plans and add-ons (built-in via
//     DefaultCatalog, or loaded from YAML via LoadCatalogFile)
//   - Cache: tag-indexed result store (in-process MemoryCache, or
//     RedisCache for multi-instance deployments)
//   - TokenSigner: claims signing (HMACSigner), verified via VerifyToken
//   - SubscriptionSource, MembershipSource: data access, implemented for
//     Postgres in this package
//
// # Quick Start
//
//	signer, err := entitlement.NewHMACSigner(cfg.EntitlementSecret)
//	if err != nil {
//		return err
//	}
//
//	svc := entitlement.NewService(
//		entitlement.NewPostgresSubscriptionSource(pool),
//		entitlement.NewPostgresMembershipSource(pool),
//		entitlement.NewRedisCache(redisClient),
//		signer,
//		entitlement.WithTTL(10*time.Minute),
//	)
//
//	result, err := svc.GetEntitlements(ctx, entitlement.Subject{
//		UserID:         userID,
//		OrganizationID: orgID,
//	}, subscriptionID)
//	if err != nil {
//		return err
//	}
//	if result.Payload.HasFlag(entitlement.FlagSyncEnabled) {
//		// ...
//	}
//
// Cached results are keyed by subject and subscription, so a billing event
// only needs the matching tag:
//
//	_ = svc.InvalidateSubscription(ctx, subscriptionID)
//
// # Error Handling
//
// The package uses sentinel errors for all failure modes. Callers map them
// to transport-level responses:
//
//	result, err := svc.GetEntitlements(ctx, subject, subID)
//	switch {
//	case errors.Is(err, entitlement.ErrMembershipNotFound):
//		// subject is not a member of the requested organization
//	case err != nil:
//		// infrastructure failure
//	}
package entitlement
