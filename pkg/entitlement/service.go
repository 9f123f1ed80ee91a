package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultTTL = 5 * time.Minute
	// Entries below this lifetime would churn the cache faster than
	// invalidation events arrive, so shorter TTLs are clamped up.
	minTTL = time.Minute
)

// SubscriptionSource loads normalized subscription records.
// Implementations return ErrSubscriptionNotFound for unknown IDs.
type SubscriptionSource interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionRecord, error)
}

// MembershipSource loads a user's membership within an organization.
// Implementations return ErrMembershipNotFound when the user does not
// belong to the organization.
type MembershipSource interface {
	GetMembership(ctx context.Context, userID, organizationID string) (*Membership, error)
}

// Service computes, signs, and caches entitlement payloads.
type Service interface {
	// GetEntitlements resolves the effective entitlements for a subject.
	// subscriptionID may be empty; inactive or unknown subscriptions fall
	// back to the free plan. When the subject carries an organization the
	// user must be a member of it.
	GetEntitlements(ctx context.Context, subject Subject, subscriptionID string) (Result, error)

	// InvalidateUser evicts every cached entry for a user.
	InvalidateUser(ctx context.Context, userID string) error
	// InvalidateSubscription evicts every cached entry derived from a subscription.
	InvalidateSubscription(ctx context.Context, subscriptionID string) error
	// InvalidateOrganization evicts every cached entry scoped to an organization.
	InvalidateOrganization(ctx context.Context, organizationID string) error
}

type service struct {
	subscriptions SubscriptionSource
	memberships   MembershipSource
	cache         Cache
	signer        TokenSigner
	catalog       *Catalog
	ttl           time.Duration
	now           func() time.Time
}

// NewService creates an entitlement Service.
// Panics if any required dependency is nil to fail fast during initialization.
// Optional settings (catalog, TTL, clock) are configured via Option functions.
func NewService(subscriptions SubscriptionSource, memberships MembershipSource, cache Cache, signer TokenSigner, opts ...Option) Service {
	if subscriptions == nil {
		panic("entitlement: SubscriptionSource is required")
	}
	if memberships == nil {
		panic("entitlement: MembershipSource is required")
	}
	if cache == nil {
		panic("entitlement: Cache is required")
	}
	if signer == nil {
		panic("entitlement: TokenSigner is required")
	}

	s := &service{
		subscriptions: subscriptions,
		memberships:   memberships,
		cache:         cache,
		signer:        signer,
		catalog:       DefaultCatalog(),
		ttl:           defaultTTL,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.ttl < minTTL {
		s.ttl = minTTL
	}

	return s
}

func (s *service) GetEntitlements(ctx context.Context, subject Subject, subscriptionID string) (Result, error) {
	cacheKey := subject.CacheKey(subscriptionID)
	cached, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		return Result{}, err
	}
	if cached != nil {
		return *cached, nil
	}

	subscription, err := s.resolveSubscription(ctx, subscriptionID)
	if err != nil {
		return Result{}, err
	}

	var role MembershipRole
	if subject.OrganizationID != "" {
		membership, err := s.memberships.GetMembership(ctx, subject.UserID, subject.OrganizationID)
		if err != nil {
			return Result{}, err
		}
		role = membership.Role
	}

	payload, err := s.computePayload(subject, subscription, role)
	if err != nil {
		return Result{}, err
	}

	expiresAt := s.now().Add(s.ttl)
	token, err := s.signer.Sign(payload.Claims(expiresAt))
	if err != nil {
		return Result{}, err
	}

	result := Result{Payload: payload, Token: token, ExpiresAt: expiresAt}
	if err := s.cache.Set(ctx, cacheKey, result, expiresAt, subject.Tags(subscriptionID)); err != nil {
		return Result{}, err
	}
	return result, nil
}

func (s *service) InvalidateUser(ctx context.Context, userID string) error {
	return s.cache.Invalidate(ctx, userTag(userID))
}

func (s *service) InvalidateSubscription(ctx context.Context, subscriptionID string) error {
	return s.cache.Invalidate(ctx, subscriptionTag(subscriptionID))
}

func (s *service) InvalidateOrganization(ctx context.Context, organizationID string) error {
	return s.cache.Invalidate(ctx, organizationTag(organizationID))
}

// resolveSubscription loads the subscription when an ID is given. Unknown
// and inactive subscriptions both resolve to nil so the caller falls back
// to the free plan instead of failing.
func (s *service) resolveSubscription(ctx context.Context, subscriptionID string) (*SubscriptionRecord, error) {
	if subscriptionID == "" {
		return nil, nil
	}
	subscription, err := s.subscriptions.GetSubscription(ctx, subscriptionID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("entitlement: load subscription: %w", err)
	}
	if subscription == nil || !subscription.IsActive() {
		return nil, nil
	}
	return subscription, nil
}

func (s *service) computePayload(subject Subject, subscription *SubscriptionRecord, role MembershipRole) (Payload, error) {
	planKey := PlanFree
	var addOns []AddOnGrant
	var subscriptionID string
	if subscription != nil {
		planKey = subscription.PlanKey
		addOns = subscription.AddOns
		subscriptionID = subscription.ID
	}

	plan, err := s.catalog.Plan(planKey)
	if err != nil {
		return Payload{}, err
	}

	bundle := plan.BundleForRole(role)
	if len(addOns) > 0 {
		bundle, err = s.applyAddOns(bundle, plan, addOns)
		if err != nil {
			return Payload{}, err
		}
	}

	return Payload{
		Plan:           plan.Key,
		FeatureFlags:   bundle.Flags(),
		SubscriptionID: subscriptionID,
		OrganizationID: subject.OrganizationID,
		Role:           role,
		GeneratedAt:    s.now(),
	}, nil
}

// applyAddOns folds supported add-on grants into the bundle. Grants for
// add-ons the plan does not support are skipped rather than rejected so a
// downgrade does not invalidate previously purchased grants.
func (s *service) applyAddOns(bundle FeatureBundle, plan PlanDefinition, grants []AddOnGrant) (FeatureBundle, error) {
	if len(plan.SupportsAddOns) == 0 {
		return bundle, nil
	}

	totalStorageGB := 0
	for _, grant := range grants {
		if err := grant.Validate(); err != nil {
			return FeatureBundle{}, err
		}
		if !plan.SupportsAddOn(grant.Type) {
			continue
		}
		def, err := s.catalog.AddOn(grant.Type)
		if err != nil {
			return FeatureBundle{}, err
		}
		totalStorageGB += def.StorageIncrementGB * grant.Quantity
	}

	if totalStorageGB > 0 {
		bundle = bundle.WithAddedStorage(totalStorageGB)
	}
	return bundle, nil
}
