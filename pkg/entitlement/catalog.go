package entitlement

import (
	"fmt"
	"slices"
)

// PlanDefinition describes a subscription plan and its entitlement mapping.
type PlanDefinition struct {
	Key              PlanKey           `json:"key" yaml:"key"`
	DisplayName      string            `json:"display_name" yaml:"display_name"`
	BillingIntervals []BillingInterval `json:"billing_intervals" yaml:"billing_intervals"`
	MemberBundle     FeatureBundle     `json:"member_bundle" yaml:"member_bundle"`
	AdminOverride    *FeatureBundle    `json:"admin_override,omitempty" yaml:"admin_override,omitempty"`
	SupportsAddOns   []AddOnType       `json:"supports_add_ons,omitempty" yaml:"supports_add_ons,omitempty"`
	PerSeat          bool              `json:"per_seat" yaml:"per_seat"`
}

// SupportsInterval reports whether the plan can be billed on the interval.
func (d PlanDefinition) SupportsInterval(interval BillingInterval) bool {
	return slices.Contains(d.BillingIntervals, interval)
}

// SupportsAddOn reports whether the plan accepts the add-on type.
func (d PlanDefinition) SupportsAddOn(t AddOnType) bool {
	return slices.Contains(d.SupportsAddOns, t)
}

// BundleForRole resolves the effective feature bundle for a member role.
// Admins and owners receive the admin override on top of the member bundle;
// everyone else gets the member bundle as-is.
func (d PlanDefinition) BundleForRole(role MembershipRole) FeatureBundle {
	if d.AdminOverride != nil && (role == RoleAdmin || role == RoleOwner) {
		return d.MemberBundle.Merge(*d.AdminOverride)
	}
	return d.MemberBundle
}

// AddOnDefinition describes an add-on and how it impacts entitlements.
type AddOnDefinition struct {
	Type               AddOnType `json:"type" yaml:"type"`
	StorageIncrementGB int       `json:"storage_increment_gb" yaml:"storage_increment_gb"`
}

// Catalog holds the full set of sellable plans and add-ons. It is immutable
// after construction; services share a single instance.
type Catalog struct {
	plans  map[PlanKey]PlanDefinition
	addOns map[AddOnType]AddOnDefinition
}

// NewCatalog validates the given definitions and assembles a catalog.
// Every plan must declare at least one billing interval, and every add-on a
// plan claims to support must be present in the add-on set.
func NewCatalog(plans []PlanDefinition, addOns []AddOnDefinition) (*Catalog, error) {
	addOnIndex := make(map[AddOnType]AddOnDefinition, len(addOns))
	for _, a := range addOns {
		if a.Type == "" {
			return nil, fmt.Errorf("%w: add-on with empty type", ErrInvalidCatalog)
		}
		if a.StorageIncrementGB < 0 {
			return nil, fmt.Errorf("%w: add-on %s has negative storage increment", ErrInvalidCatalog, a.Type)
		}
		if _, exists := addOnIndex[a.Type]; exists {
			return nil, fmt.Errorf("%w: duplicate add-on %s", ErrInvalidCatalog, a.Type)
		}
		addOnIndex[a.Type] = a
	}

	planIndex := make(map[PlanKey]PlanDefinition, len(plans))
	for _, p := range plans {
		if p.Key == "" {
			return nil, fmt.Errorf("%w: plan with empty key", ErrInvalidCatalog)
		}
		if _, exists := planIndex[p.Key]; exists {
			return nil, fmt.Errorf("%w: duplicate plan %s", ErrInvalidCatalog, p.Key)
		}
		if len(p.BillingIntervals) == 0 {
			return nil, fmt.Errorf("%w: plan %s declares no billing intervals", ErrInvalidCatalog, p.Key)
		}
		for _, interval := range p.BillingIntervals {
			if _, err := ParseBillingInterval(string(interval)); err != nil {
				return nil, fmt.Errorf("%w: plan %s: %s", ErrInvalidCatalog, p.Key, interval)
			}
		}
		if p.MemberBundle.StorageQuotaGB < 0 {
			return nil, fmt.Errorf("%w: plan %s has negative storage quota", ErrInvalidCatalog, p.Key)
		}
		for _, t := range p.SupportsAddOns {
			if _, ok := addOnIndex[t]; !ok {
				return nil, fmt.Errorf("%w: plan %s supports unknown add-on %s", ErrInvalidCatalog, p.Key, t)
			}
		}
		planIndex[p.Key] = p
	}

	// Subjects without an active subscription resolve to the free plan,
	// so a catalog without one cannot serve entitlements.
	if _, ok := planIndex[PlanFree]; !ok {
		return nil, fmt.Errorf("%w: missing %q plan", ErrInvalidCatalog, PlanFree)
	}

	return &Catalog{plans: planIndex, addOns: addOnIndex}, nil
}

// Plan returns the definition for the given plan key.
func (c *Catalog) Plan(key PlanKey) (PlanDefinition, error) {
	def, ok := c.plans[key]
	if !ok {
		return PlanDefinition{}, fmt.Errorf("%w: %q", ErrUnknownPlan, key)
	}
	return def, nil
}

// AddOn returns the definition for the given add-on type.
func (c *Catalog) AddOn(t AddOnType) (AddOnDefinition, error) {
	def, ok := c.addOns[t]
	if !ok {
		return AddOnDefinition{}, fmt.Errorf("%w: %q", ErrUnknownAddOn, t)
	}
	return def, nil
}

// Plans returns all plan definitions ordered by key for stable listings.
func (c *Catalog) Plans() []PlanDefinition {
	keys := make([]PlanKey, 0, len(c.plans))
	for k := range c.plans {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]PlanDefinition, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.plans[k])
	}
	return out
}

// DefaultCatalog returns the built-in catalog: a free tier, an individual
// pro tier, and a per-seat team tier with an admin override.
func DefaultCatalog() *Catalog {
	adminOverride := FeatureBundle{OrgAdmin: true}
	catalog, err := NewCatalog(
		[]PlanDefinition{
			{
				Key:              PlanFree,
				DisplayName:      "Free",
				BillingIntervals: []BillingInterval{BillingIntervalMonthly},
				MemberBundle:     DefaultBundle(),
			},
			{
				Key:              PlanIndividualPro,
				DisplayName:      "Individual (Pro)",
				BillingIntervals: []BillingInterval{BillingIntervalMonthly, BillingIntervalAnnual},
				MemberBundle: FeatureBundle{
					AdsDisabled:    true,
					SyncEnabled:    true,
					SearchAdvanced: true,
					StorageQuotaGB: 100,
				},
				SupportsAddOns: []AddOnType{AddOnStorage100GB},
			},
			{
				Key:              PlanTeam,
				DisplayName:      "Teams",
				BillingIntervals: []BillingInterval{BillingIntervalMonthly, BillingIntervalAnnual},
				MemberBundle: FeatureBundle{
					AdsDisabled:    true,
					SyncEnabled:    true,
					SearchAdvanced: true,
					StorageQuotaGB: 100,
				},
				AdminOverride:  &adminOverride,
				SupportsAddOns: []AddOnType{AddOnStorage100GB},
				PerSeat:        true,
			},
		},
		[]AddOnDefinition{
			{Type: AddOnStorage100GB, StorageIncrementGB: 100},
		},
	)
	if err != nil {
		panic("entitlement: default catalog is invalid: " + err.Error())
	}
	return catalog
}
