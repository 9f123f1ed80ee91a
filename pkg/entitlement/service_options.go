package entitlement

import "time"

// Option configures a Service instance.
type Option func(*service)

// WithCatalog replaces the built-in plan catalog.
// Use this to serve catalog overrides loaded from configuration.
func WithCatalog(catalog *Catalog) Option {
	return func(s *service) {
		if catalog != nil {
			s.catalog = catalog
		}
	}
}

// WithTTL sets how long computed entitlements stay cached. Values below one
// minute are clamped up to avoid cache churn.
func WithTTL(ttl time.Duration) Option {
	return func(s *service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}
