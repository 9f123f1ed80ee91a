package billing

import "time"

// Option configures a Service instance.
type Option func(*service)

// WithGracePeriodDays sets how long past-due subscriptions keep their
// entitlements before cancellation. Non-positive values are ignored.
func WithGracePeriodDays(days int) Option {
	return func(s *service) {
		if days > 0 {
			s.gracePeriodDays = days
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
