package organization

import "time"

// Option configures a Service instance.
type Option func(*service)

// WithInvitationTTL sets how long invitations stay valid when the caller
// does not supply an explicit expiry. Non-positive values are ignored.
func WithInvitationTTL(ttl time.Duration) Option {
	return func(s *service) {
		if ttl > 0 {
			s.invitationTTL = ttl
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
