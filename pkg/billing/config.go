package billing

// Config holds service-level billing settings. Paddle credentials live in
// PaddleConfig and are only loaded when the paddle provider is selected.
type Config struct {
	Provider        string `env:"BILLING_PROVIDER" envDefault:"sandbox"`    // Provider selects the payment provider: "paddle" or "sandbox".
	GracePeriodDays int    `env:"BILLING_GRACE_PERIOD_DAYS" envDefault:"7"` // GracePeriodDays is how long past-due subscriptions keep their entitlements before cancellation.

	SweepSchedule  string `env:"BILLING_SWEEP_SCHEDULE" envDefault:"*/5 * * * *"` // SweepSchedule is the cron expression for the grace-period sweeper. Supports robfig/cron syntax including @every.
	SweepBatchSize int    `env:"BILLING_SWEEP_BATCH_SIZE" envDefault:"100"`       // SweepBatchSize caps how many expired subscriptions a single sweep processes.
}
