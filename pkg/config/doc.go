// Package config loads typed application configuration from environment
// variables, with optional .env files for local development.
//
// It layers two libraries: github.com/joho/godotenv reads .env files into
// the process environment, and github.com/caarlos0/env/v11 parses the
// environment into tagged structs. Load caches each parsed struct by its
// fully-qualified type name under a single mutex, so repeated calls for the
// same type return the cached copy instead of re-parsing.
//
// Define a struct with env tags and load it once at startup:
//
//	type BillingConfig struct {
//	    PaddleAPIKey        string        `env:"PADDLE_API_KEY,required"`
//	    PaddleWebhookSecret string        `env:"PADDLE_WEBHOOK_SECRET,required"`
//	    GracePeriod         time.Duration `env:"BILLING_GRACE_PERIOD" envDefault:"72h"`
//	}
//
//	var billing BillingConfig
//	if err := config.Load(&billing); err != nil {
//	    log.Fatalf("parsing env: %v", err)
//	}
//
// MustLoad and MustLoadEnv panic instead of returning an error, for
// configuration the process cannot start without. Failures wrap one of
// ErrParsingConfig, ErrNilPointer, or ErrLoadingEnvFile.
//
// Tests that mutate the process environment can call ResetCache to drop
// every cached struct, or ForceReloadConfig to re-parse a single one.
package config
