package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from the given .env files into the
// process environment. Later files take precedence over earlier ones and
// over variables already present in the environment, which lets deployment
// overlays override a base file. Without arguments it loads the default
// .env from the current working directory.
//
// LoadEnv only mutates the process environment; call Load afterwards to
// parse the environment into a config struct.
func LoadEnv(paths ...string) error {
	if err := godotenv.Overload(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// MustLoadEnv works like LoadEnv but panics if any file cannot be loaded.
func MustLoadEnv(paths ...string) {
	if err := LoadEnv(paths...); err != nil {
		panic(fmt.Sprintf("Failed to load env files: %v", err))
	}
}
