package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrParsingConfig  = errors.New("config: failed to parse environment")
	ErrNilPointer     = errors.New("config: nil pointer passed to loader")
	ErrLoadingEnvFile = errors.New("config: failed to load .env file")
)

// cache holds one parsed value per config type, so every component sees the
// same configuration no matter how often or from where it calls Load.
var cache = struct {
	mu     sync.Mutex
	values map[string]any
}{values: make(map[string]any)}

var dotenvOnce sync.Once

// Load parses environment variables into *v by its `env` struct tags. The
// first call for a type parses the environment and caches the result;
// later calls for the same type return the cached value. A .env file in
// the working directory is loaded once, if present, before the first
// parse.
//
//	type Config struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() {
		// Missing .env is fine; deployments use the real environment.
		_ = godotenv.Load()
	})

	key := typeKey[T]()

	cache.mu.Lock()
	defer cache.mu.Unlock()

	if cached, ok := cache.values[key]; ok {
		*v = cached.(T)
		return nil
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	cache.values[key] = *v
	return nil
}

// MustLoad is Load for configuration the service cannot start without;
// it panics on failure.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: load failed: %v", err))
	}
}

// ResetCache forgets every cached config so the next Load parses the
// environment again. For tests that mutate environment variables.
func ResetCache() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.values = make(map[string]any)
}

// ForceReloadConfig discards the cached value for T and parses the current
// environment, for callers that changed the environment after the first
// load (e.g. t.Setenv).
func ForceReloadConfig[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	cache.mu.Lock()
	delete(cache.values, typeKey[T]())
	cache.mu.Unlock()

	return Load(v)
}

func typeKey[T any]() string {
	var zero T
	if t := reflect.TypeOf(zero); t != nil {
		return t.String()
	}
	return fmt.Sprintf("%T", *new(T))
}
