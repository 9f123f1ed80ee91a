package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/pkg/config"
)

// Distinct struct types per test because Load caches by type.

type plainConfig struct {
	Name string `env:"LOADER_TEST_NAME" envDefault:"fallback"`
	Port int    `env:"LOADER_TEST_PORT" envDefault:"8080"`
}

type requiredConfig struct {
	Secret string `env:"LOADER_TEST_SECRET,required"`
}

type cachedConfig struct {
	Value string `env:"LOADER_TEST_CACHED" envDefault:"initial"`
}

type reloadConfig struct {
	Value string `env:"LOADER_TEST_RELOAD" envDefault:"initial"`
}

func TestLoad(t *testing.T) {
	t.Run("parses tagged fields", func(t *testing.T) {
		t.Setenv("LOADER_TEST_NAME", "shelfmarkd")
		t.Setenv("LOADER_TEST_PORT", "9090")
		config.ResetCache()

		var cfg plainConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "shelfmarkd", cfg.Name)
		assert.Equal(t, 9090, cfg.Port)
	})

	t.Run("applies defaults for unset variables", func(t *testing.T) {
		os.Unsetenv("LOADER_TEST_NAME")
		os.Unsetenv("LOADER_TEST_PORT")
		config.ResetCache()

		var cfg plainConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "fallback", cfg.Name)
		assert.Equal(t, 8080, cfg.Port)
	})

	t.Run("fails on missing required variables", func(t *testing.T) {
		os.Unsetenv("LOADER_TEST_SECRET")
		config.ResetCache()

		var cfg requiredConfig
		assert.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)
	})

	t.Run("rejects a nil pointer", func(t *testing.T) {
		assert.ErrorIs(t, config.Load[plainConfig](nil), config.ErrNilPointer)
	})

	t.Run("caches per type until reset", func(t *testing.T) {
		t.Setenv("LOADER_TEST_CACHED", "first")
		config.ResetCache()

		var first cachedConfig
		require.NoError(t, config.Load(&first))
		require.Equal(t, "first", first.Value)

		// A later environment change is invisible to the cached type.
		t.Setenv("LOADER_TEST_CACHED", "second")
		var again cachedConfig
		require.NoError(t, config.Load(&again))
		assert.Equal(t, "first", again.Value)

		config.ResetCache()
		var fresh cachedConfig
		require.NoError(t, config.Load(&fresh))
		assert.Equal(t, "second", fresh.Value)
	})

	t.Run("force reload bypasses the cache for one type", func(t *testing.T) {
		t.Setenv("LOADER_TEST_RELOAD", "before")
		config.ResetCache()

		var cfg reloadConfig
		require.NoError(t, config.Load(&cfg))
		require.Equal(t, "before", cfg.Value)

		t.Setenv("LOADER_TEST_RELOAD", "after")
		require.NoError(t, config.ForceReloadConfig(&cfg))
		assert.Equal(t, "after", cfg.Value)
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("returns on success", func(t *testing.T) {
		config.ResetCache()
		var cfg plainConfig
		assert.NotPanics(t, func() { config.MustLoad(&cfg) })
	})

	t.Run("panics on failure", func(t *testing.T) {
		os.Unsetenv("LOADER_TEST_SECRET")
		config.ResetCache()
		var cfg requiredConfig
		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})
}
