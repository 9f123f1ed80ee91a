package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/pkg/config"
)

type customEnvConfig struct {
	Str      string   `env:"TEST_CUSTOM_STRING"`
	Num      int      `env:"TEST_CUSTOM_INT"`
	Flag     bool     `env:"TEST_CUSTOM_BOOL"`
	List     []string `env:"TEST_CUSTOM_ARRAY" envSeparator:","`
	Quoted   string   `env:"TEST_CUSTOM_WITH_QUOTES"`
	Empty    string   `env:"TEST_CUSTOM_EMPTY"`
	Priority string   `env:"TEST_PRIORITY"`
}

type overrideEnvConfig struct {
	Str      string `env:"TEST_CUSTOM_STRING"`
	Priority string `env:"TEST_PRIORITY"`
	Unique   string `env:"TEST_OVERRIDE_UNIQUE"`
}

func clearCustomEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TEST_CUSTOM_STRING", "TEST_CUSTOM_INT", "TEST_CUSTOM_BOOL",
		"TEST_CUSTOM_ARRAY", "TEST_CUSTOM_WITH_QUOTES", "TEST_CUSTOM_EMPTY",
		"TEST_PRIORITY", "TEST_OVERRIDE_UNIQUE", "TEST_MULTIENV_FEATURE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	config.ResetCache()
}

func TestLoadEnv(t *testing.T) {
	t.Run("loads variables from a custom path", func(t *testing.T) {
		clearCustomEnv(t)
		require.NoError(t, config.LoadEnv("testdata/.env.custom"))

		var cfg customEnvConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "custom_value", cfg.Str)
		assert.Equal(t, 1234, cfg.Num)
		assert.True(t, cfg.Flag)
		assert.Equal(t, []string{"item1", "item2", "item3"}, cfg.List)
		assert.Equal(t, "quoted value", cfg.Quoted)
		assert.Empty(t, cfg.Empty)
		assert.Equal(t, "custom_file_value", cfg.Priority)
	})

	t.Run("later files override earlier ones", func(t *testing.T) {
		clearCustomEnv(t)
		require.NoError(t, config.LoadEnv("testdata/.env.custom", "testdata/.env.override"))

		var cfg overrideEnvConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "override_value", cfg.Str)
		assert.Equal(t, "override_value", cfg.Priority)
		assert.Equal(t, "unique_to_override", cfg.Unique)
	})

	t.Run("fails on a missing file", func(t *testing.T) {
		err := config.LoadEnv("testdata/.env.does-not-exist")
		assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
	})
}

func TestMustLoadEnv(t *testing.T) {
	assert.NotPanics(t, func() { config.MustLoadEnv("testdata/.env.custom") })
	assert.Panics(t, func() { config.MustLoadEnv("testdata/.env.does-not-exist") })
}
