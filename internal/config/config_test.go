package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asurada/appstore-spending/internal/scraper/appstore"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Equal(t, appstore.DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, 400*time.Millisecond, cfg.Throttle())
	assert.False(t, cfg.Headless)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"endpoint: https://example.test/api/purchase/search\nthrottle_ms: 100\nheadless: true\n",
	), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "https://example.test/api/purchase/search", cfg.Endpoint)
	assert.Equal(t, 100*time.Millisecond, cfg.Throttle())
	assert.True(t, cfg.Headless)
	// Unset keys keep their defaults.
	assert.Equal(t, appstore.DefaultReferrer, cfg.Referrer)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("throttle_ms: 100\n"), 0o644))

	t.Setenv("APPSTORE_THROTTLE_MS", "250")
	t.Setenv("APPSTORE_CHROME_BIN", "/usr/bin/google-chrome")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 250, cfg.ThrottleMS)
	assert.Equal(t, "/usr/bin/google-chrome", cfg.ChromeBin)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("bad env int", func(t *testing.T) {
		t.Setenv("APPSTORE_THROTTLE_MS", "soon")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("negative throttle", func(t *testing.T) {
		t.Setenv("APPSTORE_THROTTLE_MS", "-1")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}
