package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "0 * * * *", cfg.RefreshCron)
	assert.Equal(t, 2, cfg.PastWeeks)
	assert.Equal(t, 8, cfg.FutureWeeks)
	assert.NotEmpty(t, cfg.Resources)
	assert.NotEmpty(t, cfg.RoomPattern)
}

func TestNormalize_FillsZeroValues(t *testing.T) {
	cfg := &Config{Listen: "0.0.0.0:9000"}

	cfg.Normalize()

	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, DefaultConfig().Timezone, cfg.Timezone)
	assert.Equal(t, DefaultConfig().RefreshCron, cfg.RefreshCron)
	assert.Equal(t, 2, cfg.PastWeeks)
	assert.Equal(t, 8, cfg.FutureWeeks)
	assert.Positive(t, cfg.FetchTimeoutSeconds)
}

func TestLoad_CreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Listen, cfg.Listen)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Listen = "127.0.0.1:9999"
	cfg.Resources = []int{726, 730}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", loaded.Listen)
	assert.Equal(t, []int{726, 730}, loaded.Resources)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [broken"), 0o600))

	_, err := Load(path)

	assert.Error(t, err)
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")

	assert.Error(t, err)
}
