package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.DatabasePath)
	assert.NotEmpty(t, cfg.CacheDir)
	assert.NotEmpty(t, cfg.LogFile)
}

func TestLoad_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `refresh_interval: 10m
log_level: debug
database_path: /tmp/review-manager/state.db
extra_bots:
  - acme-ci
  - release-bot
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/review-manager/state.db", cfg.DatabasePath)
	assert.Equal(t, []string{"acme-ci", "release-bot"}, cfg.ExtraBots)
}

func TestLoad_RejectsSubMinuteRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("refresh_interval: 10s\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "below the 1m minimum")
}

func TestLoad_RejectsMalformedDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("refresh_interval: soon\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_DefaultLogFileSitsNextToDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database_path: /tmp/rm/state.db\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/rm", "logs", "github-review-manager.log"), cfg.LogFile)
}
