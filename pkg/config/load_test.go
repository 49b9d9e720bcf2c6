package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"katydid-async-validation/pkg/idgen"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 64, cfg.Server.EventBuffer)
	assert.True(t, cfg.Validation.ValidateAllProperties)
	assert.False(t, cfg.Validation.ShowErrorInDialog)
	assert.Equal(t, "en", cfg.Validation.Locale)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 3, cfg.Redis.RetryAttempts)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "katydid", cfg.Metrics.Namespace)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validationd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
validation:
  workers: 4
  show_error_in_dialog: true
  run_timeout: 2s
  run_ids:
    worker_id: 3
redis:
  enabled: true
  url: redis://cache:6379/1
  set_key: accounts:emails
log:
  level: debug
  file:
    path: /tmp/validationd.log
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Validation.Workers)
	assert.True(t, cfg.Validation.ShowErrorInDialog)
	assert.Equal(t, 2*time.Second, cfg.Validation.RunTimeout)
	assert.Equal(t, int64(3), cfg.Validation.RunIDs.WorkerID)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, "accounts:emails", cfg.Redis.SetKey)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/validationd.log", cfg.Log.File.Path)
	assert.Equal(t, 100, cfg.Log.File.MaxSizeMB)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VALIDATIOND_SERVER_ADDR", ":7070")
	t.Setenv("VALIDATIOND_VALIDATION_WORKERS", "8")
	t.Setenv("VALIDATIOND_REDIS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Validation.Workers)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrReadConfig)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("VALIDATIOND_SERVER_EVENT_BUFFER", "0")
	t.Setenv("VALIDATIOND_VALIDATION_WORKERS", "-1")

	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "server.event_buffer")
	assert.Contains(t, err.Error(), "validation.workers")
}

func TestValidate_RedisAndMetrics(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Redis.Enabled = true
	cfg.Redis.SetKey = ""
	cfg.Metrics.Path = "metrics"

	err = cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "redis.set_key")
	assert.Contains(t, err.Error(), "metrics.path")
}

func TestValidate_RunIDs(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Validation.RunIDs.WorkerID = 32

	err = cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, idgen.ErrInvalidWorkerID)
}
