package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", config.Server.Port)
	assert.True(t, config.Settlement.Embedded)
	assert.Equal(t, 4, config.Settlement.Workers)
	assert.Equal(t, 24*time.Hour, config.Redis.TTL)
	assert.False(t, config.NATS.Enabled)
	assert.True(t, config.Outbox.Embedded)
	assert.Equal(t, 30*time.Second, config.Outbox.FallbackInterval)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
  log_level: debug
nats:
  enabled: true
  url: nats://broker:4222
redis:
  enabled: true
  addr: cache:6379
  db: 2
  ttl: 1h
settlement:
  workers: 8
  idle_poll: 10s
outbox:
  fallback_interval: 5s
  batch_size: 20
`), 0o600))

	t.Setenv("SETTLEMENT_WORKERS", "2")
	t.Setenv("OUTBOX_EMBEDDED", "false")
	t.Setenv("FALLBACK_INTERVAL", "")
	t.Setenv("REDIS_ENABLED", "false")

	config, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, zerolog.DebugLevel, config.logLevel())
	assert.True(t, config.NATS.Enabled)
	assert.Equal(t, "nats://broker:4222", config.NATS.URL)
	assert.Equal(t, "cache:6379", config.Redis.Addr)
	assert.Equal(t, 2, config.Redis.DB)
	assert.False(t, config.Outbox.Embedded)
	assert.Equal(t, 5*time.Second, config.Outbox.FallbackInterval)
	assert.Equal(t, 20, config.Outbox.BatchSize)
	assert.Equal(t, time.Hour, config.Redis.TTL)
	assert.False(t, config.Redis.Enabled)
	assert.Equal(t, 2, config.Settlement.Workers)
	assert.Equal(t, 10*time.Second, config.Settlement.IdlePoll)
	assert.Equal(t, 100, config.Settlement.BatchSize)
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o600))

	_, err := loadConfig(path)
	assert.Error(t, err)
}
