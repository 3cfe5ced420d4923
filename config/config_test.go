package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CorsOrigins)
	assert.EqualValues(t, 1<<20, cfg.Server.MaxBodyBytes)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.True(t, cfg.Seed.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "relief-field-updates", cfg.Azure.FieldUpdatesQueue)
	assert.Equal(t, 10*time.Minute, cfg.Worker.ReindexInterval)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	contents := []byte(`
environment: production
server:
  address: 127.0.0.1:9000
  timeout: 45s
database:
  driver: sqlite
  dsn: file:relief.db
redis:
  enabled: true
  ttl: 1m
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), contents, 0o600))

	cfg, err := LoadConfig(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.Equal(t, 45*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "file:relief.db", cfg.DB.DSN)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Minute, cfg.Redis.TTL)
	// untouched keys keep their defaults
	assert.Equal(t, 6379, cfg.Redis.Port)
}

func TestLoadConfigExplicitFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "relief.yaml")
	require.NoError(t, os.WriteFile(file, []byte("environment: staging\n"), 0o600))

	cfg, err := LoadConfig(".", file)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("RELIEF_DATABASE_DRIVER", "mysql")
	t.Setenv("RELIEF_SEED_ENABLED", "false")

	cfg, err := LoadConfig(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.False(t, cfg.Seed.Enabled)
}

func TestFormatIndex(t *testing.T) {
	assert.Equal(t, "relief-requests", FormatIndex(ElasticConfig{Prefix: "relief"}, "requests"))
	assert.Equal(t, "requests", FormatIndex(ElasticConfig{}, "requests"))
}
