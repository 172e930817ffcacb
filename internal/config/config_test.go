package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Database.LockTimeout)
	assert.Equal(t, 10, cfg.Players.BulkCreateCount)
	assert.Equal(t, int64(100), cfg.Players.DefaultCoins)
	assert.Equal(t, int64(1), cfg.Players.DefaultGoods)
	assert.Equal(t, 3, cfg.Client.MaxRetries)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := `
server:
  port: 9090
database:
  driver: postgres
  dsn: postgres://localhost/players
  lock_timeout: 250ms
logger:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o600))
	t.Setenv("LOGGER_LEVEL", "error")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.LockTimeout)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, "error", cfg.Logger.Level, "environment overrides the file")
}

func TestLoadConfig_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("server: [port"), 0o600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
