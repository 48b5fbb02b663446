package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/espalier/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "espalier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "addr: \":9090\"\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "/flows", cfg.BasePath)
	assert.Equal(t, "_id", cfg.SessionParam)
	assert.Nil(t, cfg.Redis)
}

func TestLoad_Redis(t *testing.T) {
	path := writeConfig(t, `
addr: ":8080"
redis:
  addr: "localhost:6379"
  db: 2
  ttl: "30m"
  lock: true
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Redis)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 30*time.Minute, time.Duration(cfg.Redis.TTL))
	assert.True(t, cfg.Redis.Lock)
}

func TestLoad_RedisWithoutAddr(t *testing.T) {
	path := writeConfig(t, "redis:\n  db: 1\n")

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "redis:\n  addr: \"localhost:6379\"\n  ttl: \"soon\"\n")

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
