package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	assert.Equal(t, 0, cfg.Cache.Retry)
	assert.Equal(t, 5*time.Minute, cfg.Cache.StaleTime)
	assert.False(t, cfg.Server.AllowDelete)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid default config", modify: func(c *Config) {}},
		{name: "missing listen addr", modify: func(c *Config) { c.Server.ListenAddr = "" }, wantErr: true},
		{name: "relative backend url", modify: func(c *Config) { c.Backend.URL = "localhost" }, wantErr: true},
		{name: "zero timeout", modify: func(c *Config) { c.Backend.Timeout = 0 }, wantErr: true},
		{name: "sandbox addr without url", modify: func(c *Config) { c.Server.SandboxAddr = ":3001" }, wantErr: true},
		{name: "sandbox with url", modify: func(c *Config) {
			c.Server.SandboxAddr = ":3001"
			c.Server.SandboxURL = "http://127.0.0.1:3001"
		}},
		{name: "negative retry", modify: func(c *Config) { c.Cache.Retry = -1 }, wantErr: true},
		{name: "bad log level", modify: func(c *Config) { c.Log.Level = "loud" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive-viewer.yaml")
	yaml := `
backend:
  url: http://archive.internal:9000
  timeout: 3s
cache:
  retry: 2
server:
  allow_delete: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://archive.internal:9000", cfg.Backend.URL)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 2, cfg.Cache.Retry)
	assert.True(t, cfg.Server.AllowDelete)
	// untouched fields keep their defaults
	assert.Equal(t, ":3000", cfg.Server.ListenAddr)
	assert.Equal(t, 5*time.Minute, cfg.Cache.GCTime)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://10.0.0.5:8000")
	t.Setenv("ALLOW_DELETE", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CACHE_STALE_TIME", "30s")
	t.Setenv("EXPORT_STEP_DELAY", "0s")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "http://10.0.0.5:8000", cfg.Backend.URL)
	assert.True(t, cfg.Server.AllowDelete)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 30*time.Second, cfg.Cache.StaleTime)
	assert.Equal(t, time.Duration(0), cfg.Export.StepDelay)
}

func TestApplyEnvInvalid(t *testing.T) {
	t.Setenv("CACHE_RETRY", "many")
	t.Setenv("EXPORT_TTL", "forever")

	err := DefaultConfig().ApplyEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_RETRY")
	assert.Contains(t, err.Error(), "EXPORT_TTL")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}
