package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/agent-analytics/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "analytics.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.yaml")
	body := `
server:
  port: 9090
  cors_origins:
    - http://analytics.internal
database:
  path: /data/agents.db
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://analytics.internal"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "/data/agents.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("CORS_ORIGINS", "http://a.example,http://b.example")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: verbose\n"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)

	path2 := filepath.Join(t.TempDir(), "analytics.yaml")
	require.NoError(t, os.WriteFile(path2, []byte("server:\n  port: -1\n"), 0o644))

	_, err = config.Load(path2)
	assert.Error(t, err)
}
