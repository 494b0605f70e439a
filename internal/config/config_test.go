package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ENVIRONMENT", "")

	cfg, err := Parse([]byte("server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Address())
	assert.Equal(t, 20, cfg.Server.TickRate)
	assert.Equal(t, 24, cfg.JWT.PublicKeyRefreshHrs)
	assert.Equal(t, "jwt:blacklist:", cfg.Redis.BlacklistPrefix)
	assert.Equal(t, "item-events:", cfg.Redis.EventsPrefix)
	assert.Equal(t, 100, cfg.Session.MaxPlayers)
	assert.Equal(t, "./configs/items.yaml", cfg.Catalog.Path)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())

	assert.True(t, cfg.Items.Loop())
	assert.True(t, cfg.Items.EmptyItem())
	assert.True(t, cfg.Items.Duplicates())
	assert.Zero(t, cfg.Items.ItemLimit)
}

func TestParseItemPolicy(t *testing.T) {
	cfg, err := Parse([]byte(`
items:
  loop_switching: false
  allow_duplicates: false
  item_limit: 4
`))
	require.NoError(t, err)
	assert.False(t, cfg.Items.Loop())
	assert.True(t, cfg.Items.EmptyItem())
	assert.False(t, cfg.Items.Duplicates())
	assert.Equal(t, 4, cfg.Items.ItemLimit)
}

func TestParseEnvironmentOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Parse([]byte("logging:\n  level: error\n"))
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	_, err := Parse([]byte("items:\n  item_limit: -1\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("logging:\n  format: xml\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("server: [1, 2"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  tick_rate: 30\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Server.TickRate)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
