package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greedysnek.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
seed: 42
log:
  format: pretty
  level: debug
appearance:
  color: "#00ff00"
record:
  enabled: true
  out_dir: /tmp/moves
  flush_every: 30s
  idle_timeout: 5m
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "pretty", cfg.Log.Format)
	assert.Equal(t, "#00ff00", cfg.Appearance.Color)
	assert.Equal(t, "default", cfg.Appearance.Head, "unset fields keep defaults")
	assert.True(t, cfg.Record.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Record.FlushEvery)
	assert.Equal(t, 100, cfg.Record.FlushGames)
	assert.Equal(t, 5*time.Minute, cfg.Record.IdleTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("listen: [unterminated"), 0o644))
	_, err := Load(bad)
	assert.ErrorContains(t, err, "parsing config")

	noFlush := filepath.Join(dir, "noflush.yaml")
	require.NoError(t, os.WriteFile(noFlush, []byte("record:\n  enabled: true\n  flush_games: 0\n"), 0o644))
	_, err = Load(noFlush)
	assert.ErrorContains(t, err, "flush_games")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LISTEN", ":7000")
	t.Setenv("SEED", "9")
	t.Setenv("RECORD", "yes")
	t.Setenv("RECORD_FLUSH_EVERY", "1m")
	t.Setenv("LOG_LEVEL", "")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, int64(9), cfg.Seed)
	assert.True(t, cfg.Record.Enabled)
	assert.Equal(t, time.Minute, cfg.Record.FlushEvery)
	assert.Equal(t, "info", cfg.Log.Level)
}
