package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/agentwatch/internal/detect"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, string(detect.ModeAll), cfg.Mode)
	assert.Equal(t, 500, cfg.Buffer.Capacity)
	assert.Zero(t, cfg.Dedup.Cooldown)
	assert.False(t, cfg.Enrichment.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
mode: security
buffer:
  capacity: 200
dedup:
  cooldown: 5m
thresholds:
  loop_repeats: 8
  approved_hosts:
    - github.com
enrichment:
  enabled: true
  model: claude-sonnet-4-5
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "security", cfg.Mode)
	assert.Equal(t, 200, cfg.Buffer.Capacity)
	assert.Equal(t, 5*time.Minute, cfg.Dedup.Cooldown.Std())
	assert.Equal(t, 8, cfg.Thresholds.LoopRepeats)
	assert.Equal(t, []string{"github.com"}, cfg.Thresholds.ApprovedHosts)
	assert.True(t, cfg.Enrichment.Enabled)

	// Unset keys keep their defaults.
	assert.Equal(t, 3, cfg.Thresholds.ThrashCycles)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: [unclosed"), 0600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	var confErr *detect.ConfigurationError

	cfg := Default()
	cfg.Mode = "paranoid"
	err := cfg.Validate()
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "mode", confErr.Field)

	cfg = Default()
	cfg.Buffer.Capacity = 0
	err = cfg.Validate()
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "buffer.capacity", confErr.Field)

	cfg = Default()
	cfg.Dedup.Cooldown = Duration(-time.Second)
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.MaxRate = -1
	assert.Error(t, cfg.Validate())
}
