package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 256, cfg.Dimension)
	assert.Equal(t, 4, cfg.Sim.Spacing)
	assert.Equal(t, float64(60), cfg.FPS)
	assert.Equal(t, float64(500), cfg.InputRate)
	assert.Equal(t, float32(0.05), cfg.Placement.DistStep)
	assert.Equal(t, float32(200), cfg.Placement.MaxDist)
	assert.Equal(t, float32(1), cfg.Placement.MinSize)
	assert.Equal(t, float32(50), cfg.Placement.MaxSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dimension: 64\nsim:\n  iterations: 3\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Dimension)
	assert.Equal(t, 3, cfg.Sim.Iterations)
	assert.Equal(t, DefaultSpacing, cfg.Sim.Spacing)
	assert.Equal(t, "auto", cfg.Backend)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg := DefaultConfig()
	cfg.Scene = "terrain"
	cfg.Metrics.Listen = ":9100"

	require.NoError(t, Save(path, cfg))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dimension: [1"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"dimension", func(c *Config) { c.Dimension = 0 }},
		{"iterations", func(c *Config) { c.Sim.Iterations = -1 }},
		{"input rate", func(c *Config) { c.InputRate = 0 }},
		{"window", func(c *Config) { c.Window.Height = 0 }},
		{"size range", func(c *Config) { c.Placement.MinSize = 60 }},
		{"distance range", func(c *Config) { c.Placement.MinDist = 300 }},
		{"dist step", func(c *Config) { c.Placement.DistStep = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("terrain", "small")
	require.NotNil(t, cfg)
	assert.Equal(t, 128, cfg.Dimension)
	assert.Equal(t, "terrain", cfg.Scene)
	assert.Equal(t, DefaultSpacing, cfg.Sim.Spacing, "unset preset fields keep defaults")
	assert.NoError(t, cfg.Validate())
}

func TestGetPreset_NotFound(t *testing.T) {
	assert.Nil(t, GetPreset("terrain", "nonexistent"))
	assert.Nil(t, GetPreset("nonexistent", "small"))
}

func TestListPresets(t *testing.T) {
	assert.Equal(t, []string{"default", "small", "tiny"}, ListPresets("terrain"))
	assert.Nil(t, ListPresets("nonexistent"))
	assert.Contains(t, ListScenes(), "beach")
}

func TestPresets_AllValid(t *testing.T) {
	for _, scene := range ListScenes() {
		for _, size := range ListPresets(scene) {
			cfg := GetPreset(scene, size)
			assert.NoError(t, cfg.Validate(), "%s/%s", scene, size)
			assert.Equal(t, scene, cfg.Scene)
		}
	}
}
