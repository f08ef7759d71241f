package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Concurrency)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 0, cfg.SplitSize)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
input: cards.json
mode: concurrent
concurrency: 4
timeout: 30s
colors: [B, R]
split_size: 100
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "cards.json", cfg.Input)
	assert.Equal(t, "concurrent", cfg.Mode)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, "30s", cfg.Timeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, []string{"B", "R"}, cfg.Colors)
	assert.Equal(t, 100, cfg.SplitSize)
	// Untouched fields keep their defaults.
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty input", func(c *Config) { c.Input = "" }},
		{"empty output", func(c *Config) { c.Output = "" }},
		{"empty taxonomy", func(c *Config) { c.Taxonomy = "" }},
		{"unknown mode", func(c *Config) { c.Mode = "parallel" }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }},
		{"negative split", func(c *Config) { c.SplitSize = -1 }},
		{"invalid color", func(c *Config) { c.Colors = []string{"X"} }},
		{"bad timeout", func(c *Config) { c.Timeout = "soon" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_AcceptsAllColors(t *testing.T) {
	cfg := Default()
	cfg.Colors = []string{"W", "U", "B", "R", "G"}
	assert.NoError(t, cfg.Validate())
}
