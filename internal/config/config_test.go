package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "Minecraft", cfg.Start)
	assert.Equal(t, "Adolf_Hitler", cfg.Target)
	assert.Equal(t, "https://en.wikipedia.org", cfg.BaseURL)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, 1, cfg.PageDelayMs)
	assert.Equal(t, 1000, cfg.ChannelCapacity)
	assert.Contains(t, cfg.UserAgent, "wiki-weaver/")
	assert.Empty(t, cfg.HistoryDBPath)
	assert.Empty(t, cfg.MetricsPath)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"start": "Go_(programming_language)", "workers": 12, "history_db": "games.db"}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Go_(programming_language)", cfg.Start)
	assert.Equal(t, 12, cfg.Workers)
	assert.Equal(t, "games.db", cfg.HistoryDBPath)
	assert.Equal(t, DefaultTarget, cfg.Target)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
start = "Rust"
target = "Iron"
base_url = "https://fr.wikipedia.org"
workers = 3
page_delay_ms = 5
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Rust", cfg.Start)
	assert.Equal(t, "Iron", cfg.Target)
	assert.Equal(t, "https://fr.wikipedia.org", cfg.BaseURL)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 5, cfg.PageDelayMs)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "broken.json", `{"start": `))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "broken.toml", `start = `))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	cfg := &Config{BaseURL: "https://x/", Workers: 0}
	cfg.Normalize()

	assert.Equal(t, "https://x", cfg.BaseURL)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"too many workers", func(c *Config) { c.Workers = 256 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"relative base url", func(c *Config) { c.BaseURL = "en.wikipedia.org" }},
		{"ftp base url", func(c *Config) { c.BaseURL = "ftp://en.wikipedia.org" }},
		{"base url with path", func(c *Config) { c.BaseURL = "https://en.wikipedia.org/wiki" }},
		{"blank start", func(c *Config) { c.Start = "  " }},
		{"blank target", func(c *Config) { c.Target = "" }},
		{"short timeout", func(c *Config) { c.RequestTimeoutMs = 10 }},
		{"negative delay", func(c *Config) { c.PageDelayMs = -1 }},
		{"tiny channel", func(c *Config) { c.ChannelCapacity = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Workers = 1000
	cfg.BaseURL = "nope"
	cfg.RequestTimeoutMs = 1

	err := cfg.Validate()
	require.Error(t, err)

	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	assert.Len(t, merr.Errors, 3)
}
