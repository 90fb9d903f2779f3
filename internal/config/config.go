package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/alvmarrod/wiki-weaver/internal/version"
	"github.com/hashicorp/go-multierror"
)

const (
	DefaultStart   = "Minecraft"
	DefaultTarget  = "Adolf_Hitler"
	DefaultBaseURL = "https://en.wikipedia.org"
	DefaultWorkers = 5
	MaxWorkers     = 255
)

// Config holds all runtime configuration parameters
type Config struct {
	Start            string `json:"start" toml:"start"`
	Target           string `json:"target" toml:"target"`
	BaseURL          string `json:"base_url" toml:"base_url"`
	Workers          int    `json:"workers" toml:"workers"`
	RequestTimeoutMs int    `json:"request_timeout_ms" toml:"request_timeout_ms"`
	PageDelayMs      int    `json:"page_delay_ms" toml:"page_delay_ms"`
	ChannelCapacity  int    `json:"channel_capacity" toml:"channel_capacity"`
	UserAgent        string `json:"user_agent" toml:"user_agent"`
	HistoryDBPath    string `json:"history_db" toml:"history_db"`
	MetricsPath      string `json:"metrics_path" toml:"metrics_path"`
	MetricsAddr      string `json:"metrics_addr" toml:"metrics_addr"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig reads configuration from a JSON or TOML file, chosen by extension.
// Values missing from the file keep their defaults. The result is not validated
// so that command line flags can still override it; call Validate afterwards.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Normalize applies defaults to unset fields and trims the base URL
func (cfg *Config) Normalize() {
	applyDefaults(cfg)
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.Start == "" {
		cfg.Start = DefaultStart
	}
	if cfg.Target == "" {
		cfg.Target = DefaultTarget
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	// 0 workers is accepted on the command line and means "default"
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 10000
	}
	if cfg.PageDelayMs == 0 {
		cfg.PageDelayMs = 1
	}
	if cfg.ChannelCapacity == 0 {
		cfg.ChannelCapacity = 1000
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "wiki-weaver/" + version.Version
	}
}

// Validate checks that values are sensible, reporting every problem found
func (cfg *Config) Validate() error {
	var err error

	if strings.TrimSpace(cfg.Start) == "" {
		err = multierror.Append(err, fmt.Errorf("start is required"))
	}
	if strings.TrimSpace(cfg.Target) == "" {
		err = multierror.Append(err, fmt.Errorf("target is required"))
	}
	if u, parseErr := url.Parse(cfg.BaseURL); parseErr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		err = multierror.Append(err, fmt.Errorf("base_url must be an absolute http(s) URL, got %q", cfg.BaseURL))
	} else if u.Path != "" && u.Path != "/" {
		err = multierror.Append(err, fmt.Errorf("base_url must not contain a path, got %q", cfg.BaseURL))
	}
	if cfg.Workers < 1 || cfg.Workers > MaxWorkers {
		err = multierror.Append(err, fmt.Errorf("workers must be between 1 and %d", MaxWorkers))
	}
	if cfg.RequestTimeoutMs < 1000 {
		err = multierror.Append(err, fmt.Errorf("request_timeout_ms must be >= 1000"))
	}
	if cfg.PageDelayMs < 0 {
		err = multierror.Append(err, fmt.Errorf("page_delay_ms must be >= 0"))
	}
	if cfg.ChannelCapacity < cfg.Workers {
		err = multierror.Append(err, fmt.Errorf("channel_capacity must be >= workers"))
	}

	return err
}
