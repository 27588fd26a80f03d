// Package config handles relevel configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level relevel configuration.
type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Rewrite  RewriteConfig  `yaml:"rewrite"`
	Summary  SummaryConfig  `yaml:"summary"`
	History  HistoryConfig  `yaml:"history"`
	Serve    ServeConfig    `yaml:"serve"`
	Sinks    []SinkConfig   `yaml:"sinks"`
}

// BrowserConfig controls the Chrome instance pages are driven through.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome. Empty =
	// launch a local one.
	Remote string `yaml:"remote"`

	// ResourceBlocking lists resource types to block while driving
	// pages (images, fonts, media).
	ResourceBlocking []string `yaml:"resource_blocking"`

	// NavigateTimeout bounds page navigation and load.
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`

	// Stealth applies bot-detection evasion to new tabs.
	Stealth bool `yaml:"stealth"`
}

// UpstreamConfig points at the rewriting service.
type UpstreamConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	// Timeout bounds each upstream call.
	Timeout time.Duration `yaml:"timeout"`
}

// RewriteConfig tunes the per-element rewrite loop.
type RewriteConfig struct {
	// PacingDelay is inserted between units to stay under upstream
	// rate limits.
	PacingDelay time.Duration `yaml:"pacing_delay"`

	// MaskDelay is the visual-transition masking delay per write.
	// Negative means zero (deterministic tests set it so via code).
	MaskDelay time.Duration `yaml:"mask_delay"`
}

// SummaryConfig tunes the summarization path.
type SummaryConfig struct {
	// Format of the artifact: txt (default) or pdf.
	Format string `yaml:"format"`

	// ArtifactDir, when set, adds a file sink saving artifacts there.
	ArtifactDir string `yaml:"artifact_dir"`
}

// HistoryConfig controls the session-history store.
type HistoryConfig struct {
	// DBPath of the SQLite history database. Empty disables history.
	DBPath string `yaml:"db_path"`
}

// ServeConfig controls the HTTP API.
type ServeConfig struct {
	// Addr to listen on (e.g. "127.0.0.1:7333"). Empty disables the API.
	Addr string `yaml:"addr"`
}

// SinkConfig defines an output backend for progress and artifacts.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook | file
	URL  string `yaml:"url"`  // for webhook
	Dir  string `yaml:"dir"`  // for file
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values with production defaults.
func (c *Config) ApplyDefaults() {
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	if len(c.Browser.ResourceBlocking) == 0 {
		c.Browser.ResourceBlocking = []string{"images", "fonts", "media"}
	}
	if c.Upstream.Timeout <= 0 {
		c.Upstream.Timeout = 60 * time.Second
	}
	if c.Rewrite.PacingDelay == 0 {
		c.Rewrite.PacingDelay = 150 * time.Millisecond
	}
	if c.Rewrite.MaskDelay < 0 {
		c.Rewrite.MaskDelay = 0
	} else if c.Rewrite.MaskDelay == 0 {
		c.Rewrite.MaskDelay = 150 * time.Millisecond
	}
	if c.Summary.Format == "" {
		c.Summary.Format = "txt"
	}
}
