// Package config is the single explicit configuration surface. Every
// recognized option lives on Config with a documented default; loading
// validates at construction so bad configuration fails before any
// processing begins.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gzhole/agentwatch/internal/detect"
)

const (
	DefaultConfigDir = ".agentwatch"
	DefaultAuditFile = "warnings.jsonl"
)

type Config struct {
	// Mode selects the detector set: health, security, or all.
	Mode string `yaml:"mode"`

	Buffer     BufferConfig      `yaml:"buffer"`
	Thresholds detect.Thresholds `yaml:"thresholds"`
	Dedup      DedupConfig       `yaml:"dedup"`
	Enrichment EnrichmentConfig  `yaml:"enrichment"`
	Log        LogConfig         `yaml:"log"`

	// MaxRate caps evaluation passes per second in watch mode. 0 disables
	// throttling.
	MaxRate float64 `yaml:"max_rate"`
}

type BufferConfig struct {
	// Capacity is the action-count bound. Default 500.
	Capacity int `yaml:"capacity"`
	// Span is the optional wall-clock bound. 0 disables it.
	Span Duration `yaml:"span"`
}

type DedupConfig struct {
	// Cooldown re-arms a fired signal after the duration elapses. 0 keeps
	// the fire-once-per-session default.
	Cooldown Duration `yaml:"cooldown"`
}

type EnrichmentConfig struct {
	// Enabled turns on the semantic second opinion. Requires
	// ANTHROPIC_API_KEY in the environment.
	Enabled bool `yaml:"enabled"`
	// Model overrides the provider default.
	Model string `yaml:"model"`
	// Timeout bounds each enrichment call. Default 10s.
	Timeout Duration `yaml:"timeout"`
}

type LogConfig struct {
	// Level is the diagnostic log level. Default info.
	Level string `yaml:"level"`
	// File adds a rotating JSON diagnostic log.
	File string `yaml:"file"`
	// AuditFile is the warning audit trail. Empty uses the per-user
	// default location; "off" disables it.
	AuditFile string `yaml:"audit_file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Mode:       string(detect.ModeAll),
		Buffer:     BufferConfig{Capacity: 500},
		Thresholds: detect.DefaultThresholds(),
		Log:        LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path, layered over defaults. An empty path
// tries the per-user default location and falls back to pure defaults when
// no file exists there.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, cfg.Validate()
		}
		path = filepath.Join(home, DefaultConfigDir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configuration the engine cannot run with.
func (c *Config) Validate() error {
	switch detect.Mode(c.Mode) {
	case detect.ModeHealth, detect.ModeSecurity, detect.ModeAll:
	default:
		return &detect.ConfigurationError{Field: "mode", Reason: fmt.Sprintf("unrecognized mode %q", c.Mode)}
	}
	if c.Buffer.Capacity <= 0 {
		return &detect.ConfigurationError{Field: "buffer.capacity", Reason: "must be positive"}
	}
	if c.Buffer.Span < 0 {
		return &detect.ConfigurationError{Field: "buffer.span", Reason: "must be non-negative"}
	}
	if c.Dedup.Cooldown < 0 {
		return &detect.ConfigurationError{Field: "dedup.cooldown", Reason: "must be non-negative"}
	}
	if c.MaxRate < 0 {
		return &detect.ConfigurationError{Field: "max_rate", Reason: "must be non-negative"}
	}
	// Threshold values are defaulted and validated by registry construction,
	// where zero means "use the default".
	return nil
}

// EnsureConfigDir creates the per-user directory, returning its path.
func EnsureConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, DefaultConfigDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
