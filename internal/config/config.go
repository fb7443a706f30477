package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/SmritiSatyan/garden/internal/log"
)

// Config holds user-wide settings loaded from ~/.garden/config.yaml.
type Config struct {
	LogLevel  string `yaml:"log_level,omitempty"`
	LogFormat string `yaml:"log_format,omitempty"`

	// Parallelism caps concurrent remote source updates. Zero means no cap.
	Parallelism int `yaml:"parallelism,omitempty"`
	// LaunchRate limits how many git processes start per second. Zero
	// disables pacing.
	LaunchRate float64 `yaml:"launch_rate,omitempty"`
}

// DefaultPath returns the default config file path: ~/.garden/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".garden", "config.yaml")
}

// Load reads a YAML config file from path. If the file does not exist,
// it returns an empty Config and no error. An empty or all-comment file
// also returns an empty Config with no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings that have a closed set of values.
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := log.GetLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	if c.LogFormat != "" {
		if _, err := log.GetFormat(c.LogFormat); err != nil {
			return fmt.Errorf("log_format: %w", err)
		}
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must not be negative")
	}
	if c.LaunchRate < 0 {
		return fmt.Errorf("launch_rate must not be negative")
	}
	return nil
}
