package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "github-review-manager"

// Config holds the app configuration. Every field has a default; a
// missing config file is not an error.
type Config struct {
	RefreshInterval time.Duration `yaml:"-"`
	RawRefresh      string        `yaml:"refresh_interval"`
	DatabasePath    string        `yaml:"database_path"`
	CacheDir        string        `yaml:"cache_dir"`
	LogFile         string        `yaml:"log_file"`
	LogLevel        string        `yaml:"log_level"`
	// ExtraBots extends the built-in bot table used by categorization.
	ExtraBots []string `yaml:"extra_bots"`
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, appName, "config.yaml"), nil
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() error {
	if c.RawRefresh == "" {
		c.RawRefresh = "5m"
	}
	interval, err := time.ParseDuration(c.RawRefresh)
	if err != nil {
		return fmt.Errorf("failed to parse refresh_interval %q: %w", c.RawRefresh, err)
	}
	if interval < time.Minute {
		return fmt.Errorf("refresh_interval %q is below the 1m minimum", c.RawRefresh)
	}
	c.RefreshInterval = interval

	if c.DatabasePath == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("failed to get user config directory: %w", err)
		}
		c.DatabasePath = filepath.Join(configDir, appName, "state.db")
	}

	if c.CacheDir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("failed to get user cache directory: %w", err)
		}
		c.CacheDir = filepath.Join(cacheDir, appName)
	}

	if c.LogFile == "" {
		c.LogFile = filepath.Join(filepath.Dir(c.DatabasePath), "logs", appName+".log")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return nil
}
