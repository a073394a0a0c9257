// Package config loads tada settings.
//
// Sources, lowest priority first:
//  1. Built-in defaults
//  2. The config file (~/.tada/config.toml unless --config is given)
//  3. Environment variables (TADA_*)
//  4. CLI flags, applied by the caller
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Makepad-fr/tada/internal/api"
)

// Default values.
const (
	DefaultUserID         = 1816
	DefaultTimeoutSeconds = 10
	DefaultLogLevel       = "warn"
	DefaultLogFormat      = "text"
	DefaultServeAddr      = "127.0.0.1:8080"

	dirName        = ".tada"
	configFileName = "config.toml"
)

// Config holds the full configuration.
type Config struct {
	APIURL         string `toml:"api_url"`
	UserID         int    `toml:"user_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogFile   string `toml:"log_file"`

	Serve ServeConfig `toml:"serve"`

	// Path is the config file that was read, if any.
	Path string `toml:"-"`
}

// ServeConfig configures `todo serve`.
type ServeConfig struct {
	Addr     string  `toml:"addr"`
	DB       string  `toml:"db"`
	FailRate float64 `toml:"fail_rate"`
	DelayMS  int     `toml:"delay_ms"`
}

// Defaults returns a Config with every default applied.
func Defaults() *Config {
	return &Config{
		APIURL:         api.DefaultBaseURL,
		UserID:         DefaultUserID,
		TimeoutSeconds: DefaultTimeoutSeconds,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
		Serve: ServeConfig{
			Addr: DefaultServeAddr,
			DB:   ":memory:",
		},
	}
}

// Dir returns ~/.tada.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// DefaultPath returns ~/.tada/config.toml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads defaults, then path (or the default path when empty), then the
// environment. A missing default file is not an error; a missing explicit
// path is.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !explicit && errors.Is(err, os.ErrNotExist) {
				path = ""
			} else {
				return nil, fmt.Errorf("loading config file %s: %w", path, err)
			}
		}
		cfg.Path = path
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("TADA_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("TADA_USER_ID"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("TADA_USER_ID: %w", err)
		}
		cfg.UserID = n
	}
	if v := os.Getenv("TADA_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("TADA_TIMEOUT_SECONDS: %w", err)
		}
		cfg.TimeoutSeconds = n
	}
	if v := os.Getenv("TADA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TADA_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("TADA_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	return nil
}

// Timeout is the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks the values a client needs.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url %q: must be an absolute http(s) URL", c.APIURL)
	}
	if c.UserID <= 0 {
		return fmt.Errorf("user_id must be positive, got %d", c.UserID)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative, got %d", c.TimeoutSeconds)
	}
	if c.Serve.FailRate < 0 || c.Serve.FailRate > 1 {
		return fmt.Errorf("serve.fail_rate must be within [0, 1], got %v", c.Serve.FailRate)
	}
	return nil
}
