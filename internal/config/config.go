// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "config/app.yaml"
	defaultCollection = "users"
	defaultChannel    = "dashprefs:theme"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type RemoteConfig struct {
	// BaseURL of the profile service. Empty means offline: nobody is signed in.
	BaseURL             string `yaml:"base_url"`
	Collection          string `yaml:"collection"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
	BreakerFailures     int    `yaml:"breaker_failures"`
	BreakerDelaySeconds int    `yaml:"breaker_delay_seconds"`
	// ResyncCron reloads the form from the profile on a schedule. Empty disables it.
	ResyncCron string `yaml:"resync_cron"`
	AuthToken  string `yaml:"-"` // Loaded from environment
}

type BroadcastConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	Channel       string `yaml:"channel"`
	RedisPassword string `yaml:"-"` // Loaded from environment
}

type RateLimitConfig struct {
	// TrustProxy reads the client address from X-Forwarded-For.
	TrustProxy            bool `yaml:"trust_proxy"`
	SessionMaxRejected    int  `yaml:"session_max_rejected"`
	SessionLockoutSeconds int  `yaml:"session_lockout_seconds"`
	WritesPerMinute       int  `yaml:"writes_per_minute"`
}

type Config struct {
	App struct {
		Name                   string `yaml:"name"`
		Environment            string `yaml:"environment"`
		Port                   int    `yaml:"port"`
		ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
		StaticDir              string `yaml:"static_dir"`
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	Remote    RemoteConfig    `yaml:"remote"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Features struct {
		EnableMetrics bool `yaml:"enable_metrics"`
		EnableDebug   bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML, applies defaults and environment secrets, and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg.applyDefaults()

	// Load sensitive values from environment
	cfg.Remote.AuthToken = os.Getenv("PROFILE_AUTH_TOKEN")
	cfg.Broadcast.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.ShutdownTimeoutSeconds == 0 {
		c.App.ShutdownTimeoutSeconds = 30
	}
	if c.App.StaticDir == "" {
		c.App.StaticDir = "build/bin/static"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Remote.Collection == "" {
		c.Remote.Collection = defaultCollection
	}
	if c.Remote.TimeoutSeconds == 0 {
		c.Remote.TimeoutSeconds = 10
	}
	if c.Remote.BreakerFailures == 0 {
		c.Remote.BreakerFailures = 5
	}
	if c.Remote.BreakerDelaySeconds == 0 {
		c.Remote.BreakerDelaySeconds = 30
	}
	if c.Broadcast.Channel == "" {
		c.Broadcast.Channel = defaultChannel
	}
	if c.RateLimit.SessionMaxRejected == 0 {
		c.RateLimit.SessionMaxRejected = 5
	}
	if c.RateLimit.SessionLockoutSeconds == 0 {
		c.RateLimit.SessionLockoutSeconds = 300
	}
	if c.RateLimit.WritesPerMinute == 0 {
		c.RateLimit.WritesPerMinute = 60
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Remote.BaseURL != "" {
		parsed, err := url.Parse(c.Remote.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("remote base_url must be an absolute URL: %q", c.Remote.BaseURL)
		}
	}
	if c.Remote.ResyncCron != "" {
		if _, err := cron.ParseStandard(c.Remote.ResyncCron); err != nil {
			return fmt.Errorf("remote resync_cron is invalid: %w", err)
		}
	}
	if c.Remote.TimeoutSeconds < 0 {
		return fmt.Errorf("remote timeout_seconds must not be negative")
	}
	if c.RateLimit.SessionMaxRejected < 0 || c.RateLimit.WritesPerMinute < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.App.ShutdownTimeoutSeconds) * time.Second
}

func (r RemoteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func (r RemoteConfig) BreakerDelay() time.Duration {
	return time.Duration(r.BreakerDelaySeconds) * time.Second
}

func (r RateLimitConfig) SessionLockout() time.Duration {
	return time.Duration(r.SessionLockoutSeconds) * time.Second
}

// Offline reports whether no profile service is configured.
func (r RemoteConfig) Offline() bool {
	return r.BaseURL == ""
}
