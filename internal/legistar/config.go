package legistar

import (
	"fmt"
	"time"

	"github.com/JaimeStill/docket/pkg/envvar"
)

// Config holds external agenda API client settings.
type Config struct {
	BaseURL           string  `toml:"base_url"`
	Token             string  `toml:"token"`
	Timeout           string  `toml:"timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	RetryAttempts     int     `toml:"retry_attempts"`
	RetryDelay        string  `toml:"retry_delay"`
}

// Env maps config fields to environment variable names.
type Env struct {
	BaseURL           string
	Token             string
	Timeout           string
	RequestsPerSecond string
	Burst             string
	RetryAttempts     string
	RetryDelay        string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.RequestsPerSecond != 0 {
		c.RequestsPerSecond = overlay.RequestsPerSecond
	}
	if overlay.Burst != 0 {
		c.Burst = overlay.Burst
	}
	if overlay.RetryAttempts != 0 {
		c.RetryAttempts = overlay.RetryAttempts
	}
	if overlay.RetryDelay != "" {
		c.RetryDelay = overlay.RetryDelay
	}
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// RetryDelayDuration returns RetryDelay as a time.Duration.
func (c *Config) RetryDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryDelay)
	return d
}

func (c *Config) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://webapi.legistar.com/v1"
	}
	if c.Timeout == "" {
		c.Timeout = "15s"
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 2
	}
	if c.Burst == 0 {
		c.Burst = 4
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 2
	}
	if c.RetryDelay == "" {
		c.RetryDelay = "1s"
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.String(&c.BaseURL, env.BaseURL)
	envvar.String(&c.Token, env.Token)
	envvar.String(&c.Timeout, env.Timeout)
	envvar.Float(&c.RequestsPerSecond, env.RequestsPerSecond)
	envvar.Int(&c.Burst, env.Burst)
	envvar.Int(&c.RetryAttempts, env.RetryAttempts)
	envvar.String(&c.RetryDelay, env.RetryDelay)
}

func (c *Config) validate() error {
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive")
	}
	if c.Burst < 1 {
		return fmt.Errorf("burst must be positive")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.RetryDelay); err != nil {
		return fmt.Errorf("invalid retry_delay: %w", err)
	}
	return nil
}
