package ocr

import (
	"fmt"
	"time"

	"github.com/JaimeStill/docket/pkg/envvar"
)

const (
	ProviderLocal   = "local"
	ProviderService = "service"
)

// Config selects and tunes the text extractor.
type Config struct {
	Provider      string `toml:"provider"`
	URL           string `toml:"url"`
	Timeout       string `toml:"timeout"`
	Concurrency   int    `toml:"concurrency"`
	MaxPages      int    `toml:"max_pages"`
	RetryAttempts int    `toml:"retry_attempts"`
	RetryDelay    string `toml:"retry_delay"`
}

// Env maps config fields to environment variable names.
type Env struct {
	Provider      string
	URL           string
	Timeout       string
	Concurrency   string
	MaxPages      string
	RetryAttempts string
	RetryDelay    string
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
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
	if overlay.MaxPages != 0 {
		c.MaxPages = overlay.MaxPages
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
	if c.Provider == "" {
		c.Provider = ProviderLocal
	}
	if c.Timeout == "" {
		c.Timeout = "2m"
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
	if c.MaxPages == 0 {
		c.MaxPages = 500
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelay == "" {
		c.RetryDelay = "2s"
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.String(&c.Provider, env.Provider)
	envvar.String(&c.URL, env.URL)
	envvar.String(&c.Timeout, env.Timeout)
	envvar.Int(&c.Concurrency, env.Concurrency)
	envvar.Int(&c.MaxPages, env.MaxPages)
	envvar.Int(&c.RetryAttempts, env.RetryAttempts)
	envvar.String(&c.RetryDelay, env.RetryDelay)
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderLocal:
	case ProviderService:
		if c.URL == "" {
			return fmt.Errorf("url required for provider %q", c.Provider)
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.RetryDelay); err != nil {
		return fmt.Errorf("invalid retry_delay: %w", err)
	}
	return nil
}

// New builds the configured extractor.
func New(cfg *Config) Extractor {
	if cfg.Provider == ProviderService {
		return NewService(cfg)
	}
	return NewLocal(cfg)
}
