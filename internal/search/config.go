package search

import (
	"fmt"
	"time"

	"github.com/JaimeStill/docket/pkg/envvar"
)

// Config holds search sink settings. An empty URL disables indexing.
type Config struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	Index          string `toml:"index"`
	HealthInterval string `toml:"health_interval"`
}

// Env maps config fields to environment variable names.
type Env struct {
	URL            string
	APIKey         string
	Index          string
	HealthInterval string
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
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Index != "" {
		c.Index = overlay.Index
	}
	if overlay.HealthInterval != "" {
		c.HealthInterval = overlay.HealthInterval
	}
}

// Enabled reports whether a search backend is configured.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// HealthIntervalDuration returns HealthInterval as a time.Duration.
func (c *Config) HealthIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.HealthInterval)
	return d
}

func (c *Config) loadDefaults() {
	if c.Index == "" {
		c.Index = "docket_documents"
	}
	if c.HealthInterval == "" {
		c.HealthInterval = "10s"
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.String(&c.URL, env.URL)
	envvar.String(&c.APIKey, env.APIKey)
	envvar.String(&c.Index, env.Index)
	envvar.String(&c.HealthInterval, env.HealthInterval)
}

func (c *Config) validate() error {
	if d, err := time.ParseDuration(c.HealthInterval); err != nil || d <= 0 {
		return fmt.Errorf("invalid health_interval %q", c.HealthInterval)
	}
	return nil
}
