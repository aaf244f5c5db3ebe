package tasks

import (
	"fmt"
	"time"

	"github.com/JaimeStill/docket/pkg/envvar"
)

// Config holds worker pool settings.
type Config struct {
	Processes     int    `toml:"processes"`
	Concurrency   int    `toml:"concurrency"`
	QueueSize     int    `toml:"queue_size"`
	SweepInterval string `toml:"sweep_interval"`
	Chain         bool   `toml:"chain"`
}

// Env maps config fields to environment variable names.
type Env struct {
	Processes     string
	Concurrency   string
	QueueSize     string
	SweepInterval string
	Chain         string
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
	if overlay.Processes != 0 {
		c.Processes = overlay.Processes
	}
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
	if overlay.QueueSize != 0 {
		c.QueueSize = overlay.QueueSize
	}
	if overlay.SweepInterval != "" {
		c.SweepInterval = overlay.SweepInterval
	}
	if overlay.Chain {
		c.Chain = true
	}
}

// SweepIntervalDuration returns SweepInterval as a time.Duration.
func (c *Config) SweepIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	return d
}

func (c *Config) loadDefaults() {
	if c.Processes == 0 {
		c.Processes = 1
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
	if c.QueueSize == 0 {
		c.QueueSize = 256
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.Int(&c.Processes, env.Processes)
	envvar.Int(&c.Concurrency, env.Concurrency)
	envvar.Int(&c.QueueSize, env.QueueSize)
	envvar.String(&c.SweepInterval, env.SweepInterval)
	envvar.Bool(&c.Chain, env.Chain)
}

func (c *Config) validate() error {
	if c.Processes < 1 {
		return fmt.Errorf("processes must be positive, got %d", c.Processes)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be positive, got %d", c.QueueSize)
	}
	if d, err := time.ParseDuration(c.SweepInterval); err != nil || d <= 0 {
		return fmt.Errorf("invalid sweep_interval %q", c.SweepInterval)
	}
	return nil
}
