package lineage

import (
	"fmt"

	"github.com/JaimeStill/docket/pkg/envvar"
)

// Config holds lineage edge and confidence thresholds.
type Config struct {
	EdgeThreshold  float64 `toml:"edge_threshold"`
	MinConfidence  float64 `toml:"min_confidence"`
	DateWindowDays int     `toml:"date_window_days"`
	MinTokenChars  int     `toml:"min_token_chars"`
}

// Env maps config fields to environment variable names.
type Env struct {
	EdgeThreshold  string
	MinConfidence  string
	DateWindowDays string
	MinTokenChars  string
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
	if overlay.EdgeThreshold != 0 {
		c.EdgeThreshold = overlay.EdgeThreshold
	}
	if overlay.MinConfidence != 0 {
		c.MinConfidence = overlay.MinConfidence
	}
	if overlay.DateWindowDays != 0 {
		c.DateWindowDays = overlay.DateWindowDays
	}
	if overlay.MinTokenChars != 0 {
		c.MinTokenChars = overlay.MinTokenChars
	}
}

func (c *Config) loadDefaults() {
	if c.EdgeThreshold == 0 {
		c.EdgeThreshold = 0.82
	}
	if c.MinConfidence == 0 {
		c.MinConfidence = 0.88
	}
	if c.MinTokenChars == 0 {
		c.MinTokenChars = 4
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.Float(&c.EdgeThreshold, env.EdgeThreshold)
	envvar.Float(&c.MinConfidence, env.MinConfidence)
	envvar.Int(&c.DateWindowDays, env.DateWindowDays)
	envvar.Int(&c.MinTokenChars, env.MinTokenChars)
}

func (c *Config) validate() error {
	if c.EdgeThreshold <= 0 || c.EdgeThreshold > 1 {
		return fmt.Errorf("edge_threshold must be in (0, 1], got %v", c.EdgeThreshold)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0, 1], got %v", c.MinConfidence)
	}
	if c.DateWindowDays < 0 {
		return fmt.Errorf("date_window_days must not be negative, got %d", c.DateWindowDays)
	}
	if c.MinTokenChars < 1 {
		return fmt.Errorf("min_token_chars must be positive, got %d", c.MinTokenChars)
	}
	return nil
}
