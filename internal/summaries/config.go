package summaries

import (
	"fmt"

	"github.com/JaimeStill/docket/pkg/envvar"
)

// Config holds the summary gates.
type Config struct {
	MinSignalChars int     `toml:"min_signal_chars"`
	MinGrounding   float64 `toml:"min_grounding"`
	MinTokenChars  int     `toml:"min_token_chars"`
}

// Env maps config fields to environment variable names.
type Env struct {
	MinSignalChars string
	MinGrounding   string
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
	if overlay.MinSignalChars != 0 {
		c.MinSignalChars = overlay.MinSignalChars
	}
	if overlay.MinGrounding != 0 {
		c.MinGrounding = overlay.MinGrounding
	}
	if overlay.MinTokenChars != 0 {
		c.MinTokenChars = overlay.MinTokenChars
	}
}

func (c *Config) loadDefaults() {
	if c.MinSignalChars == 0 {
		c.MinSignalChars = 400
	}
	if c.MinGrounding == 0 {
		c.MinGrounding = 0.5
	}
	if c.MinTokenChars == 0 {
		c.MinTokenChars = 4
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.Int(&c.MinSignalChars, env.MinSignalChars)
	envvar.Float(&c.MinGrounding, env.MinGrounding)
	envvar.Int(&c.MinTokenChars, env.MinTokenChars)
}

func (c *Config) validate() error {
	if c.MinSignalChars < 0 {
		return fmt.Errorf("min_signal_chars must not be negative, got %d", c.MinSignalChars)
	}
	if c.MinGrounding <= 0 || c.MinGrounding > 1 {
		return fmt.Errorf("min_grounding must be in (0, 1], got %v", c.MinGrounding)
	}
	if c.MinTokenChars < 1 {
		return fmt.Errorf("min_token_chars must be positive, got %d", c.MinTokenChars)
	}
	return nil
}
