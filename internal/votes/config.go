package votes

import (
	"fmt"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/pkg/envvar"
)

// Config holds vote verification thresholds.
type Config struct {
	TitleThreshold  float64 `toml:"title_threshold"`
	ConfidenceFloor float64 `toml:"confidence_floor"`
	HighConfidence  float64 `toml:"high_confidence"`
	MinTextChars    int     `toml:"min_text_chars"`
	MaxLocalChars   int     `toml:"max_local_chars"`
	Source          string  `toml:"source"`
}

// Env maps config fields to environment variable names.
type Env struct {
	TitleThreshold  string
	ConfidenceFloor string
	HighConfidence  string
	MinTextChars    string
	MaxLocalChars   string
	Source          string
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
	if overlay.TitleThreshold != 0 {
		c.TitleThreshold = overlay.TitleThreshold
	}
	if overlay.ConfidenceFloor != 0 {
		c.ConfidenceFloor = overlay.ConfidenceFloor
	}
	if overlay.HighConfidence != 0 {
		c.HighConfidence = overlay.HighConfidence
	}
	if overlay.MinTextChars != 0 {
		c.MinTextChars = overlay.MinTextChars
	}
	if overlay.MaxLocalChars != 0 {
		c.MaxLocalChars = overlay.MaxLocalChars
	}
	if overlay.Source != "" {
		c.Source = overlay.Source
	}
}

// DefaultSource is the source pattern results are written under when a
// request does not name one.
func (c *Config) DefaultSource() agenda.Source {
	return agenda.Source(c.Source)
}

func (c *Config) loadDefaults() {
	if c.TitleThreshold == 0 {
		c.TitleThreshold = 0.85
	}
	if c.ConfidenceFloor == 0 {
		c.ConfidenceFloor = 0.6
	}
	if c.HighConfidence == 0 {
		c.HighConfidence = 0.9
	}
	if c.MinTextChars == 0 {
		c.MinTextChars = 40
	}
	if c.MaxLocalChars == 0 {
		c.MaxLocalChars = 6000
	}
	if c.Source == "" {
		c.Source = string(agenda.SourceLLMExtracted)
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.Float(&c.TitleThreshold, env.TitleThreshold)
	envvar.Float(&c.ConfidenceFloor, env.ConfidenceFloor)
	envvar.Float(&c.HighConfidence, env.HighConfidence)
	envvar.Int(&c.MinTextChars, env.MinTextChars)
	envvar.Int(&c.MaxLocalChars, env.MaxLocalChars)
	envvar.String(&c.Source, env.Source)
}

func (c *Config) validate() error {
	if c.TitleThreshold <= 0 || c.TitleThreshold > 1 {
		return fmt.Errorf("title_threshold must be in (0, 1], got %v", c.TitleThreshold)
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		return fmt.Errorf("confidence_floor must be in [0, 1], got %v", c.ConfidenceFloor)
	}
	if c.HighConfidence < c.ConfidenceFloor || c.HighConfidence > 1 {
		return fmt.Errorf("high_confidence must be in [confidence_floor, 1], got %v", c.HighConfidence)
	}
	if c.MaxLocalChars < c.MinTextChars {
		return fmt.Errorf("max_local_chars must be at least min_text_chars, got %d", c.MaxLocalChars)
	}
	if !agenda.Source(c.Source).Valid() {
		return fmt.Errorf("invalid source %q", c.Source)
	}
	return nil
}
