package segment

import (
	"fmt"
	"time"

	"github.com/JaimeStill/docket/internal/places"
	"github.com/JaimeStill/docket/pkg/envvar"
)

// Config holds segmentation quality thresholds at balanced mode, plus
// limits for the HTML and inference strategies.
type Config struct {
	MinTitleChars    int     `toml:"min_title_chars"`
	MinAlphaDensity  float64 `toml:"min_alpha_density"`
	MaxArtifactRatio float64 `toml:"max_artifact_ratio"`
	DedupeThreshold  float64 `toml:"dedupe_threshold"`
	MaxTextChars     int     `toml:"max_text_chars"`
	TailChars        int     `toml:"tail_chars"`
	HTMLTimeout      string  `toml:"html_timeout"`
	HTMLMaxBytes     int64   `toml:"html_max_bytes"`
}

// Env maps config fields to environment variable names.
type Env struct {
	MinTitleChars    string
	MinAlphaDensity  string
	MaxArtifactRatio string
	DedupeThreshold  string
	MaxTextChars     string
	TailChars        string
	HTMLTimeout      string
	HTMLMaxBytes     string
}

// Thresholds are the quality controls in effect for one resolve.
type Thresholds struct {
	MinTitleChars    int
	MinAlphaDensity  float64
	MaxArtifactRatio float64
	DedupeThreshold  float64
}

var multipliers = map[places.Mode]float64{
	places.ModeBalanced:   1.0,
	places.ModeAggressive: 1.25,
	places.ModeRecall:     0.6,
}

// Thresholds scales the balanced thresholds for mode. Aggressive rejects
// and dedupes more; recall keeps more. Unknown modes resolve as balanced.
func (c *Config) Thresholds(mode places.Mode) Thresholds {
	m, ok := multipliers[mode]
	if !ok {
		m = 1
	}

	return Thresholds{
		MinTitleChars:    max(1, int(float64(c.MinTitleChars)*m+0.5)),
		MinAlphaDensity:  min(0.95, c.MinAlphaDensity*m),
		MaxArtifactRatio: min(1, c.MaxArtifactRatio/m),
		DedupeThreshold:  max(0.5, min(1, 1-(1-c.DedupeThreshold)*m)),
	}
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
	if overlay.MinTitleChars != 0 {
		c.MinTitleChars = overlay.MinTitleChars
	}
	if overlay.MinAlphaDensity != 0 {
		c.MinAlphaDensity = overlay.MinAlphaDensity
	}
	if overlay.MaxArtifactRatio != 0 {
		c.MaxArtifactRatio = overlay.MaxArtifactRatio
	}
	if overlay.DedupeThreshold != 0 {
		c.DedupeThreshold = overlay.DedupeThreshold
	}
	if overlay.MaxTextChars != 0 {
		c.MaxTextChars = overlay.MaxTextChars
	}
	if overlay.TailChars != 0 {
		c.TailChars = overlay.TailChars
	}
	if overlay.HTMLTimeout != "" {
		c.HTMLTimeout = overlay.HTMLTimeout
	}
	if overlay.HTMLMaxBytes != 0 {
		c.HTMLMaxBytes = overlay.HTMLMaxBytes
	}
}

// HTMLTimeoutDuration returns HTMLTimeout as a time.Duration.
func (c *Config) HTMLTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.HTMLTimeout)
	return d
}

func (c *Config) loadDefaults() {
	if c.MinTitleChars == 0 {
		c.MinTitleChars = 8
	}
	if c.MinAlphaDensity == 0 {
		c.MinAlphaDensity = 0.5
	}
	if c.MaxArtifactRatio == 0 {
		c.MaxArtifactRatio = 0.3
	}
	if c.DedupeThreshold == 0 {
		c.DedupeThreshold = 0.9
	}
	if c.MaxTextChars == 0 {
		c.MaxTextChars = 120000
	}
	if c.TailChars == 0 {
		c.TailChars = 4000
	}
	if c.HTMLTimeout == "" {
		c.HTMLTimeout = "20s"
	}
	if c.HTMLMaxBytes == 0 {
		c.HTMLMaxBytes = 8 << 20
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.Int(&c.MinTitleChars, env.MinTitleChars)
	envvar.Float(&c.MinAlphaDensity, env.MinAlphaDensity)
	envvar.Float(&c.MaxArtifactRatio, env.MaxArtifactRatio)
	envvar.Float(&c.DedupeThreshold, env.DedupeThreshold)
	envvar.Int(&c.MaxTextChars, env.MaxTextChars)
	envvar.Int(&c.TailChars, env.TailChars)
	envvar.String(&c.HTMLTimeout, env.HTMLTimeout)
	if env.HTMLMaxBytes != "" {
		var n int
		envvar.Int(&n, env.HTMLMaxBytes)
		if n > 0 {
			c.HTMLMaxBytes = int64(n)
		}
	}
}

func (c *Config) validate() error {
	if c.MinTitleChars < 1 {
		return fmt.Errorf("min_title_chars must be positive, got %d", c.MinTitleChars)
	}
	if c.MinAlphaDensity <= 0 || c.MinAlphaDensity >= 1 {
		return fmt.Errorf("min_alpha_density must be in (0, 1), got %v", c.MinAlphaDensity)
	}
	if c.DedupeThreshold <= 0.5 || c.DedupeThreshold > 1 {
		return fmt.Errorf("dedupe_threshold must be in (0.5, 1], got %v", c.DedupeThreshold)
	}
	if c.MaxTextChars < 1000 {
		return fmt.Errorf("max_text_chars must be at least 1000, got %d", c.MaxTextChars)
	}
	if _, err := time.ParseDuration(c.HTMLTimeout); err != nil {
		return fmt.Errorf("invalid html_timeout: %w", err)
	}
	return nil
}
