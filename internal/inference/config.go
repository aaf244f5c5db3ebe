package inference

import (
	"fmt"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/docket/pkg/envvar"
)

// Config holds local inference engine settings.
type Config struct {
	Enabled           bool     `toml:"enabled"`
	BaseURL           string   `toml:"base_url"`
	Model             string   `toml:"model"`
	KeepAlive         string   `toml:"keep_alive"`
	ContextChars      int      `toml:"context_chars"`
	MaxTokens         int      `toml:"max_tokens"`
	AllowMultiProcess bool     `toml:"allow_multi_process"`
	LeaseKey          string   `toml:"lease_key"`
	LeaseTTL          string   `toml:"lease_ttl"`
	RetryAttempts     int      `toml:"retry_attempts"`
	RetryDelay        string   `toml:"retry_delay"`
	Timeouts          Timeouts `toml:"timeouts"`
}

// Timeouts are per-operation call budgets. Segmentation works over the
// longest inputs and carries the largest budget.
type Timeouts struct {
	Segment     string `toml:"segment"`
	VerifyVotes string `toml:"verify_votes"`
	Summarize   string `toml:"summarize"`
}

// Env maps config fields to environment variable names.
type Env struct {
	Enabled           string
	BaseURL           string
	Model             string
	KeepAlive         string
	ContextChars      string
	MaxTokens         string
	AllowMultiProcess string
	LeaseKey          string
	LeaseTTL          string
	RetryAttempts     string
	RetryDelay        string
	TimeoutSegment    string
	TimeoutVotes      string
	TimeoutSummarize  string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Boolean switches only turn on.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.AllowMultiProcess {
		c.AllowMultiProcess = true
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.KeepAlive != "" {
		c.KeepAlive = overlay.KeepAlive
	}
	if overlay.ContextChars != 0 {
		c.ContextChars = overlay.ContextChars
	}
	if overlay.MaxTokens != 0 {
		c.MaxTokens = overlay.MaxTokens
	}
	if overlay.LeaseKey != "" {
		c.LeaseKey = overlay.LeaseKey
	}
	if overlay.LeaseTTL != "" {
		c.LeaseTTL = overlay.LeaseTTL
	}
	if overlay.RetryAttempts != 0 {
		c.RetryAttempts = overlay.RetryAttempts
	}
	if overlay.RetryDelay != "" {
		c.RetryDelay = overlay.RetryDelay
	}
	if overlay.Timeouts.Segment != "" {
		c.Timeouts.Segment = overlay.Timeouts.Segment
	}
	if overlay.Timeouts.VerifyVotes != "" {
		c.Timeouts.VerifyVotes = overlay.Timeouts.VerifyVotes
	}
	if overlay.Timeouts.Summarize != "" {
		c.Timeouts.Summarize = overlay.Timeouts.Summarize
	}
}

// Timeout returns the call budget for op.
func (c *Config) Timeout(op Operation) time.Duration {
	var raw string
	switch op {
	case OpSegment:
		raw = c.Timeouts.Segment
	case OpVerifyVotes:
		raw = c.Timeouts.VerifyVotes
	default:
		raw = c.Timeouts.Summarize
	}
	d, _ := time.ParseDuration(raw)
	return d
}

// AgentConfig builds the go-agents configuration for the engine's agent,
// filling unset fields from go-agents defaults.
func (c *Config) AgentConfig() gaconfig.AgentConfig {
	cfg := gaconfig.DefaultAgentConfig()
	cfg.Merge(&gaconfig.AgentConfig{
		Name: AgentName,
		Provider: &gaconfig.ProviderConfig{
			Name:    "ollama",
			BaseURL: c.BaseURL,
			Options: make(map[string]any),
		},
		Model: &gaconfig.ModelConfig{
			Name: c.Model,
		},
	})
	return cfg
}

// RetryDelayDuration returns RetryDelay as a time.Duration.
func (c *Config) RetryDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryDelay)
	return d
}

// LeaseTTLDuration returns LeaseTTL as a time.Duration.
func (c *Config) LeaseTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.LeaseTTL)
	return d
}

func (c *Config) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = "llama3.1:8b"
	}
	if c.KeepAlive == "" {
		c.KeepAlive = "-1"
	}
	if c.ContextChars == 0 {
		c.ContextChars = 12000
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.LeaseKey == "" {
		c.LeaseKey = "docket:engine:owner"
	}
	if c.LeaseTTL == "" {
		c.LeaseTTL = "30s"
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelay == "" {
		c.RetryDelay = "2s"
	}
	if c.Timeouts.Segment == "" {
		c.Timeouts.Segment = "5m"
	}
	if c.Timeouts.VerifyVotes == "" {
		c.Timeouts.VerifyVotes = "90s"
	}
	if c.Timeouts.Summarize == "" {
		c.Timeouts.Summarize = "2m"
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.Bool(&c.Enabled, env.Enabled)
	envvar.String(&c.BaseURL, env.BaseURL)
	envvar.String(&c.Model, env.Model)
	envvar.String(&c.KeepAlive, env.KeepAlive)
	envvar.Int(&c.ContextChars, env.ContextChars)
	envvar.Int(&c.MaxTokens, env.MaxTokens)
	envvar.Bool(&c.AllowMultiProcess, env.AllowMultiProcess)
	envvar.String(&c.LeaseKey, env.LeaseKey)
	envvar.String(&c.LeaseTTL, env.LeaseTTL)
	envvar.Int(&c.RetryAttempts, env.RetryAttempts)
	envvar.String(&c.RetryDelay, env.RetryDelay)
	envvar.String(&c.Timeouts.Segment, env.TimeoutSegment)
	envvar.String(&c.Timeouts.VerifyVotes, env.TimeoutVotes)
	envvar.String(&c.Timeouts.Summarize, env.TimeoutSummarize)
}

func (c *Config) validate() error {
	if c.ContextChars < 500 {
		return fmt.Errorf("context_chars must be at least 500, got %d", c.ContextChars)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be positive, got %d", c.RetryAttempts)
	}
	for name, raw := range map[string]string{
		"lease_ttl":             c.LeaseTTL,
		"retry_delay":           c.RetryDelay,
		"timeouts.segment":      c.Timeouts.Segment,
		"timeouts.verify_votes": c.Timeouts.VerifyVotes,
		"timeouts.summarize":    c.Timeouts.Summarize,
	} {
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	seg, votes, sum := c.Timeout(OpSegment), c.Timeout(OpVerifyVotes), c.Timeout(OpSummarize)
	if seg < votes || seg < sum {
		return fmt.Errorf("timeouts.segment (%s) must be the largest budget", seg)
	}
	return nil
}
