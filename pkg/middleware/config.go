package middleware

import (
	"fmt"
	"slices"

	"github.com/JaimeStill/docket/pkg/envvar"
)

// CORSConfig is the cross-origin policy for browser clients of the API.
type CORSConfig struct {
	Enabled          bool     `toml:"enabled"`
	Origins          []string `toml:"origins"`
	AllowedMethods   []string `toml:"allowed_methods"`
	AllowedHeaders   []string `toml:"allowed_headers"`
	AllowCredentials bool     `toml:"allow_credentials"`
	MaxAge           int      `toml:"max_age"`
}

// CORSEnv names the environment variables that override CORSConfig.
type CORSEnv struct {
	Enabled          string
	Origins          string
	AllowedMethods   string
	AllowedHeaders   string
	AllowCredentials string
	MaxAge           string
}

var (
	defaultMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	defaultHeaders = []string{"Content-Type", "Authorization", RequestIDHeader}
)

func (c *CORSConfig) Finalize(env *CORSEnv) error {
	if env != nil {
		envvar.Bool(&c.Enabled, env.Enabled)
		envvar.List(&c.Origins, env.Origins)
		envvar.List(&c.AllowedMethods, env.AllowedMethods)
		envvar.List(&c.AllowedHeaders, env.AllowedHeaders)
		envvar.Bool(&c.AllowCredentials, env.AllowCredentials)
		envvar.Int(&c.MaxAge, env.MaxAge)
	}

	if len(c.AllowedMethods) == 0 {
		c.AllowedMethods = defaultMethods
	}
	if len(c.AllowedHeaders) == 0 {
		c.AllowedHeaders = defaultHeaders
	}
	if c.MaxAge == 0 {
		c.MaxAge = 3600
	}

	if c.MaxAge < 0 {
		return fmt.Errorf("cors max_age cannot be negative")
	}
	if c.AllowCredentials && slices.Contains(c.Origins, "*") {
		return fmt.Errorf("cors credentials cannot be combined with a wildcard origin")
	}
	return nil
}

// Merge takes the overlay's booleans unconditionally and its lists and
// max age when set.
func (c *CORSConfig) Merge(overlay *CORSConfig) {
	c.Enabled = overlay.Enabled
	c.AllowCredentials = overlay.AllowCredentials

	if overlay.Origins != nil {
		c.Origins = overlay.Origins
	}
	if overlay.AllowedMethods != nil {
		c.AllowedMethods = overlay.AllowedMethods
	}
	if overlay.AllowedHeaders != nil {
		c.AllowedHeaders = overlay.AllowedHeaders
	}
	if overlay.MaxAge != 0 {
		c.MaxAge = overlay.MaxAge
	}
}
