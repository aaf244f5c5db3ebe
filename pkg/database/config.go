package database

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/docket/pkg/envvar"
)

var sslModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Config describes the Postgres connection and pool. Durations are Go
// duration strings so they read naturally in TOML and env vars.
type Config struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Name            string `toml:"name"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	SSLMode         string `toml:"ssl_mode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
	ConnTimeout     string `toml:"conn_timeout"`
}

// Env names the environment variable for each Config field.
type Env struct {
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    string
	MaxIdleConns    string
	ConnMaxLifetime string
	ConnTimeout     string
}

func (c *Config) ConnMaxLifetimeDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnMaxLifetime)
	return d
}

func (c *Config) ConnTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnTimeout)
	return d
}

// Dsn is the libpq key/value form. Values are quoted so passwords with
// spaces or quotes survive.
func (c *Config) Dsn() string {
	pairs := []struct{ k, v string }{
		{"host", c.Host},
		{"port", strconv.Itoa(c.Port)},
		{"dbname", c.Name},
		{"user", c.User},
		{"password", c.Password},
		{"sslmode", c.SSLMode},
		{"connect_timeout", strconv.Itoa(int(c.ConnTimeoutDuration().Seconds()))},
	}

	quote := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.k+"='"+quote.Replace(p.v)+"'")
	}
	return strings.Join(parts, " ")
}

// URL is the postgres:// form golang-migrate expects.
func (c *Config) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Finalize fills defaults, applies env overrides when env is non-nil and
// validates the result.
func (c *Config) Finalize(env *Env) error {
	setDefault(&c.Host, "localhost")
	setDefault(&c.Port, 5432)
	setDefault(&c.SSLMode, "disable")
	setDefault(&c.MaxOpenConns, 25)
	setDefault(&c.MaxIdleConns, 5)
	setDefault(&c.ConnMaxLifetime, "15m")
	setDefault(&c.ConnTimeout, "5s")

	if env != nil {
		envvar.String(&c.Host, env.Host)
		envvar.Int(&c.Port, env.Port)
		envvar.String(&c.Name, env.Name)
		envvar.String(&c.User, env.User)
		envvar.String(&c.Password, env.Password)
		envvar.String(&c.SSLMode, env.SSLMode)
		envvar.Int(&c.MaxOpenConns, env.MaxOpenConns)
		envvar.Int(&c.MaxIdleConns, env.MaxIdleConns)
		envvar.String(&c.ConnMaxLifetime, env.ConnMaxLifetime)
		envvar.String(&c.ConnTimeout, env.ConnTimeout)
	}

	switch {
	case c.Name == "":
		return fmt.Errorf("name required")
	case c.User == "":
		return fmt.Errorf("user required")
	case !slices.Contains(sslModes, c.SSLMode):
		return fmt.Errorf("invalid ssl_mode %q", c.SSLMode)
	case c.MaxIdleConns > c.MaxOpenConns:
		return fmt.Errorf("max_idle_conns (%d) exceeds max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	if _, err := time.ParseDuration(c.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid conn_max_lifetime: %w", err)
	}
	if d, err := time.ParseDuration(c.ConnTimeout); err != nil || d < time.Second {
		return fmt.Errorf("invalid conn_timeout %q: must be at least 1s", c.ConnTimeout)
	}
	return nil
}

// Merge takes every field the overlay sets.
func (c *Config) Merge(overlay *Config) {
	merge(&c.Host, overlay.Host)
	merge(&c.Port, overlay.Port)
	merge(&c.Name, overlay.Name)
	merge(&c.User, overlay.User)
	merge(&c.Password, overlay.Password)
	merge(&c.SSLMode, overlay.SSLMode)
	merge(&c.MaxOpenConns, overlay.MaxOpenConns)
	merge(&c.MaxIdleConns, overlay.MaxIdleConns)
	merge(&c.ConnMaxLifetime, overlay.ConnMaxLifetime)
	merge(&c.ConnTimeout, overlay.ConnTimeout)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

func merge[T comparable](field *T, overlay T) {
	var zero T
	if overlay != zero {
		*field = overlay
	}
}
