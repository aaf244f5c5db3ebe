package config

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/docket/pkg/envvar"
)

const (
	EnvRedisURL         = "DOCKET_REDIS_URL"
	EnvRedisPingTimeout = "DOCKET_REDIS_PING_TIMEOUT"
)

// RedisConfig locates the Redis instance that holds cross-process leases.
// An empty URL disables Redis.
type RedisConfig struct {
	URL         string `toml:"url"`
	PingTimeout string `toml:"ping_timeout"`
}

func (c *RedisConfig) Enabled() bool {
	return c.URL != ""
}

func (c *RedisConfig) PingTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.PingTimeout)
	return d
}

// Options parses URL into client options.
func (c *RedisConfig) Options() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *RedisConfig) Finalize() error {
	if c.PingTimeout == "" {
		c.PingTimeout = "5s"
	}
	envvar.String(&c.URL, EnvRedisURL)
	envvar.String(&c.PingTimeout, EnvRedisPingTimeout)

	if _, err := time.ParseDuration(c.PingTimeout); err != nil {
		return fmt.Errorf("invalid ping_timeout: %w", err)
	}
	if c.Enabled() {
		if _, err := c.Options(); err != nil {
			return err
		}
	}
	return nil
}

func (c *RedisConfig) Merge(overlay *RedisConfig) {
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.PingTimeout != "" {
		c.PingTimeout = overlay.PingTimeout
	}
}
