// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, redis) that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/docket/internal/config"
	"github.com/JaimeStill/docket/pkg/database"
	"github.com/JaimeStill/docket/pkg/lifecycle"
	"github.com/JaimeStill/docket/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// Redis is nil when no redis url is configured.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Redis     *redis.Client

	redisCfg *config.RedisConfig
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	infra := &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		redisCfg:  &cfg.Redis,
	}

	if cfg.Redis.Enabled() {
		opts, err := cfg.Redis.Options()
		if err != nil {
			return nil, fmt.Errorf("redis init failed: %w", err)
		}
		infra.Redis = redis.NewClient(opts)
	}

	return infra, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Redis must answer a ping during startup when configured.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}

	if i.Redis != nil {
		i.Lifecycle.OnStartup(func() error {
			ctx, cancel := context.WithTimeout(i.Lifecycle.Context(), i.redisCfg.PingTimeoutDuration())
			defer cancel()
			if err := i.Redis.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping: %w", err)
			}
			i.Logger.Info("redis connected", "addr", i.Redis.Options().Addr)
			return nil
		})
		i.Lifecycle.OnShutdown(func() {
			if err := i.Redis.Close(); err != nil {
				i.Logger.Warn("redis close", "error", err)
			}
		})
	}
	return nil
}
