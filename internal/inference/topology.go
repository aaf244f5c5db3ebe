package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/docket/pkg/lease"
)

// CheckTopology refuses a deployment that would load the model in more than
// one worker process, unless the operator allowed it.
func CheckTopology(cfg *Config, processes int) error {
	if !cfg.Enabled || cfg.AllowMultiProcess || processes <= 1 {
		return nil
	}
	return fmt.Errorf(
		"%w: %d worker processes would each load %s; set engine.allow_multi_process to accept",
		ErrUnsafeTopology, processes, cfg.Model,
	)
}

// ClaimOwner takes the cross-process engine owner lease. It returns nil, nil
// when no Redis client is configured or the check does not apply.
func ClaimOwner(ctx context.Context, client redis.UniversalClient, cfg *Config) (*lease.Lease, error) {
	if client == nil || !cfg.Enabled || cfg.AllowMultiProcess {
		return nil, nil
	}

	l, err := lease.Acquire(ctx, client, cfg.LeaseKey, cfg.LeaseTTLDuration())
	if errors.Is(err, lease.ErrHeld) {
		return nil, fmt.Errorf("%w: engine lease %s is held by another process", ErrUnsafeTopology, cfg.LeaseKey)
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}
