// Package lease provides a Redis-backed exclusive ownership lease.
// A holder claims a key with SET NX PX and must renew it before the TTL
// lapses; renew and release only act when the stored token still matches.
package lease

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrHeld indicates another holder owns the lease.
	ErrHeld = errors.New("lease held by another owner")
	// ErrLost indicates the lease expired or was taken while held.
	ErrLost = errors.New("lease lost")
)

var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Lease is a claimed ownership key.
type Lease struct {
	client redis.UniversalClient
	key    string
	token  string
	ttl    time.Duration
}

// Acquire claims key for ttl. Returns ErrHeld when another owner holds it.
func Acquire(ctx context.Context, client redis.UniversalClient, key string, ttl time.Duration) (*Lease, error) {
	token := uuid.NewString()

	ok, err := client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	return &Lease{client: client, key: key, token: token, ttl: ttl}, nil
}

// Key returns the leased key.
func (l *Lease) Key() string { return l.key }

// Token returns the holder token stored at the key.
func (l *Lease) Token() string { return l.token }

// Renew extends the lease by its TTL. Returns ErrLost when the key no longer
// holds this lease's token.
func (l *Lease) Renew(ctx context.Context) error {
	n, err := renewScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("renew lease %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLost
	}
	return nil
}

// Release deletes the key if this lease still owns it.
func (l *Lease) Release(ctx context.Context) error {
	if _, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int(); err != nil {
		return fmt.Errorf("release lease %s: %w", l.key, err)
	}
	return nil
}

// Keep renews the lease every ttl/3 until ctx ends. onLost is called once if
// a renewal reports ErrLost, after which Keep returns.
func (l *Lease) Keep(ctx context.Context, logger *slog.Logger, onLost func()) {
	ticker := time.NewTicker(max(l.ttl/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := l.Renew(ctx)
			if errors.Is(err, ErrLost) {
				logger.Error("lease lost", "key", l.key)
				if onLost != nil {
					onLost()
				}
				return
			}
			if err != nil {
				logger.Warn("lease renewal failed", "key", l.key, "error", err)
			}
		}
	}
}
