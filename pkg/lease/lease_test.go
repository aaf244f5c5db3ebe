package lease_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/docket/pkg/lease"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	opts, err := redis.ParseURL("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	return client, s
}

func TestAcquireExclusive(t *testing.T) {
	client, _ := setupRedis(t)
	ctx := context.Background()

	first, err := lease.Acquire(ctx, client, "docket:engine", time.Minute)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	if _, err := lease.Acquire(ctx, client, "docket:engine", time.Minute); !errors.Is(err, lease.ErrHeld) {
		t.Fatalf("second acquire: got %v, want ErrHeld", err)
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	if _, err := lease.Acquire(ctx, client, "docket:engine", time.Minute); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestRenewAfterExpiryIsLost(t *testing.T) {
	client, s := setupRedis(t)
	ctx := context.Background()

	l, err := lease.Acquire(ctx, client, "docket:engine", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := l.Renew(ctx); err != nil {
		t.Fatalf("renew: %v", err)
	}

	s.FastForward(2 * time.Second)

	if err := l.Renew(ctx); !errors.Is(err, lease.ErrLost) {
		t.Errorf("renew after expiry: got %v, want ErrLost", err)
	}
}

func TestReleaseDoesNotDeleteOtherOwner(t *testing.T) {
	client, s := setupRedis(t)
	ctx := context.Background()

	stale, err := lease.Acquire(ctx, client, "docket:engine", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	s.FastForward(2 * time.Second)

	current, err := lease.Acquire(ctx, client, "docket:engine", time.Minute)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}

	if err := stale.Release(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}

	got, err := s.Get("docket:engine")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != current.Token() {
		t.Error("stale release removed the current owner's lease")
	}
}

func TestKeepReportsLoss(t *testing.T) {
	client, s := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	l, err := lease.Acquire(ctx, client, "docket:engine", 30*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	s.Del("docket:engine")

	lost := make(chan struct{})
	go l.Keep(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), func() { close(lost) })

	select {
	case <-lost:
	case <-ctx.Done():
		t.Fatal("Keep did not report lease loss")
	}
}
