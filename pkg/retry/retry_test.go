package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JaimeStill/docket/pkg/retry"
)

var errUnreachable = errors.New("engine unreachable")

func TestDoSucceedsAfterTransient(t *testing.T) {
	calls := 0
	got, err := retry.Do(context.Background(), retry.Policy{MaxAttempts: 3}, func(ctx context.Context, attempt int) (string, error) {
		calls++
		if attempt < 3 {
			return "", retry.Transient(errUnreachable)
		}
		return "ok", nil
	})

	if err != nil || got != "ok" {
		t.Fatalf("got %q, %v", got, err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestDoStopsOnFatal(t *testing.T) {
	fatal := errors.New("malformed payload")
	calls := 0
	_, err := retry.Do(context.Background(), retry.Policy{MaxAttempts: 5}, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, fatal
	})

	if !errors.Is(err, fatal) {
		t.Errorf("got %v, want %v", err, fatal)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestDoExhausted(t *testing.T) {
	_, err := retry.Do(context.Background(), retry.Policy{MaxAttempts: 2}, func(ctx context.Context, attempt int) (int, error) {
		return 0, retry.Transient(errUnreachable)
	})

	if !errors.Is(err, retry.ErrExhausted) {
		t.Errorf("got %v, want ErrExhausted", err)
	}
	if !errors.Is(err, errUnreachable) {
		t.Errorf("cause not preserved: %v", err)
	}
}

func TestDoHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, err := retry.Do(ctx, retry.Policy{MaxAttempts: 5, Delay: time.Hour}, func(ctx context.Context, attempt int) (int, error) {
		cancel()
		return 0, retry.Transient(errUnreachable)
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestTransientNil(t *testing.T) {
	if retry.Transient(nil) != nil {
		t.Error("Transient(nil) should be nil")
	}
	if retry.IsTransient(errUnreachable) {
		t.Error("plain error reported transient")
	}
}
