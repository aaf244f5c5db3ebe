package inference_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/docket/internal/inference"
	"github.com/JaimeStill/docket/pkg/retry"
)

type fakeBackend struct {
	loads     atomic.Int32
	calls     atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
	loadDelay time.Duration
	genDelay  time.Duration
	fail      func(call int32) error
}

func (f *fakeBackend) Load(ctx context.Context) error {
	time.Sleep(f.loadDelay)
	f.loads.Add(1)
	return nil
}

func (f *fakeBackend) Generate(ctx context.Context, req inference.Request) (inference.Response, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	call := f.calls.Add(1)
	if f.fail != nil {
		if err := f.fail(call); err != nil {
			return inference.Response{}, err
		}
	}

	select {
	case <-time.After(f.genDelay):
	case <-ctx.Done():
		return inference.Response{}, ctx.Err()
	}
	return inference.Response{Text: "ok"}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *inference.Config {
	t.Helper()
	cfg := &inference.Config{
		Enabled:    true,
		RetryDelay: "1ms",
		Timeouts: inference.Timeouts{
			Segment:     "2s",
			VerifyVotes: "50ms",
			Summarize:   "1s",
		},
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return cfg
}

func TestConcurrentFirstAccessLoadsOnce(t *testing.T) {
	backend := &fakeBackend{loadDelay: 20 * time.Millisecond}
	engine := inference.NewEngine(testConfig(t), backend, discard())

	const callers = 16
	var wg sync.WaitGroup
	for range callers {
		wg.Go(func() {
			if _, err := engine.Generate(context.Background(), inference.Request{Operation: inference.OpSummarize}); err != nil {
				t.Errorf("generate: %v", err)
			}
		})
	}
	wg.Wait()

	if got := backend.loads.Load(); got != 1 {
		t.Errorf("loads = %d, want 1", got)
	}
	if !engine.Loaded() {
		t.Error("engine should report loaded")
	}
}

func TestGenerateSerializesOnSlot(t *testing.T) {
	backend := &fakeBackend{genDelay: 5 * time.Millisecond}
	engine := inference.NewEngine(testConfig(t), backend, discard())

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			engine.Generate(context.Background(), inference.Request{Operation: inference.OpSummarize})
		})
	}
	wg.Wait()

	if got := backend.maxActive.Load(); got != 1 {
		t.Errorf("max concurrent generations = %d, want 1", got)
	}
}

func TestGenerateRetriesTransient(t *testing.T) {
	backend := &fakeBackend{
		fail: func(call int32) error {
			if call < 3 {
				return retry.Transient(errors.New("connection refused"))
			}
			return nil
		},
	}
	engine := inference.NewEngine(testConfig(t), backend, discard())

	resp, err := engine.Generate(context.Background(), inference.Request{Operation: inference.OpSummarize})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.Stats != nil {
		t.Error("missing stats should stay nil")
	}
	if got := backend.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestGenerateFatalNotRetried(t *testing.T) {
	fatal := errors.New("bad request")
	backend := &fakeBackend{fail: func(int32) error { return fatal }}
	engine := inference.NewEngine(testConfig(t), backend, discard())

	_, err := engine.Generate(context.Background(), inference.Request{Operation: inference.OpSummarize})
	if !errors.Is(err, fatal) {
		t.Fatalf("error = %v, want %v", err, fatal)
	}
	if got := backend.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestGenerateTimeoutExhaustsRetries(t *testing.T) {
	backend := &fakeBackend{genDelay: time.Second}
	engine := inference.NewEngine(testConfig(t), backend, discard())

	_, err := engine.Generate(context.Background(), inference.Request{Operation: inference.OpVerifyVotes})
	if !errors.Is(err, retry.ErrExhausted) || !errors.Is(err, inference.ErrTimeout) {
		t.Fatalf("error = %v, want exhausted timeout", err)
	}
	if got := backend.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestGenerateDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Enabled = false
	backend := &fakeBackend{}
	engine := inference.NewEngine(cfg, backend, discard())

	if _, err := engine.Generate(context.Background(), inference.Request{}); !errors.Is(err, inference.ErrDisabled) {
		t.Errorf("error = %v, want ErrDisabled", err)
	}
	if backend.loads.Load() != 0 {
		t.Error("disabled engine must not load")
	}
}

func TestConfigSegmentBudgetLargest(t *testing.T) {
	cfg := &inference.Config{Timeouts: inference.Timeouts{Segment: "10s", Summarize: "1m"}}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("expected error when segment budget is not the largest")
	}
}
