package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JaimeStill/docket/pkg/lifecycle"
	"github.com/JaimeStill/docket/pkg/retry"
)

// Engine is the process-wide inference handle. Construct one per process
// and pass it to the stages that need it.
type Engine struct {
	backend Backend
	cfg     *Config
	logger  *slog.Logger
	policy  retry.Policy

	loaded atomic.Bool
	mu     sync.Mutex
	slot   chan struct{}
}

// NewEngine creates an unloaded engine over backend.
func NewEngine(cfg *Config, backend Backend, logger *slog.Logger) *Engine {
	return &Engine{
		backend: backend,
		cfg:     cfg,
		logger:  logger.With("system", "inference"),
		policy: retry.Policy{
			MaxAttempts: cfg.RetryAttempts,
			Delay:       cfg.RetryDelayDuration(),
		},
		slot: make(chan struct{}, 1),
	}
}

// Enabled reports whether generation is available.
func (e *Engine) Enabled() bool {
	return e != nil && e.cfg.Enabled
}

// ContextChars is the largest prompt context a stage should send.
func (e *Engine) ContextChars() int {
	return e.cfg.ContextChars
}

// Loaded reports whether the model has been loaded.
func (e *Engine) Loaded() bool {
	return e.loaded.Load()
}

// Load brings the model into memory exactly once. Concurrent first callers
// wait on the lock and observe the winner's load.
func (e *Engine) Load(ctx context.Context) error {
	if e.loaded.Load() {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded.Load() {
		return nil
	}

	start := time.Now()
	if err := e.backend.Load(ctx); err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	e.loaded.Store(true)

	e.logger.InfoContext(ctx, "model loaded", "model", e.cfg.Model, "duration", time.Since(start))
	return nil
}

// Generate runs req on the single execution slot. Each attempt is bounded by
// the operation's timeout; timeouts and transient backend failures are
// retried up to the configured limit.
func (e *Engine) Generate(ctx context.Context, req Request) (Response, error) {
	if !e.Enabled() {
		return Response{}, ErrDisabled
	}
	if err := e.Load(ctx); err != nil {
		return Response{}, err
	}

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	defer func() { <-e.slot }()

	if req.MaxTokens == 0 {
		req.MaxTokens = e.cfg.MaxTokens
	}
	timeout := e.cfg.Timeout(req.Operation)

	return retry.Do(ctx, e.policy, func(ctx context.Context, attempt int) (Response, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		resp, err := e.backend.Generate(callCtx, req)
		if err != nil {
			if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				err = retry.Transient(fmt.Errorf("%w: %s after %s", ErrTimeout, req.Operation, timeout))
			}
			e.logger.WarnContext(
				ctx, "generation attempt failed",
				"operation", req.Operation,
				"attempt", attempt,
				"transient", retry.IsTransient(err),
				"error", err,
			)
			return Response{}, err
		}

		if strings.TrimSpace(resp.Text) == "" {
			return Response{}, ErrEmptyResponse
		}

		if resp.Stats != nil {
			e.logger.InfoContext(
				ctx, "generation complete",
				"operation", req.Operation,
				"output_tokens", resp.Stats.OutputTokens,
				"duration", resp.Stats.Duration,
			)
		}
		return resp, nil
	})
}

// Start registers an unload hook for backends that support it.
func (e *Engine) Start(lc *lifecycle.Coordinator) {
	unloader, ok := e.backend.(Unloader)
	if !ok || !e.Enabled() {
		return
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if !e.loaded.Load() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := unloader.Unload(ctx); err != nil {
			e.logger.Warn("model unload failed", "error", err)
		}
	})
}
