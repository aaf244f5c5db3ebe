package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// OrphanReason is recorded on tasks left running by a process that exited.
const OrphanReason = "orphaned by restart"

type runner struct {
	cfg      *Config
	store    Store
	registry Registry
	queue    chan uuid.UUID
	logger   *slog.Logger
}

func newRunner(cfg *Config, store Store, registry Registry, logger *slog.Logger) *runner {
	return &runner{
		cfg:      cfg,
		store:    store,
		registry: registry,
		queue:    make(chan uuid.UUID, cfg.QueueSize),
		logger:   logger,
	}
}

// enqueue offers id to the workers. A full queue leaves the task pending
// for the next sweep.
func (r *runner) enqueue(id uuid.UUID) {
	select {
	case r.queue <- id:
	default:
		r.logger.Debug("task queue full, deferring to sweep", "task_id", id)
	}
}

// restore fails tasks a dead process left running and queues every pending
// task. Running tasks are only orphaned when this is the sole worker
// process; with several, a running task may belong to a live peer.
func (r *runner) restore(ctx context.Context) error {
	if r.cfg.Processes == 1 {
		n, err := r.store.Orphan(ctx, OrphanReason)
		if err != nil {
			return err
		}
		if n > 0 {
			r.logger.Warn("failed orphaned tasks", "count", n)
		}
	}
	return r.sweep(ctx)
}

// sweep fills free queue capacity with pending tasks.
func (r *runner) sweep(ctx context.Context) error {
	room := cap(r.queue) - len(r.queue)
	if room == 0 {
		return nil
	}

	ids, err := r.store.Pending(ctx, room)
	if err != nil {
		return err
	}
	for _, id := range ids {
		r.enqueue(id)
	}
	return nil
}

type submitFunc func(ctx context.Context, cmd Command) (*Task, error)

// run executes queued tasks on a bounded pool until ctx is cancelled, then
// waits for in-flight tasks.
func (r *runner) run(ctx context.Context, submit submitFunc) {
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)

	ticker := time.NewTicker(r.cfg.SweepIntervalDuration())
	defer ticker.Stop()

	r.logger.Info("task runner started", "concurrency", r.cfg.Concurrency, "queue_size", r.cfg.QueueSize)

	for {
		select {
		case <-ctx.Done():
			g.Wait()
			r.logger.Info("task runner stopped")
			return
		case id := <-r.queue:
			g.Go(func() error {
				r.execute(ctx, id, submit)
				return nil
			})
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("sweep pending tasks", "error", err)
			}
		}
	}
}

func (r *runner) execute(ctx context.Context, id uuid.UUID, submit submitFunc) {
	t, err := r.store.Start(ctx, id)
	if errors.Is(err, ErrTransition) {
		r.logger.Debug("task already claimed", "task_id", id)
		return
	}
	if err != nil {
		r.logger.Error("start task", "task_id", id, "error", err)
		return
	}

	logger := r.logger.With("task_id", t.ID, "operation", t.Operation, "target_id", t.TargetID)
	started := time.Now()

	stage, ok := r.registry[t.Operation]
	if !ok {
		r.fail(ctx, logger, t, ErrNoHandler)
		return
	}

	result, err := invoke(ctx, stage.Run, *t)
	if err != nil {
		r.fail(ctx, logger, t, err)
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		r.fail(ctx, logger, t, fmt.Errorf("encode result: %w", err))
		return
	}

	if err := r.store.Complete(context.WithoutCancel(ctx), t.ID, data); err != nil {
		logger.Error("complete task", "error", err)
		return
	}

	logger.InfoContext(ctx, "task complete", "attempt", t.Attempts, "duration", time.Since(started))

	if r.cfg.Chain && stage.Next != "" && ctx.Err() == nil {
		next := Command{Operation: stage.Next, TargetID: t.TargetID, Force: t.Force}
		if _, err := submit(ctx, next); err != nil {
			logger.Warn("chain follow-up", "next", stage.Next, "error", err)
		}
	}
}

func (r *runner) fail(ctx context.Context, logger *slog.Logger, t *Task, cause error) {
	logger.WarnContext(ctx, "task failed", "attempt", t.Attempts, "error", cause)
	if err := r.store.Fail(context.WithoutCancel(ctx), t.ID, cause.Error()); err != nil {
		logger.Error("record task failure", "error", err)
	}
}

func invoke(ctx context.Context, run StageFunc, t Task) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("stage panicked: %v", p)
		}
	}()
	return run(ctx, t)
}
