package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/lifecycle"
	"github.com/JaimeStill/docket/pkg/pagination"
)

// System defines the public contract for task submission and execution.
//
// Clients treat both a failed task and a polling or transport error as
// terminal. A task never reports running once it has reached a final state.
type System interface {
	Handler() *Handler

	// Submit is idempotent by target and operation: an existing pending,
	// running, or complete task is returned unless cmd.Force is set. A
	// forced submit still returns an active task rather than running a
	// second copy alongside it.
	Submit(ctx context.Context, cmd Command) (*Task, error)
	Poll(ctx context.Context, id uuid.UUID) (*Task, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Task], error)

	// Start registers orphan recovery as a startup hook and runs the worker
	// pool until the coordinator shuts down.
	Start(lc *lifecycle.Coordinator)
}

type system struct {
	*runner
	pagination pagination.Config
}

// New creates a task System backed by PostgreSQL.
func New(
	cfg *Config,
	db *sql.DB,
	registry Registry,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return newSystem(cfg, &repo{db: db, pagination: pagination}, registry, logger, pagination)
}

func newSystem(
	cfg *Config,
	store Store,
	registry Registry,
	logger *slog.Logger,
	pagination pagination.Config,
) *system {
	return &system{
		runner:     newRunner(cfg, store, registry, logger.With("system", "tasks")),
		pagination: pagination,
	}
}

func (s *system) Handler() *Handler {
	return NewHandler(s, s.logger, s.pagination)
}

func (s *system) Submit(ctx context.Context, cmd Command) (*Task, error) {
	if !cmd.Operation.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperation, cmd.Operation)
	}
	if cmd.TargetID == uuid.Nil {
		return nil, fmt.Errorf("%w: target_id is required", ErrInvalidTarget)
	}
	stage, ok := s.registry[cmd.Operation]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, cmd.Operation)
	}
	if stage.Check != nil {
		if err := stage.Check(ctx, cmd); err != nil {
			return nil, err
		}
	}

	t, created, err := s.store.Submit(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.InfoContext(ctx, "task submitted",
			"task_id", t.ID,
			"operation", t.Operation,
			"target_id", t.TargetID,
			"force", t.Force,
		)
		s.enqueue(t.ID)
	}
	return t, nil
}

func (s *system) Poll(ctx context.Context, id uuid.UUID) (*Task, error) {
	return s.store.Find(ctx, id)
}

func (s *system) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Task], error) {
	return s.store.List(ctx, page, filters)
}

func (s *system) Start(lc *lifecycle.Coordinator) {
	lc.OnStartup(func() error {
		return s.restore(lc.Context())
	})
	lc.Go(func(ctx context.Context) {
		s.run(ctx, s.Submit)
	})
}
