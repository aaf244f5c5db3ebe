package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/pagination"
	"github.com/JaimeStill/docket/pkg/query"
	"github.com/JaimeStill/docket/pkg/repository"
)

// Store persists tasks. Every status change is a compare-and-set on the
// current status; a lost race returns ErrTransition.
type Store interface {
	// Submit returns the reusable task for cmd or inserts a new pending one.
	// The bool reports whether a task was created.
	Submit(ctx context.Context, cmd Command) (*Task, bool, error)
	Find(ctx context.Context, id uuid.UUID) (*Task, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Task], error)

	Start(ctx context.Context, id uuid.UUID) (*Task, error)
	Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error
	Fail(ctx context.Context, id uuid.UUID, reason string) error

	// Pending returns up to limit pending task ids, oldest first.
	Pending(ctx context.Context, limit int) ([]uuid.UUID, error)
	// Orphan fails every running task with reason.
	Orphan(ctx context.Context, reason string) (int64, error)
}

type repo struct {
	db         *sql.DB
	pagination pagination.Config
}

func (r *repo) Submit(ctx context.Context, cmd Command) (*Task, bool, error) {
	// Without force a complete task is reused. With force only an active
	// task is, since at most one may be pending or running per target.
	reusable := "status IN ('pending', 'running', 'complete')"
	if cmd.Force {
		reusable = "status IN ('pending', 'running')"
	}

	existing, err := r.latest(ctx, cmd, reusable)
	if err != nil || existing != nil {
		return existing, false, err
	}

	q := `
		INSERT INTO tasks(operation, target_id, force)
		VALUES ($1, $2, $3)
		ON CONFLICT (target_id, operation) WHERE status IN ('pending', 'running')
		DO NOTHING
		RETURNING ` + returning

	t, err := repository.QueryOne(ctx, r.db, q, []any{cmd.Operation, cmd.TargetID, cmd.Force}, scanTask)
	if errors.Is(err, sql.ErrNoRows) {
		// Another submitter inserted the active task between our read and
		// write.
		active, err := r.latest(ctx, cmd, "status IN ('pending', 'running')")
		if err != nil {
			return nil, false, err
		}
		if active == nil {
			return nil, false, fmt.Errorf("submit %s: %w", cmd.Operation, ErrTransition)
		}
		return active, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert task: %w", err)
	}
	return &t, true, nil
}

func (r *repo) latest(ctx context.Context, cmd Command, cond string) (*Task, error) {
	q := "SELECT " + returning + `
		FROM tasks
		WHERE target_id = $1 AND operation = $2 AND ` + cond + `
		ORDER BY created_at DESC
		LIMIT 1`

	t, err := repository.QueryOptional(ctx, r.db, q, []any{cmd.TargetID, cmd.Operation}, scanTask)
	if err != nil {
		return nil, fmt.Errorf("query existing task: %w", err)
	}
	return t, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Task, error) {
	stmt, args := query.NewBuilder(projection).BuildSingle("ID", id)

	t, err := repository.QueryOne(ctx, r.db, stmt, args, scanTask)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrTransition)
	}
	return &t, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Task], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	tasks, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanTask)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	result := pagination.NewPageResult(tasks, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Start(ctx context.Context, id uuid.UUID) (*Task, error) {
	q := `
		UPDATE tasks
		SET status = 'running', attempts = attempts + 1, started_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + returning

	t, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanTask)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransition
	}
	if err != nil {
		return nil, fmt.Errorf("start task: %w", err)
	}
	return &t, nil
}

func (r *repo) Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE tasks
		SET status = 'complete', result = $2, completed_at = NOW()
		WHERE id = $1 AND status = 'running'`,
		id, []byte(result),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTransition
	}
	return err
}

func (r *repo) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE tasks
		SET status = 'failed', error = $2, completed_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'running')`,
		id, reason,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTransition
	}
	return err
}

func (r *repo) Pending(ctx context.Context, limit int) ([]uuid.UUID, error) {
	ids, err := repository.QueryMany(ctx, r.db, `
		SELECT id FROM tasks
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1`,
		[]any{limit},
		func(s repository.Scanner) (uuid.UUID, error) {
			var id uuid.UUID
			err := s.Scan(&id)
			return id, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("query pending tasks: %w", err)
	}
	return ids, nil
}

func (r *repo) Orphan(ctx context.Context, reason string) (int64, error) {
	n, err := repository.ExecAffected(ctx, r.db, `
		UPDATE tasks
		SET status = 'failed', error = $1, completed_at = NOW()
		WHERE status = 'running'`,
		reason,
	)
	if err != nil {
		return 0, fmt.Errorf("orphan running tasks: %w", err)
	}
	return n, nil
}
