package tasks

import "context"

// StageFunc runs one stage for a task. The returned value is stored as the
// task result. A returned error fails the task.
type StageFunc func(ctx context.Context, t Task) (any, error)

// Stage binds a handler to an operation.
type Stage struct {
	Run StageFunc

	// Check validates a target at submit time. Nil accepts any target.
	Check func(ctx context.Context, cmd Command) error

	// Next is submitted for the same target when the stage completes and
	// chaining is enabled. Empty ends the chain.
	Next Operation
}

// Registry maps operations to their stages.
type Registry map[Operation]Stage
