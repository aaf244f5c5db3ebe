package tasks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Operation names a pipeline stage.
type Operation string

const (
	OpExtract          Operation = "extract"
	OpSegment          Operation = "segment"
	OpVerifyVotes      Operation = "verify_votes"
	OpSummarize        Operation = "summarize"
	OpRecomputeLineage Operation = "recompute_lineage"
)

// Operations lists every operation in pipeline order.
var Operations = []Operation{
	OpExtract,
	OpSegment,
	OpVerifyVotes,
	OpSummarize,
	OpRecomputeLineage,
}

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	for _, op := range Operations {
		if o == op {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Task is one unit of stage work against a target. The target is a
// document for every operation except recompute_lineage, which targets a
// place.
type Task struct {
	ID          uuid.UUID       `json:"id"`
	Operation   Operation       `json:"operation"`
	TargetID    uuid.UUID       `json:"target_id"`
	Force       bool            `json:"force"`
	Status      Status          `json:"status"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *string         `json:"error,omitempty"`
	Attempts    int             `json:"attempts"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Command requests a task.
type Command struct {
	Operation Operation `json:"operation"`
	TargetID  uuid.UUID `json:"target_id"`
	Force     bool      `json:"force"`
}
