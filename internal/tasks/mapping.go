package tasks

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/pagination"
	"github.com/JaimeStill/docket/pkg/query"
	"github.com/JaimeStill/docket/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "tasks", "t").
	Project("id", "ID").
	Project("operation", "Operation").
	Project("target_id", "TargetID").
	Project("force", "Force").
	Project("status", "Status").
	Project("result", "Result").
	Project("error", "Error").
	Project("attempts", "Attempts").
	Project("created_at", "CreatedAt").
	Project("started_at", "StartedAt").
	Project("completed_at", "CompletedAt")

// returning lists the task columns in scanTask order for RETURNING clauses.
const returning = `id, operation, target_id, force, status, result, error,
	attempts, created_at, started_at, completed_at`

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for task queries.
type Filters struct {
	Operation *string    `json:"operation,omitempty"`
	Status    *string    `json:"status,omitempty"`
	TargetID  *uuid.UUID `json:"target_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Operation", f.Operation).
		WhereEquals("Status", f.Status).
		WhereEquals("TargetID", f.TargetID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	return Filters{
		Operation: pagination.String(values, "operation"),
		Status:    pagination.String(values, "status"),
		TargetID:  pagination.UUID(values, "target_id"),
	}
}

func scanTask(s repository.Scanner) (Task, error) {
	var (
		t      Task
		result []byte
	)
	err := s.Scan(
		&t.ID,
		&t.Operation,
		&t.TargetID,
		&t.Force,
		&t.Status,
		&result,
		&t.Error,
		&t.Attempts,
		&t.CreatedAt,
		&t.StartedAt,
		&t.CompletedAt,
	)
	t.Result = result
	return t, err
}
