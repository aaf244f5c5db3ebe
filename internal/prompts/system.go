package prompts

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/pagination"
)

type System interface {
	Handler() *Handler

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Prompt], error)
	Find(ctx context.Context, id uuid.UUID) (*Prompt, error)
	Create(ctx context.Context, cmd Command) (*Prompt, error)
	Update(ctx context.Context, id uuid.UUID, cmd Command) (*Prompt, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// SetActive makes id the stage's override, replacing any other, or
	// clears it so the stage falls back to its built-in instructions.
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*Prompt, error)

	Effective(ctx context.Context, stage Stage) (*Effective, error)
	Instructor
}
