package places

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/pagination"
)

// System defines the public contract for place and meeting operations.
type System interface {
	Handler() *Handler

	List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Place], error)
	Find(ctx context.Context, id uuid.UUID) (*Place, error)
	Create(ctx context.Context, cmd CreateCommand) (*Place, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Place, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Meetings(ctx context.Context, placeID uuid.UUID, page pagination.PageRequest) (*pagination.PageResult[Meeting], error)
	FindMeeting(ctx context.Context, id uuid.UUID) (*Meeting, error)
	UpsertMeeting(ctx context.Context, cmd MeetingCommand) (*Meeting, error)
}
