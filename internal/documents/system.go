package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/ocr"
	"github.com/JaimeStill/docket/pkg/pagination"
)

// Dispatcher submits follow-up work for a document whose source arrived or
// changed.
type Dispatcher func(ctx context.Context, documentID uuid.UUID) error

// System defines the public contract for document domain operations.
type System interface {
	Handler(maxUploadSize int64, dispatch Dispatcher) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	Content(ctx context.Context, id uuid.UUID) (*Content, error)
	Intake(ctx context.Context, records []IntakeRecord) []IntakeResult
	Upload(ctx context.Context, id uuid.UUID, cmd UploadCommand) (*Document, error)
	Source(ctx context.Context, id uuid.UUID) ([]byte, error)
	Delete(ctx context.Context, id uuid.UUID) error

	SetText(ctx context.Context, id uuid.UUID, text, hash string, pages int) (*Document, error)
	SetExtractionError(ctx context.Context, id uuid.UUID, msg string) error
	SetAgendaFailed(ctx context.Context, id uuid.UUID, msg string) error
	SetSummary(ctx context.Context, id uuid.UUID, hash string, summary *string, status string) error

	SaveLayout(ctx context.Context, id uuid.UUID, layout *ocr.Layout) error
	Layout(ctx context.Context, id uuid.UUID) (*ocr.Layout, error)
}
