// Package workflow binds the pipeline stages to the task core. Each stage
// is a tasks.Stage keyed by operation; the task core owns scheduling,
// state transitions, and follow-up chaining.
package workflow

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/documents"
	"github.com/JaimeStill/docket/internal/lineage"
	"github.com/JaimeStill/docket/internal/ocr"
	"github.com/JaimeStill/docket/internal/places"
	"github.com/JaimeStill/docket/internal/search"
	"github.com/JaimeStill/docket/internal/segment"
	"github.com/JaimeStill/docket/internal/summaries"
	"github.com/JaimeStill/docket/internal/votes"
)

// Documents is the document surface the stages read and write.
type Documents interface {
	Find(ctx context.Context, id uuid.UUID) (*documents.Document, error)
	Content(ctx context.Context, id uuid.UUID) (*documents.Content, error)
	Source(ctx context.Context, id uuid.UUID) ([]byte, error)
	SetText(ctx context.Context, id uuid.UUID, text, hash string, pages int) (*documents.Document, error)
	SetExtractionError(ctx context.Context, id uuid.UUID, msg string) error
	SetAgendaFailed(ctx context.Context, id uuid.UUID, msg string) error
	SaveLayout(ctx context.Context, id uuid.UUID, layout *ocr.Layout) error
}

// Places resolves the place and meeting a document belongs to.
type Places interface {
	Find(ctx context.Context, id uuid.UUID) (*places.Place, error)
	FindMeeting(ctx context.Context, id uuid.UUID) (*places.Meeting, error)
}

// Items persists segmentation output and reads items back for indexing.
type Items interface {
	ForDocument(ctx context.Context, documentID uuid.UUID) ([]agenda.Item, error)
	ReplaceForDocument(ctx context.Context, documentID uuid.UUID, drafts []agenda.Draft, status, hash string) ([]agenda.Item, error)
}

// Segmenter resolves canonical text into agenda drafts.
// *segment.Resolver satisfies it.
type Segmenter interface {
	Resolve(ctx context.Context, in segment.Input) (segment.Result, error)
}

// Verifier runs vote verification. *votes.Extractor satisfies it.
type Verifier interface {
	Process(ctx context.Context, req votes.Request) (votes.Histogram, error)
}

// Summarizer generates document summaries. *summaries.Summarizer
// satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, documentID uuid.UUID, force bool) (*summaries.Outcome, error)
}

// Lineage recomputes cross-meeting groups for a place.
type Lineage interface {
	Recompute(ctx context.Context, placeID uuid.UUID) (*lineage.Snapshot, error)
}

// Runtime bundles the dependencies that stage handlers require.
// It is constructed by higher-level composition code from Infrastructure and Domain systems.
type Runtime struct {
	Documents  Documents
	Places     Places
	Items      Items
	Extractor  ocr.Extractor
	Segmenter  Segmenter
	Verifier   Verifier
	Summarizer Summarizer
	Lineage    Lineage
	Search     search.Indexer
	Logger     *slog.Logger
}
