package agenda

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for agenda item operations.
type System interface {
	Handler() *Handler

	Find(ctx context.Context, id uuid.UUID) (*Item, error)
	ForDocument(ctx context.Context, documentID uuid.UUID) ([]Item, error)

	// ReplaceForDocument swaps a document's item set for drafts in one
	// transaction and records the agenda status and the content hash the
	// drafts were derived from. Returns ErrConflict when the document's
	// text changed since hash was read.
	ReplaceForDocument(ctx context.Context, documentID uuid.UUID, drafts []Draft, status, hash string) ([]Item, error)

	// ApplyOutcome writes result when observed still matches the stored
	// outcome source and the trust hierarchy permits the write. evidence is
	// appended in the same statement.
	ApplyOutcome(ctx context.Context, id uuid.UUID, observed *Source, result Result, evidence []Evidence) (*Item, error)
	AppendEvidence(ctx context.Context, id uuid.UUID, evidence []Evidence) error
	SetManualOutcome(ctx context.Context, id uuid.UUID, cmd OutcomeCommand) (*Item, error)
}
