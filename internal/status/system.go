package status

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/documents"
)

// Documents finds documents.
type Documents interface {
	Find(ctx context.Context, id uuid.UUID) (*documents.Document, error)
}

// Items finds agenda items.
type Items interface {
	Find(ctx context.Context, id uuid.UUID) (*agenda.Item, error)
}

// Runs reports when lineage was last computed for a place.
type Runs interface {
	ComputedAt(ctx context.Context, placeID uuid.UUID) (*time.Time, error)
}

// System reads derived status.
type System interface {
	Handler() *Handler
	Document(ctx context.Context, id uuid.UUID) (*Document, error)
	Item(ctx context.Context, id uuid.UUID) (*Item, error)
}

type reader struct {
	docs    Documents
	items   Items
	lineage Runs
	logger  *slog.Logger
}

// New creates a status System.
func New(docs Documents, items Items, runs Runs, logger *slog.Logger) System {
	return &reader{
		docs:    docs,
		items:   items,
		lineage: runs,
		logger:  logger.With("system", "status"),
	}
}

func (r *reader) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *reader) Document(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, err := r.docs.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	st := ForDocument(d)
	return &st, nil
}

func (r *reader) Item(ctx context.Context, id uuid.UUID) (*Item, error) {
	it, err := r.items.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := r.docs.Find(ctx, it.DocumentID)
	if err != nil {
		return nil, err
	}
	computedAt, err := r.lineage.ComputedAt(ctx, d.PlaceID)
	if err != nil {
		return nil, err
	}
	st := ForItem(it, d, computedAt)
	return &st, nil
}
