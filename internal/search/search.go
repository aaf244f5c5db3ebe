// Package search publishes processed documents to an external search index.
// Indexing is fail-soft: an unavailable backend never fails a pipeline
// stage.
package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/documents"
	"github.com/JaimeStill/docket/pkg/lifecycle"
)

// ErrUnavailable is returned while the search backend is unreachable.
var ErrUnavailable = errors.New("search backend unavailable")

// Indexer is the narrow sink contract the pipeline writes to.
type Indexer interface {
	Index(ctx context.Context, rec Record) error
	Delete(ctx context.Context, documentID uuid.UUID) error
	Start(lc *lifecycle.Coordinator)
}

// Record is one searchable document with its agenda items.
type Record struct {
	ID         string       `json:"id"`
	PlaceID    string       `json:"place_id"`
	MeetingID  string       `json:"meeting_id"`
	Category   string       `json:"category"`
	RecordDate string       `json:"record_date"`
	Filename   string       `json:"filename,omitempty"`
	Summary    string       `json:"summary,omitempty"`
	Items      []ItemRecord `json:"items"`
}

// ItemRecord is the searchable part of an agenda item.
type ItemRecord struct {
	ID             string `json:"id"`
	Marker         string `json:"marker"`
	Title          string `json:"title"`
	Classification string `json:"classification,omitempty"`
	Outcome        string `json:"outcome"`
	LineageID      string `json:"lineage_id,omitempty"`
}

// NewRecord builds the index record for a document. Only a summary derived
// from the current text is included.
func NewRecord(d *documents.Document, items []agenda.Item) Record {
	rec := Record{
		ID:         d.ID.String(),
		PlaceID:    d.PlaceID.String(),
		MeetingID:  d.MeetingID.String(),
		Category:   string(d.Category),
		RecordDate: d.RecordDate.Format(time.DateOnly),
		Items:      make([]ItemRecord, 0, len(items)),
	}
	if d.Filename != nil {
		rec.Filename = *d.Filename
	}
	if d.Summary != nil && d.SummaryCurrent() {
		rec.Summary = *d.Summary
	}

	for _, it := range items {
		ir := ItemRecord{
			ID:             it.ID.String(),
			Marker:         it.Marker,
			Title:          it.Title,
			Classification: it.Classification,
			Outcome:        string(it.Outcome),
		}
		if it.LineageID != nil {
			ir.LineageID = it.LineageID.String()
		}
		rec.Items = append(rec.Items, ir)
	}
	return rec
}

// New returns a Meilisearch indexer when cfg names a backend and a no-op
// indexer otherwise.
func New(cfg *Config, logger *slog.Logger) Indexer {
	logger = logger.With("system", "search")
	if !cfg.Enabled() {
		logger.Info("search indexing disabled")
		return Noop{}
	}
	return NewMeili(cfg, logger)
}

// Noop discards every record.
type Noop struct{}

func (Noop) Index(context.Context, Record) error     { return nil }
func (Noop) Delete(context.Context, uuid.UUID) error { return nil }
func (Noop) Start(*lifecycle.Coordinator)            {}
