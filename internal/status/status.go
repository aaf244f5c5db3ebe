// Package status derives the per-field state of documents and agenda items
// from their stored status columns and content hashes.
package status

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/documents"
)

// Value is a derived field state.
type Value string

const (
	Extracted         Value = "extracted"
	Stale             Value = "stale"
	NotGenerated      Value = "not_generated_yet"
	BlockedLowSignal  Value = "blocked_low_signal"
	BlockedUngrounded Value = "blocked_ungrounded"
	Failed            Value = "failed"
	Empty             Value = "empty"
)

// Document is the derived state of a document's text, agenda, and summary.
type Document struct {
	DocumentID uuid.UUID `json:"document_id"`
	Text       Value     `json:"text"`
	Agenda     Value     `json:"agenda"`
	Summary    Value     `json:"summary"`
}

// Item is the derived state of an agenda item's votes and lineage.
type Item struct {
	ItemID     uuid.UUID `json:"item_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Votes      Value     `json:"votes"`
	Lineage    Value     `json:"lineage"`
}

// ForDocument derives a document's field states.
func ForDocument(d *documents.Document) Document {
	return Document{
		DocumentID: d.ID,
		Text:       text(d),
		Agenda:     agendaValue(d),
		Summary:    summary(d),
	}
}

func text(d *documents.Document) Value {
	switch d.ExtractionStatus {
	case documents.Extracted:
		return Extracted
	case documents.Stale:
		return Stale
	}
	if d.ExtractionError != nil {
		return Failed
	}
	return NotGenerated
}

func agendaValue(d *documents.Document) Value {
	switch d.AgendaStatus {
	case documents.AgendaNotSegmented:
		return NotGenerated
	case documents.AgendaFailed:
		return Failed
	}
	if !d.AgendaCurrent() {
		return Stale
	}
	if d.AgendaStatus == documents.AgendaEmpty {
		return Empty
	}
	return Extracted
}

func summary(d *documents.Document) Value {
	if d.SummaryStatus == "" || d.SummaryStatus == documents.SummaryNotGenerated {
		return NotGenerated
	}
	if !d.SummaryCurrent() {
		return Stale
	}
	return Value(d.SummaryStatus)
}

// ForItem derives an item's field states. computedAt is the place's last
// lineage run, nil when none has happened. An unlinked item that existed at
// that run reads as empty rather than not generated.
func ForItem(it *agenda.Item, d *documents.Document, computedAt *time.Time) Item {
	st := Item{ItemID: it.ID, DocumentID: it.DocumentID}
	computed := computedAt != nil && !computedAt.Before(it.CreatedAt)
	current := d.AgendaCurrent()

	switch {
	case it.OutcomeSource != nil:
		st.Votes = Extracted
	case len(it.Evidence) > 0:
		st.Votes = Empty
	default:
		st.Votes = NotGenerated
	}
	if st.Votes != NotGenerated && !current {
		st.Votes = Stale
	}

	switch {
	case it.LineageID != nil && !current:
		st.Lineage = Stale
	case it.LineageID != nil:
		st.Lineage = Extracted
	case computed:
		st.Lineage = Empty
	default:
		st.Lineage = NotGenerated
	}
	return st
}
