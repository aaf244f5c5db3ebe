// Package documents implements the document domain: intake of meeting
// records, source file storage, canonical text, and the derived-field
// status columns the pipeline stages maintain.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// Category distinguishes agendas from minutes.
type Category string

const (
	CategoryAgenda  Category = "agenda"
	CategoryMinutes Category = "minutes"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryAgenda || c == CategoryMinutes
}

// Extraction statuses.
const (
	NotExtracted = "not_extracted"
	Extracted    = "extracted"
	Stale        = "stale"
)

// Agenda statuses.
const (
	AgendaNotSegmented = "not_segmented"
	AgendaSegmented    = "segmented"
	AgendaEmpty        = "empty"
	AgendaFailed       = "failed"
)

// Summary statuses as stored. Staleness is derived from SummaryHash.
const (
	SummaryNotGenerated      = "not_generated_yet"
	SummaryExtracted         = "extracted"
	SummaryBlockedLowSignal  = "blocked_low_signal"
	SummaryBlockedUngrounded = "blocked_ungrounded"
	SummaryFailed            = "failed"
)

// Document is one source artifact for one meeting. Canonical text is not
// carried here; read it with System.Content.
type Document struct {
	ID               uuid.UUID `json:"id"`
	MeetingID        uuid.UUID `json:"meeting_id"`
	Category         Category  `json:"category"`
	URL              string    `json:"url"`
	HTMLURL          *string   `json:"html_url"`
	StorageKey       *string   `json:"storage_key"`
	Filename         *string   `json:"filename"`
	ContentType      *string   `json:"content_type"`
	SizeBytes        *int64    `json:"size_bytes"`
	PageCount        *int      `json:"page_count"`
	ContentHash      *string   `json:"content_hash"`
	ExtractionStatus string    `json:"extraction_status"`
	ExtractionError  *string   `json:"extraction_error"`
	AgendaStatus     string    `json:"agenda_status"`
	AgendaHash       *string   `json:"agenda_hash"`
	AgendaError      *string   `json:"agenda_error"`
	Summary          *string   `json:"summary"`
	SummaryStatus    string    `json:"summary_status"`
	SummaryHash      *string   `json:"summary_hash"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	PlaceID          uuid.UUID `json:"place_id"`
	RecordDate       time.Time `json:"record_date"`
}

// Hash returns the content hash or "" when the document has no text.
func (d *Document) Hash() string {
	if d.ContentHash == nil {
		return ""
	}
	return *d.ContentHash
}

// AgendaCurrent reports whether the agenda was derived from the current text.
func (d *Document) AgendaCurrent() bool {
	return d.AgendaHash != nil && d.ContentHash != nil && *d.AgendaHash == *d.ContentHash
}

// SummaryCurrent reports whether the summary was derived from the current text.
func (d *Document) SummaryCurrent() bool {
	return d.SummaryHash != nil && d.ContentHash != nil && *d.SummaryHash == *d.ContentHash
}

// Content is a document's canonical text.
type Content struct {
	DocumentID uuid.UUID `json:"document_id"`
	Text       string    `json:"text"`
	Hash       string    `json:"hash"`
}

// IntakeRecord is one validated crawl record. Dates and URLs are trusted as
// given.
type IntakeRecord struct {
	PlaceID           uuid.UUID `json:"place_id"`
	MeetingExternalID *string   `json:"meeting_external_id"`
	MeetingName       string    `json:"meeting_name"`
	RecordDate        string    `json:"record_date"`
	Category          Category  `json:"category"`
	URL               string    `json:"url"`
	HTMLURL           *string   `json:"html_url"`
}

// IntakeResult reports the outcome of one intake record. On failure Error
// describes the problem and Document is nil.
type IntakeResult struct {
	Index    int       `json:"index"`
	Document *Document `json:"document,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// UploadCommand attaches source bytes to an existing document.
type UploadCommand struct {
	Data        []byte
	Filename    string
	ContentType string
	PageCount   *int
}
