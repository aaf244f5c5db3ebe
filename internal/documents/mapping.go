package documents

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/pagination"
	"github.com/JaimeStill/docket/pkg/query"
	"github.com/JaimeStill/docket/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("meeting_id", "MeetingID").
	Project("category", "Category").
	Project("url", "URL").
	Project("html_url", "HTMLURL").
	Project("storage_key", "StorageKey").
	Project("filename", "Filename").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("content_hash", "ContentHash").
	Project("extraction_status", "ExtractionStatus").
	Project("extraction_error", "ExtractionError").
	Project("agenda_status", "AgendaStatus").
	Project("agenda_hash", "AgendaHash").
	Project("agenda_error", "AgendaError").
	Project("summary", "Summary").
	Project("summary_status", "SummaryStatus").
	Project("summary_hash", "SummaryHash").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Join("public", "meetings", "m", "JOIN", "m.id = d.meeting_id").
	Project("place_id", "PlaceID").
	Project("record_date", "RecordDate")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. URL uses case-insensitive contains matching.
type Filters struct {
	PlaceID          *uuid.UUID `json:"place_id,omitempty"`
	MeetingID        *uuid.UUID `json:"meeting_id,omitempty"`
	Category         *string    `json:"category,omitempty"`
	ExtractionStatus *string    `json:"extraction_status,omitempty"`
	AgendaStatus     *string    `json:"agenda_status,omitempty"`
	SummaryStatus    *string    `json:"summary_status,omitempty"`
	URL              *string    `json:"url,omitempty"`
	From             *string    `json:"from,omitempty"`
	To               *string    `json:"to,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.
		WhereEquals("PlaceID", f.PlaceID).
		WhereEquals("MeetingID", f.MeetingID).
		WhereEquals("Category", f.Category).
		WhereEquals("ExtractionStatus", f.ExtractionStatus).
		WhereEquals("AgendaStatus", f.AgendaStatus).
		WhereEquals("SummaryStatus", f.SummaryStatus).
		WhereContains("URL", f.URL)

	var from, to any
	if f.From != nil {
		from = *f.From
	}
	if f.To != nil {
		to = *f.To
	}
	return b.WhereRange("RecordDate", from, to)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Unparseable ids are ignored.
func FiltersFromQuery(values url.Values) Filters {
	return Filters{
		PlaceID:          pagination.UUID(values, "place_id"),
		MeetingID:        pagination.UUID(values, "meeting_id"),
		Category:         pagination.String(values, "category"),
		ExtractionStatus: pagination.String(values, "extraction_status"),
		AgendaStatus:     pagination.String(values, "agenda_status"),
		SummaryStatus:    pagination.String(values, "summary_status"),
		URL:              pagination.String(values, "url"),
		From:             pagination.String(values, "from"),
		To:               pagination.String(values, "to"),
	}
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.MeetingID,
		&d.Category,
		&d.URL,
		&d.HTMLURL,
		&d.StorageKey,
		&d.Filename,
		&d.ContentType,
		&d.SizeBytes,
		&d.PageCount,
		&d.ContentHash,
		&d.ExtractionStatus,
		&d.ExtractionError,
		&d.AgendaStatus,
		&d.AgendaHash,
		&d.AgendaError,
		&d.Summary,
		&d.SummaryStatus,
		&d.SummaryHash,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.PlaceID,
		&d.RecordDate,
	)
	return d, err
}
