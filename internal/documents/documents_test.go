package documents

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/uuid"
)

func TestDocumentCurrency(t *testing.T) {
	h1, h2 := "aaa", "bbb"
	tests := []struct {
		name    string
		doc     Document
		agenda  bool
		summary bool
	}{
		{"no text", Document{}, false, false},
		{"fresh", Document{ContentHash: &h1, AgendaHash: &h1, SummaryHash: &h1}, true, true},
		{"text changed", Document{ContentHash: &h2, AgendaHash: &h1, SummaryHash: &h1}, false, false},
		{"never derived", Document{ContentHash: &h1}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.doc.AgendaCurrent(); got != tt.agenda {
				t.Errorf("AgendaCurrent() = %v, want %v", got, tt.agenda)
			}
			if got := tt.doc.SummaryCurrent(); got != tt.summary {
				t.Errorf("SummaryCurrent() = %v, want %v", got, tt.summary)
			}
		})
	}
}

func TestParseRecordDate(t *testing.T) {
	if _, err := parseRecordDate("2024-03-05"); err != nil {
		t.Errorf("date only: %v", err)
	}
	if _, err := parseRecordDate("2024-03-05T18:00:00Z"); err != nil {
		t.Errorf("rfc3339: %v", err)
	}
	if _, err := parseRecordDate("March 5"); !errors.Is(err, ErrInvalidIntake) {
		t.Errorf("bad date error = %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"agenda.pdf":          "agenda.pdf",
		"../../etc/passwd":    "passwd",
		"":                    "document",
		"layout.json":         "document",
		"council minutes.pdf": "council%20minutes.pdf",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFilenameFromURL(t *testing.T) {
	if got := filenameFromURL("https://city.gov/files/agenda-2024-03.pdf?v=2"); got != "agenda-2024-03.pdf" {
		t.Errorf("got %q", got)
	}
	if got := filenameFromURL("https://city.gov/"); got != "document.pdf" {
		t.Errorf("got %q", got)
	}
}

func TestDetectContentType(t *testing.T) {
	if got := detectContentType("application/pdf; charset=binary", nil); got != "application/pdf" {
		t.Errorf("got %q", got)
	}
	if got := detectContentType("", []byte("%PDF-1.7\n")); got != "application/pdf" {
		t.Errorf("sniffed %q", got)
	}
}

func TestFiltersFromQuery(t *testing.T) {
	place := uuid.New()
	f := FiltersFromQuery(url.Values{
		"place_id":      {place.String()},
		"meeting_id":    {"not-a-uuid"},
		"category":      {"minutes"},
		"agenda_status": {"empty"},
	})

	if f.PlaceID == nil || *f.PlaceID != place {
		t.Errorf("PlaceID = %v", f.PlaceID)
	}
	if f.MeetingID != nil {
		t.Error("invalid meeting_id should be ignored")
	}
	if f.Category == nil || *f.Category != "minutes" {
		t.Errorf("Category = %v", f.Category)
	}
	if f.AgendaStatus == nil || *f.AgendaStatus != "empty" {
		t.Errorf("AgendaStatus = %v", f.AgendaStatus)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{ErrInvalidIntake, http.StatusBadRequest},
		{ErrNoText, http.StatusConflict},
		{ErrNoSource, http.StatusBadGateway},
		{errors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
