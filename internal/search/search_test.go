package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/documents"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRecord(t *testing.T) {
	hash, stale := "h2", "h1"
	summary, filename := "Council approved the rezoning.", "minutes.pdf"
	lineageID := uuid.New()

	doc := &documents.Document{
		ID:          uuid.New(),
		PlaceID:     uuid.New(),
		MeetingID:   uuid.New(),
		Category:    documents.CategoryMinutes,
		RecordDate:  time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Filename:    &filename,
		ContentHash: &hash,
		Summary:     &summary,
		SummaryHash: &hash,
	}
	items := []agenda.Item{
		{ID: uuid.New(), Marker: "1", Title: "Oak Street rezoning", Outcome: agenda.OutcomePassed, LineageID: &lineageID},
		{ID: uuid.New(), Marker: "2", Title: "Library roof", Outcome: agenda.OutcomeUnknown},
	}

	rec := NewRecord(doc, items)

	if rec.ID != doc.ID.String() || rec.RecordDate != "2024-03-05" || rec.Category != "minutes" {
		t.Errorf("record: %+v", rec)
	}
	if rec.Summary != summary || rec.Filename != filename {
		t.Errorf("summary %q filename %q", rec.Summary, rec.Filename)
	}
	if len(rec.Items) != 2 || rec.Items[0].LineageID != lineageID.String() || rec.Items[1].LineageID != "" {
		t.Errorf("items: %+v", rec.Items)
	}

	doc.SummaryHash = &stale
	if rec := NewRecord(doc, nil); rec.Summary != "" || rec.Items == nil {
		t.Errorf("stale summary should be omitted and items non-nil: %+v", rec)
	}
}

func TestNewDisabledIsNoop(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	idx := New(cfg, testLogger())
	if _, ok := idx.(Noop); !ok {
		t.Fatalf("got %T, want Noop", idx)
	}
	if err := idx.Index(context.Background(), Record{ID: "x"}); err != nil {
		t.Errorf("Noop.Index: %v", err)
	}
}

type meiliServer struct {
	mu      sync.Mutex
	healthy bool
	paths   []string
	bodies  []string
}

func (s *meiliServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/health" {
		if !s.healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"message":"unavailable","code":"unavailable","type":"system","link":""}`))
			return
		}
		w.Write([]byte(`{"status":"available"}`))
		return
	}

	body, _ := io.ReadAll(r.Body)
	s.paths = append(s.paths, r.Method+" "+r.URL.Path)
	s.bodies = append(s.bodies, string(body))

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"taskUid":    1,
		"indexUid":   "docket_documents",
		"status":     "enqueued",
		"type":       "documentAdditionOrUpdate",
		"enqueuedAt": "2024-01-01T00:00:00Z",
	})
}

func newTestMeili(t *testing.T, srv *meiliServer) *Meili {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	cfg := &Config{URL: ts.URL}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return NewMeili(cfg, testLogger())
}

func TestMeiliIndex(t *testing.T) {
	srv := &meiliServer{healthy: true}
	m := newTestMeili(t, srv)

	m.check()
	if !m.Healthy() {
		t.Fatal("backend should be healthy")
	}

	id := uuid.New()
	if err := m.Index(context.Background(), Record{ID: id.String(), Items: []ItemRecord{}}); err != nil {
		t.Fatalf("Index: %v", err)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()

	var found bool
	for i, p := range srv.paths {
		if p == "POST /indexes/docket_documents/documents" {
			found = true
			if !strings.Contains(srv.bodies[i], id.String()) {
				t.Errorf("document body missing id: %s", srv.bodies[i])
			}
		}
	}
	if !found {
		t.Errorf("no document write, requests: %v", srv.paths)
	}
}

func TestMeiliUnavailableFailsSoft(t *testing.T) {
	srv := &meiliServer{}
	m := newTestMeili(t, srv)

	m.check()
	if m.Healthy() {
		t.Fatal("backend should be unhealthy")
	}

	err := m.Index(context.Background(), Record{ID: "x"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error: got %v, want ErrUnavailable", err)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.paths) != 0 {
		t.Errorf("unhealthy backend should not receive writes: %v", srv.paths)
	}
}
