package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/documents"
	"github.com/JaimeStill/docket/internal/lineage"
	"github.com/JaimeStill/docket/internal/normalize"
	"github.com/JaimeStill/docket/internal/ocr"
	"github.com/JaimeStill/docket/internal/places"
	"github.com/JaimeStill/docket/internal/search"
	"github.com/JaimeStill/docket/internal/segment"
	"github.com/JaimeStill/docket/internal/summaries"
	"github.com/JaimeStill/docket/internal/tasks"
	"github.com/JaimeStill/docket/internal/votes"
	"github.com/JaimeStill/docket/pkg/lifecycle"
)

type fakeDocs struct {
	docs       map[uuid.UUID]*documents.Document
	text       map[uuid.UUID]string
	source     []byte
	sourceErr  error
	layouts    int
	extractErr string
	agendaErr  string
}

func newFakeDocs(docs ...*documents.Document) *fakeDocs {
	f := &fakeDocs{
		docs:   make(map[uuid.UUID]*documents.Document),
		text:   make(map[uuid.UUID]string),
		source: []byte("%PDF"),
	}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *fakeDocs) Find(_ context.Context, id uuid.UUID) (*documents.Document, error) {
	d, ok := f.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDocs) Content(_ context.Context, id uuid.UUID) (*documents.Content, error) {
	text, ok := f.text[id]
	if !ok {
		return nil, documents.ErrNoText
	}
	return &documents.Content{DocumentID: id, Text: text, Hash: f.docs[id].Hash()}, nil
}

func (f *fakeDocs) Source(context.Context, uuid.UUID) ([]byte, error) {
	return f.source, f.sourceErr
}

func (f *fakeDocs) SetText(_ context.Context, id uuid.UUID, text, hash string, pages int) (*documents.Document, error) {
	d := f.docs[id]
	f.text[id] = text
	d.ContentHash = &hash
	d.PageCount = &pages
	d.ExtractionStatus = documents.Extracted
	d.ExtractionError = nil
	return d, nil
}

func (f *fakeDocs) SetExtractionError(_ context.Context, _ uuid.UUID, msg string) error {
	f.extractErr = msg
	return nil
}

func (f *fakeDocs) SetAgendaFailed(_ context.Context, id uuid.UUID, msg string) error {
	f.agendaErr = msg
	f.docs[id].AgendaStatus = documents.AgendaFailed
	return nil
}

func (f *fakeDocs) SaveLayout(context.Context, uuid.UUID, *ocr.Layout) error {
	f.layouts++
	return nil
}

type fakePlaces struct {
	place   *places.Place
	meeting *places.Meeting
}

func (f *fakePlaces) Find(_ context.Context, id uuid.UUID) (*places.Place, error) {
	if f.place == nil || f.place.ID != id {
		return nil, places.ErrNotFound
	}
	return f.place, nil
}

func (f *fakePlaces) FindMeeting(_ context.Context, id uuid.UUID) (*places.Meeting, error) {
	if f.meeting == nil || f.meeting.ID != id {
		return nil, places.ErrMeetingNotFound
	}
	return f.meeting, nil
}

type fakeItems struct {
	docs     *fakeDocs
	replaced int
	items    []agenda.Item
}

func (f *fakeItems) ForDocument(context.Context, uuid.UUID) ([]agenda.Item, error) {
	return f.items, nil
}

func (f *fakeItems) ReplaceForDocument(_ context.Context, id uuid.UUID, drafts []agenda.Draft, status, hash string) ([]agenda.Item, error) {
	d := f.docs.docs[id]
	if d.Hash() != hash {
		return nil, agenda.ErrConflict
	}
	f.replaced++
	d.AgendaStatus = status
	d.AgendaHash = &hash
	f.items = f.items[:0]
	for _, dr := range drafts {
		f.items = append(f.items, agenda.Item{ID: uuid.New(), DocumentID: id, Title: dr.Title, Marker: dr.Marker})
	}
	return f.items, nil
}

type fakeExtractor struct {
	out *ocr.Output
	err error
}

func (f *fakeExtractor) Name() string { return "fake" }

func (f *fakeExtractor) Extract(context.Context, []byte) (*ocr.Output, error) {
	return f.out, f.err
}

type fakeSegmenter struct {
	result segment.Result
	err    error
	input  segment.Input
	calls  int
}

func (f *fakeSegmenter) Resolve(_ context.Context, in segment.Input) (segment.Result, error) {
	f.calls++
	f.input = in
	return f.result, f.err
}

type fakeVerifier struct{ req votes.Request }

func (f *fakeVerifier) Process(_ context.Context, req votes.Request) (votes.Histogram, error) {
	f.req = req
	return votes.Histogram{Processed: 2, Updated: 1, Skipped: map[string]int{}}, nil
}

type fakeSummarizer struct{ force bool }

func (f *fakeSummarizer) Summarize(_ context.Context, id uuid.UUID, force bool) (*summaries.Outcome, error) {
	f.force = force
	return &summaries.Outcome{DocumentID: id, Status: documents.SummaryExtracted}, nil
}

type fakeLineage struct{ err error }

func (f *fakeLineage) Recompute(_ context.Context, placeID uuid.UUID) (*lineage.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &lineage.Snapshot{
		PlaceID: placeID,
		Groups: []lineage.Group{
			{Members: make([]lineage.Member, 3), LowConfidence: true},
		},
	}, nil
}

type fakeIndexer struct{ records []search.Record }

func (f *fakeIndexer) Index(_ context.Context, rec search.Record) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeIndexer) Delete(context.Context, uuid.UUID) error { return nil }
func (f *fakeIndexer) Start(*lifecycle.Coordinator)            {}

type fixture struct {
	doc       *documents.Document
	docs      *fakeDocs
	places    *fakePlaces
	items     *fakeItems
	extractor *fakeExtractor
	segmenter *fakeSegmenter
	verifier  *fakeVerifier
	summaries *fakeSummarizer
	lineage   *fakeLineage
	index     *fakeIndexer
	registry  tasks.Registry
}

func newFixture() *fixture {
	place := &places.Place{ID: uuid.New(), Name: "Springfield", SegmentationMode: places.ModeBalanced}
	meeting := &places.Meeting{ID: uuid.New(), PlaceID: place.ID, Name: "City Council"}
	doc := &documents.Document{
		ID:               uuid.New(),
		MeetingID:        meeting.ID,
		PlaceID:          place.ID,
		Category:         documents.CategoryMinutes,
		ExtractionStatus: documents.NotExtracted,
		AgendaStatus:     documents.AgendaNotSegmented,
	}

	f := &fixture{
		doc:    doc,
		docs:   newFakeDocs(doc),
		places: &fakePlaces{place: place, meeting: meeting},
		extractor: &fakeExtractor{out: &ocr.Output{
			Text:   "CITY COUNCIL MINUTES\n\n1. Call to order\f2. Rezoning of 450 Oak Street\nPage 2 of 2",
			Pages:  2,
			Layout: &ocr.Layout{Pages: []ocr.PageLayout{{Number: 1}}},
		}},
		segmenter: &fakeSegmenter{result: segment.Result{
			Drafts: []agenda.Draft{{Order: 1, Marker: "2", Title: "Rezoning of 450 Oak Street", Source: agenda.SourceLLMExtracted}},
			Items:  1,
			Source: segment.StrategyInference,
			Status: documents.AgendaSegmented,
		}},
		verifier:  &fakeVerifier{},
		summaries: &fakeSummarizer{},
		lineage:   &fakeLineage{},
		index:     &fakeIndexer{},
	}
	f.items = &fakeItems{docs: f.docs}

	f.registry = Stages(&Runtime{
		Documents:  f.docs,
		Places:     f.places,
		Items:      f.items,
		Extractor:  f.extractor,
		Segmenter:  f.segmenter,
		Verifier:   f.verifier,
		Summarizer: f.summaries,
		Lineage:    f.lineage,
		Search:     f.index,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func (f *fixture) run(t *testing.T, op tasks.Operation, target uuid.UUID, force bool) (any, error) {
	t.Helper()
	stage, ok := f.registry[op]
	if !ok {
		t.Fatalf("no stage for %s", op)
	}
	return stage.Run(context.Background(), tasks.Task{
		ID:        uuid.New(),
		Operation: op,
		TargetID:  target,
		Force:     force,
		Status:    tasks.StatusRunning,
	})
}

func TestStagesCoverEveryOperation(t *testing.T) {
	f := newFixture()

	for _, op := range tasks.Operations {
		if _, ok := f.registry[op]; !ok {
			t.Errorf("missing stage for %s", op)
		}
	}

	chain := []tasks.Operation{tasks.OpExtract}
	for next := f.registry[tasks.OpExtract].Next; next != ""; next = f.registry[next].Next {
		chain = append(chain, next)
	}
	want := []tasks.Operation{tasks.OpExtract, tasks.OpSegment, tasks.OpVerifyVotes}
	if len(chain) != len(want) {
		t.Fatalf("chain: got %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Fatalf("chain: got %v, want %v", chain, want)
		}
	}
}

func TestCheckRejectsUnknownTargets(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []struct {
		name string
		op   tasks.Operation
		id   uuid.UUID
		want error
	}{
		{"known document", tasks.OpSegment, f.doc.ID, nil},
		{"unknown document", tasks.OpExtract, uuid.New(), tasks.ErrInvalidTarget},
		{"known place", tasks.OpRecomputeLineage, f.places.place.ID, nil},
		{"document id as place", tasks.OpRecomputeLineage, f.doc.ID, tasks.ErrInvalidTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.registry[tt.op].Check(ctx, tasks.Command{Operation: tt.op, TargetID: tt.id})
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExtractStoresCanonicalText(t *testing.T) {
	f := newFixture()

	res, err := f.run(t, tasks.OpExtract, f.doc.ID, false)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	out := res.(ExtractResult)
	if !out.Changed || !out.Layout || out.Pages != 2 || out.Hash == "" {
		t.Errorf("result: got %+v", out)
	}

	want := normalize.Normalize(f.extractor.out.Text)
	if text := f.docs.text[f.doc.ID]; text != want.Text || out.Hash != want.Hash {
		t.Errorf("canonical text: got %q", text)
	}
	if f.docs.layouts != 1 {
		t.Errorf("layouts saved: got %d, want 1", f.docs.layouts)
	}
	if len(f.index.records) != 1 {
		t.Errorf("index calls: got %d, want 1", len(f.index.records))
	}
}

func TestExtractSkipsExtractedUnlessForced(t *testing.T) {
	f := newFixture()
	if _, err := f.run(t, tasks.OpExtract, f.doc.ID, false); err != nil {
		t.Fatalf("first extract: %v", err)
	}

	res, err := f.run(t, tasks.OpExtract, f.doc.ID, false)
	if err != nil {
		t.Fatalf("second extract: %v", err)
	}
	if out := res.(ExtractResult); !out.Skipped || out.Pages != 2 {
		t.Errorf("unforced rerun: got %+v", out)
	}

	res, err = f.run(t, tasks.OpExtract, f.doc.ID, true)
	if err != nil {
		t.Fatalf("forced extract: %v", err)
	}
	if out := res.(ExtractResult); out.Skipped || out.Changed {
		t.Errorf("forced rerun over identical text: got %+v", out)
	}
}

func TestExtractFailureRecordsError(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
		want  error
	}{
		{
			name:  "source unavailable",
			setup: func(f *fixture) { f.docs.sourceErr = documents.ErrNoSource },
			want:  documents.ErrNoSource,
		},
		{
			name:  "malformed",
			setup: func(f *fixture) { f.extractor.err = ocr.ErrMalformed },
			want:  ocr.ErrMalformed,
		},
		{
			name:  "blank text",
			setup: func(f *fixture) { f.extractor.out = &ocr.Output{Text: "\f  \n- 2 -\n"} },
			want:  ocr.ErrNoText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			_, err := f.run(t, tasks.OpExtract, f.doc.ID, false)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error: got %v, want %v", err, tt.want)
			}
			if f.docs.extractErr == "" {
				t.Error("extraction error should be recorded on the document")
			}
			if _, ok := f.docs.text[f.doc.ID]; ok {
				t.Error("no text should be stored on failure")
			}
		})
	}
}

func TestSegmentRequiresText(t *testing.T) {
	f := newFixture()

	_, err := f.run(t, tasks.OpSegment, f.doc.ID, false)
	if !errors.Is(err, ErrNotExtracted) {
		t.Fatalf("error: got %v, want ErrNotExtracted", err)
	}
	if f.segmenter.calls != 0 {
		t.Error("segmenter should not run without text")
	}
}

func TestSegmentIdempotentRerun(t *testing.T) {
	f := newFixture()
	if _, err := f.run(t, tasks.OpExtract, f.doc.ID, false); err != nil {
		t.Fatalf("extract: %v", err)
	}

	res, err := f.run(t, tasks.OpSegment, f.doc.ID, false)
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	out := res.(SegmentResult)
	if out.Skipped || out.Status != documents.AgendaSegmented || out.Items != 1 {
		t.Errorf("first run: got %+v", out)
	}
	if f.segmenter.input.Place == nil || f.segmenter.input.Meeting == nil {
		t.Error("segment input should carry place and meeting")
	}

	res, err = f.run(t, tasks.OpSegment, f.doc.ID, false)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if out := res.(SegmentResult); !out.Skipped {
		t.Errorf("unforced rerun over a current agenda should skip: %+v", out)
	}
	if f.items.replaced != 1 || f.segmenter.calls != 1 {
		t.Errorf("rerun wrote: replaced=%d resolves=%d", f.items.replaced, f.segmenter.calls)
	}

	if _, err := f.run(t, tasks.OpSegment, f.doc.ID, true); err != nil {
		t.Fatalf("forced: %v", err)
	}
	if f.items.replaced != 2 || len(f.items.items) != 1 {
		t.Errorf("forced rerun should replace the set: replaced=%d items=%d", f.items.replaced, len(f.items.items))
	}
}

func TestSegmentStaleAgendaReruns(t *testing.T) {
	f := newFixture()
	if _, err := f.run(t, tasks.OpExtract, f.doc.ID, false); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if _, err := f.run(t, tasks.OpSegment, f.doc.ID, false); err != nil {
		t.Fatalf("segment: %v", err)
	}

	f.extractor.out = &ocr.Output{Text: "REVISED MINUTES\n1. Budget adoption"}
	if _, err := f.run(t, tasks.OpExtract, f.doc.ID, true); err != nil {
		t.Fatalf("re-extract: %v", err)
	}
	if _, err := f.run(t, tasks.OpSegment, f.doc.ID, false); err != nil {
		t.Fatalf("segment stale: %v", err)
	}
	if f.segmenter.calls != 2 {
		t.Errorf("stale agenda should be re-segmented, resolves=%d", f.segmenter.calls)
	}
}

func TestSegmentFailureMarksAgendaFailed(t *testing.T) {
	f := newFixture()
	if _, err := f.run(t, tasks.OpExtract, f.doc.ID, false); err != nil {
		t.Fatalf("extract: %v", err)
	}
	f.segmenter.err = segment.ErrAllSourcesFailed

	_, err := f.run(t, tasks.OpSegment, f.doc.ID, false)
	if !errors.Is(err, segment.ErrAllSourcesFailed) {
		t.Fatalf("error: got %v", err)
	}
	if f.docs.docs[f.doc.ID].AgendaStatus != documents.AgendaFailed || f.docs.agendaErr == "" {
		t.Error("agenda should be marked failed")
	}
	if f.items.replaced != 0 {
		t.Error("no items should be written on failure")
	}
}

func TestDocumentStagesPassForce(t *testing.T) {
	f := newFixture()

	res, err := f.run(t, tasks.OpVerifyVotes, f.doc.ID, true)
	if err != nil {
		t.Fatalf("verify_votes: %v", err)
	}
	if f.verifier.req.DocumentID != f.doc.ID || !f.verifier.req.Force {
		t.Errorf("request: got %+v", f.verifier.req)
	}
	if h := res.(votes.Histogram); h.Processed != 2 {
		t.Errorf("histogram: got %+v", h)
	}

	if _, err := f.run(t, tasks.OpSummarize, f.doc.ID, true); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !f.summaries.force {
		t.Error("summarize should receive force")
	}
	if len(f.index.records) != 2 {
		t.Errorf("index calls: got %d, want 2", len(f.index.records))
	}
}

func TestRecomputeLineage(t *testing.T) {
	f := newFixture()
	place := f.places.place.ID

	res, err := f.run(t, tasks.OpRecomputeLineage, place, false)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	sum := res.(lineage.Summary)
	if sum.PlaceID != place || sum.Groups != 1 || sum.Members != 3 || sum.LowConfidence != 1 {
		t.Errorf("summary: got %+v", sum)
	}

	f.lineage.err = lineage.ErrRecomputeInProgress
	if _, err := f.run(t, tasks.OpRecomputeLineage, place, false); !errors.Is(err, lineage.ErrRecomputeInProgress) {
		t.Errorf("error: got %v, want ErrRecomputeInProgress", err)
	}
}
