package votes_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/documents"
	"github.com/JaimeStill/docket/internal/inference"
	"github.com/JaimeStill/docket/internal/legistar"
	"github.com/JaimeStill/docket/internal/ocr"
	"github.com/JaimeStill/docket/internal/places"
	"github.com/JaimeStill/docket/internal/votes"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		outcome  agenda.Outcome
		tally    *agenda.Tally
		mover    string
		seconder string
		votes    int
	}{
		{
			name:     "moved seconded passed",
			text:     "Moved by Smith, seconded by Jones. Passed 5-0.",
			outcome:  agenda.OutcomePassed,
			tally:    &agenda.Tally{Yes: 5, No: 0},
			mover:    "Smith",
			seconder: "Jones",
		},
		{
			name:    "failed tally",
			text:    "After discussion the motion failed 2-3.",
			outcome: agenda.OutcomeFailed,
			tally:   &agenda.Tally{Yes: 2, No: 3},
		},
		{
			name:    "roll call",
			text:    "Ayes: Smith, Jones, Lee; Nays: Park; Absent: none",
			outcome: agenda.OutcomePassed,
			tally:   &agenda.Tally{Yes: 3, No: 1},
			votes:   4,
		},
		{
			name:    "motion carried",
			text:    "Motion carried.",
			outcome: agenda.OutcomePassed,
		},
		{
			name:    "unanimously approved",
			text:    "The consent calendar was unanimously approved.",
			outcome: agenda.OutcomePassed,
		},
		{
			name:    "tabled",
			text:    "Item tabled pending staff review.",
			outcome: agenda.OutcomeDeferred,
		},
		{
			name:    "continued",
			text:    "Public hearing continued to March 3.",
			outcome: agenda.OutcomeContinued,
		},
		{
			name:    "no vote text",
			text:    "Staff presented the report. No action taken.",
			outcome: agenda.OutcomeUnknown,
		},
		{
			name:     "titled members",
			text:     "Motion by Councilmember Rivera, seconded by Mayor Chen. Approved 4 to 1.",
			outcome:  agenda.OutcomePassed,
			tally:    &agenda.Tally{Yes: 4, No: 1},
			mover:    "Rivera",
			seconder: "Chen",
		},
		{
			name:    "vote of phrasing",
			text:    "The resolution was adopted by a vote of 6 to 1.",
			outcome: agenda.OutcomePassed,
			tally:   &agenda.Tally{Yes: 6, No: 1},
		},
		{
			name:    "parenthesized tally",
			text:    "Approved as amended (4-1).",
			outcome: agenda.OutcomePassed,
			tally:   &agenda.Tally{Yes: 4, No: 1},
		},
		{
			name:    "ordinance number",
			text:    "Council adopted Ordinance 24-15 amending the parking code.",
			outcome: agenda.OutcomeUnknown,
		},
		{
			name:    "contract number",
			text:    "Approved Contract No 23-07 with Acme Paving for resurfacing.",
			outcome: agenda.OutcomeUnknown,
		},
		{
			name:    "parenthesized file number",
			text:    "Approved the lease under contract # (12-3).",
			outcome: agenda.OutcomeUnknown,
		},
		{
			name:    "count larger than any body",
			text:    "Passed 24-15.",
			outcome: agenda.OutcomeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := votes.Parse(tt.text)

			if f.Outcome != tt.outcome {
				t.Errorf("outcome: got %q, want %q", f.Outcome, tt.outcome)
			}
			switch {
			case tt.tally == nil && f.Tally != nil:
				t.Errorf("tally: got %+v, want none", *f.Tally)
			case tt.tally != nil && f.Tally == nil:
				t.Errorf("tally: got none, want %+v", *tt.tally)
			case tt.tally != nil && (f.Tally.Yes != tt.tally.Yes || f.Tally.No != tt.tally.No):
				t.Errorf("tally: got %+v, want %+v", *f.Tally, *tt.tally)
			}

			var mover, seconder string
			if f.Motion != nil {
				mover, seconder = f.Motion.Mover, f.Motion.Seconder
			}
			if mover != tt.mover || seconder != tt.seconder {
				t.Errorf("motion: got %q/%q, want %q/%q", mover, seconder, tt.mover, tt.seconder)
			}
			if len(f.Votes) != tt.votes {
				t.Errorf("votes: got %d, want %d", len(f.Votes), tt.votes)
			}
		})
	}
}

func TestSpans(t *testing.T) {
	text := "1. Approve contract with Acme Paving\nMoved by Smith. Passed 5-0.\n" +
		"2. Budget amendment for parks\fAyes: Smith, Lee; Nays: none\n"
	items := []agenda.Item{
		{Title: "Approve contract with Acme Paving"},
		{Title: "Missing item that is not printed"},
		{Title: "Budget Amendment for Parks"},
	}

	spans := votes.Spans(text, items, 1000)

	if !strings.Contains(spans[0].Text, "Passed 5-0") || strings.Contains(spans[0].Text, "Ayes") {
		t.Errorf("span 0: got %q", spans[0].Text)
	}
	if spans[1].Start != -1 || spans[1].Text != "" {
		t.Errorf("span 1: got %+v, want unlocated", spans[1])
	}
	if !strings.Contains(spans[2].Text, "Ayes") {
		t.Errorf("span 2: got %q", spans[2].Text)
	}
	if spans[0].Page != 1 || spans[2].Page != 1 {
		t.Errorf("pages: got %d and %d, want 1 and 1", spans[0].Page, spans[2].Page)
	}

	capped := votes.Spans(text, items[:1], 20)
	if len(capped[0].Text) != 20 {
		t.Errorf("capped span: got %d bytes, want 20", len(capped[0].Text))
	}
}

func TestAlign(t *testing.T) {
	items := []agenda.Item{
		{Title: "Approve contract with Acme Paving for street resurfacing"},
		{Title: "Library board appointment"},
	}
	passed := 1
	events := []legistar.EventItem{
		{ID: 10, Title: ""},
		{ID: 11, Title: "Contract with Acme Paving for street resurfacing, approve", PassedFlag: &passed, Tally: "5:0"},
		{ID: 12, Title: "Parks master plan update"},
	}

	aligned := votes.Align(items, events, 0.85)

	if aligned[0] == nil || aligned[0].EventItemID != 11 {
		t.Fatalf("item 0: got %+v, want event item 11", aligned[0])
	}
	if aligned[0].Outcome != agenda.OutcomePassed || aligned[0].Tally == nil || aligned[0].Tally.Yes != 5 {
		t.Errorf("item 0 record: got %+v", aligned[0])
	}
	if aligned[1] != nil {
		t.Errorf("item 1: got %+v, want no record", aligned[1])
	}
}

// fixture wires an extractor over in-memory collaborators.
type fixture struct {
	docs     *fakeDocs
	items    *fakeItems
	places   *fakePlaces
	legistar *fakeLegistar
	engine   *fakeEngine
	cfg      *votes.Config
}

func newFixture(t *testing.T, text string, items ...agenda.Item) *fixture {
	t.Helper()

	hash := "h1"
	doc := &documents.Document{
		ID:           uuid.New(),
		MeetingID:    uuid.New(),
		PlaceID:      uuid.New(),
		ContentHash:  &hash,
		AgendaHash:   &hash,
		AgendaStatus: documents.AgendaSegmented,
	}

	store := &fakeItems{items: make(map[uuid.UUID]*agenda.Item)}
	for i := range items {
		it := items[i]
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		if it.Outcome == "" {
			it.Outcome = agenda.OutcomeUnknown
		}
		it.DocumentID = doc.ID
		it.Order = i + 1
		store.items[it.ID] = &it
		store.order = append(store.order, it.ID)
	}

	cfg := &votes.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize config: %v", err)
	}

	return &fixture{
		docs:   &fakeDocs{doc: doc, text: text},
		items:  store,
		places: &fakePlaces{},
		cfg:    cfg,
	}
}

func (f *fixture) extractor() *votes.Extractor {
	rt := votes.Runtime{
		Documents: f.docs,
		Places:    f.places,
		Items:     f.items,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if f.legistar != nil {
		rt.Legistar = f.legistar
	}
	if f.engine != nil {
		rt.Engine = f.engine
	}
	return votes.New(f.cfg, rt)
}

func (f *fixture) withLegistar(events ...legistar.EventItem) {
	client, event := "springfield", "42"
	f.places.place = &places.Place{ID: f.docs.doc.PlaceID, LegistarClient: &client}
	f.places.meeting = &places.Meeting{ID: f.docs.doc.MeetingID, ExternalID: &event}
	f.legistar = &fakeLegistar{events: events}
}

func (f *fixture) first() *agenda.Item {
	return f.items.items[f.items.order[0]]
}

func (f *fixture) process(t *testing.T, req votes.Request) votes.Histogram {
	t.Helper()
	req.DocumentID = f.docs.doc.ID
	hist, err := f.extractor().Process(context.Background(), req)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return hist
}

const contractTitle = "Approve contract with Acme Paving for street resurfacing"

func TestProcessMovedSecondedPassed(t *testing.T) {
	text := "1. " + contractTitle + "\nMoved by Smith, seconded by Jones. Passed 5-0.\n"
	f := newFixture(t, text, agenda.Item{Title: contractTitle})

	hist := f.process(t, votes.Request{})

	if hist.Processed != 1 || hist.Updated != 1 {
		t.Fatalf("histogram: got %+v", hist)
	}

	it := f.first()
	if it.Outcome != agenda.OutcomePassed {
		t.Errorf("outcome: got %q, want passed", it.Outcome)
	}
	if it.Tally == nil || it.Tally.Yes != 5 || it.Tally.No != 0 {
		t.Errorf("tally: got %+v, want 5-0", it.Tally)
	}
	if it.Motion == nil || it.Motion.Mover != "Smith" || it.Motion.Seconder != "Jones" {
		t.Errorf("motion: got %+v", it.Motion)
	}
	if it.OutcomeSource == nil || *it.OutcomeSource != agenda.SourceLLMExtracted {
		t.Errorf("outcome source: got %v, want llm_extracted", it.OutcomeSource)
	}
	if len(it.Evidence) != 1 || it.Evidence[0].Kind != agenda.EvidencePattern || !it.Evidence[0].Persisted {
		t.Errorf("evidence: got %+v", it.Evidence)
	}
}

func TestProcessNoVoteTextStaysUnknown(t *testing.T) {
	title := "Quarterly financial report from the finance director"
	text := "4. " + title + "\nStaff presented the quarterly report to the council. Questions followed.\n"
	f := newFixture(t, text, agenda.Item{Title: title})

	hist := f.process(t, votes.Request{})

	if hist.Skipped[votes.SkipUnknownNoTally] != 1 || hist.Updated != 0 {
		t.Fatalf("histogram: got %+v", hist)
	}
	it := f.first()
	if it.Outcome != agenda.OutcomeUnknown || len(it.Votes) != 0 || it.Tally != nil {
		t.Errorf("item: got outcome %q, votes %v, tally %v", it.Outcome, it.Votes, it.Tally)
	}
}

func TestProcessTrustedSourceSkip(t *testing.T) {
	manual := agenda.SourceManual
	text := "1. " + contractTitle + "\nMotion failed 1-4 after a lengthy discussion of the bids.\n"
	f := newFixture(t, text, agenda.Item{
		Title:         contractTitle,
		Outcome:       agenda.OutcomePassed,
		OutcomeSource: &manual,
		Tally:         &agenda.Tally{Yes: 5},
		Confidence:    1,
		Verified:      true,
	})

	hist := f.process(t, votes.Request{Source: agenda.SourceLegistar, Force: true})

	if hist.Skipped[votes.SkipTrustedSource] != 1 {
		t.Fatalf("histogram: got %+v, want trusted_source skip", hist)
	}
	if f.items.applied != 0 {
		t.Errorf("ApplyOutcome called %d times, want 0", f.items.applied)
	}
	it := f.first()
	if it.Outcome != agenda.OutcomePassed || *it.OutcomeSource != agenda.SourceManual || it.Tally.Yes != 5 {
		t.Errorf("manual record changed: %+v", it)
	}
	if len(it.Evidence) != 0 {
		t.Errorf("evidence: got %d entries, want 0", len(it.Evidence))
	}
}

func TestProcessExistingResultUnlessForced(t *testing.T) {
	llm := agenda.SourceLLMExtracted
	text := "1. " + contractTitle + "\nMoved by Smith, seconded by Jones. Passed 5-0.\n"
	newItem := func(conf float64) agenda.Item {
		return agenda.Item{
			Title:         contractTitle,
			Outcome:       agenda.OutcomeFailed,
			OutcomeSource: &llm,
			Confidence:    conf,
		}
	}

	f := newFixture(t, text, newItem(0.7))
	if hist := f.process(t, votes.Request{}); hist.Skipped[votes.SkipExistingResult] != 1 {
		t.Errorf("unforced: got %+v, want existing_result", hist)
	}

	f = newFixture(t, text, newItem(0.95))
	if hist := f.process(t, votes.Request{}); hist.Skipped[votes.SkipHighConfidence] != 1 {
		t.Errorf("high confidence: got %+v, want already_high_confidence", hist)
	}

	hist := f.process(t, votes.Request{Force: true})
	if hist.Updated != 1 || f.first().Outcome != agenda.OutcomePassed {
		t.Errorf("forced: got %+v, outcome %q", hist, f.first().Outcome)
	}
}

func TestProcessInsufficientText(t *testing.T) {
	f := newFixture(t, "1. Short item\n", agenda.Item{Title: "Short item"})

	hist := f.process(t, votes.Request{})

	if hist.Skipped[votes.SkipInsufficientText] != 1 {
		t.Errorf("histogram: got %+v, want insufficient_text", hist)
	}
}

func TestProcessRejectsUnsegmented(t *testing.T) {
	f := newFixture(t, "text", agenda.Item{Title: contractTitle})
	f.docs.doc.AgendaStatus = documents.AgendaNotSegmented

	_, err := f.extractor().Process(context.Background(), votes.Request{DocumentID: f.docs.doc.ID})
	if !errors.Is(err, votes.ErrNotSegmented) {
		t.Fatalf("error: got %v, want ErrNotSegmented", err)
	}

	stale := "h0"
	f.docs.doc.AgendaStatus = documents.AgendaSegmented
	f.docs.doc.AgendaHash = &stale
	_, err = f.extractor().Process(context.Background(), votes.Request{DocumentID: f.docs.doc.ID})
	if !errors.Is(err, votes.ErrNotSegmented) {
		t.Fatalf("stale agenda error: got %v, want ErrNotSegmented", err)
	}
}

func TestProcessEmptyAgenda(t *testing.T) {
	f := newFixture(t, "text")
	f.docs.doc.AgendaStatus = documents.AgendaEmpty

	hist := f.process(t, votes.Request{})
	if hist.Processed != 0 {
		t.Errorf("histogram: got %+v, want nothing processed", hist)
	}
}

func passedEvent(title string) legistar.EventItem {
	passed := 1
	return legistar.EventItem{ID: 7, Title: title, PassedFlag: &passed, Tally: "5:0", Mover: "Smith", Seconder: "Jones"}
}

func TestProcessExternalVerifiedBySpatialAnchor(t *testing.T) {
	text := "1. " + contractTitle + "\nMoved by Smith, seconded by Jones. Passed 5-0.\n"
	page := 1
	f := newFixture(t, text, agenda.Item{Title: contractTitle, PageNumber: &page})
	f.withLegistar(passedEvent(contractTitle))
	f.docs.layout = &ocr.Layout{Pages: []ocr.PageLayout{{
		Number: 1,
		Blocks: []ocr.Block{
			{Text: "1. " + contractTitle, Y0: 0.10, Y1: 0.12},
			{Text: "Moved by Smith, seconded by Jones. Passed 5-0.", Y0: 0.13, Y1: 0.15},
		},
	}}}

	hist := f.process(t, votes.Request{})

	if hist.Updated != 1 || hist.Verified != 1 {
		t.Fatalf("histogram: got %+v", hist)
	}
	it := f.first()
	if *it.OutcomeSource != agenda.SourceLegistar || !it.Verified {
		t.Errorf("item: source %v verified %v, want legistar verified", *it.OutcomeSource, it.Verified)
	}

	kinds := make(map[agenda.EvidenceKind]bool)
	for _, ev := range it.Evidence {
		kinds[ev.Kind] = ev.Persisted
	}
	if !kinds[agenda.EvidenceExternal] || !kinds[agenda.EvidenceSpatial] {
		t.Errorf("external and spatial evidence should be persisted: %+v", it.Evidence)
	}
	if persisted, ok := kinds[agenda.EvidencePattern]; !ok || persisted {
		t.Errorf("pattern evidence should be retained unpersisted: %+v", it.Evidence)
	}
}

func TestProcessPatternAtExternalTierSkipsCrossCheck(t *testing.T) {
	text := "1. " + contractTitle + "\nMoved by Smith, seconded by Jones. Passed 5-0.\n"
	f := newFixture(t, text, agenda.Item{Title: contractTitle})
	f.withLegistar(passedEvent(contractTitle))

	hist := f.process(t, votes.Request{Source: agenda.SourceLegistar})

	if hist.Updated != 1 || hist.Verified != 0 {
		t.Fatalf("histogram: got %+v", hist)
	}
	it := f.first()
	if *it.OutcomeSource != agenda.SourceLegistar || it.Confidence != 0.95 {
		t.Errorf("item: source %v confidence %v, want the pattern result", *it.OutcomeSource, it.Confidence)
	}
	for _, ev := range it.Evidence {
		if ev.Kind == agenda.EvidenceExternal || ev.Kind == agenda.EvidenceSpatial {
			t.Errorf("cross-check should not run after a pattern hit at its tier: %+v", ev)
		}
	}
}

func TestProcessSpatialDisagreementFallsThrough(t *testing.T) {
	text := "1. " + contractTitle + "\nMoved by Smith, seconded by Jones. Motion failed 1-4.\n"
	page := 1
	f := newFixture(t, text, agenda.Item{Title: contractTitle, PageNumber: &page})
	f.withLegistar(passedEvent(contractTitle))
	f.docs.layout = &ocr.Layout{Pages: []ocr.PageLayout{{
		Number: 1,
		Blocks: []ocr.Block{
			{Text: "1. " + contractTitle},
			{Text: "Moved by Smith, seconded by Jones. Motion failed 1-4."},
		},
	}}}

	hist := f.process(t, votes.Request{})

	if hist.Updated != 1 || hist.Verified != 0 {
		t.Fatalf("histogram: got %+v", hist)
	}
	it := f.first()
	if *it.OutcomeSource != agenda.SourceLLMExtracted || it.Outcome != agenda.OutcomeFailed {
		t.Errorf("item: got %s from %s, want failed from llm_extracted", it.Outcome, *it.OutcomeSource)
	}
}

func TestProcessExternalWithoutLayoutUnverified(t *testing.T) {
	title := "Appointment to the library board of trustees"
	f := newFixture(t, "2. "+title+"\n", agenda.Item{Title: title})
	f.withLegistar(passedEvent(title))
	f.legistar.votes = []legistar.Vote{
		{PersonName: "Smith", ValueName: "Aye"},
		{PersonName: "Jones", ValueName: "Nay"},
	}

	hist := f.process(t, votes.Request{})

	if hist.Updated != 1 || hist.Verified != 0 {
		t.Fatalf("histogram: got %+v", hist)
	}
	it := f.first()
	if *it.OutcomeSource != agenda.SourceLegistar || it.Verified {
		t.Errorf("item: source %v verified %v", *it.OutcomeSource, it.Verified)
	}
	if len(it.Votes) != 2 || it.Votes[1].Vote != "no" {
		t.Errorf("votes: got %+v", it.Votes)
	}
}

func TestProcessInferenceFallback(t *testing.T) {
	body := "The council discussed the bids at length and the item was approved on a voice vote."
	text := "1. " + contractTitle + "\n" + body + "\n"

	t.Run("grounded", func(t *testing.T) {
		f := newFixture(t, text, agenda.Item{Title: contractTitle})
		f.engine = &fakeEngine{text: `{"outcome":"passed","tally":null,"votes":[],` +
			`"evidence":"the item was approved on a voice vote","confidence":0.8}`}

		hist := f.process(t, votes.Request{})

		if hist.Updated != 1 {
			t.Fatalf("histogram: got %+v", hist)
		}
		it := f.first()
		if it.Outcome != agenda.OutcomePassed || it.Tally != nil {
			t.Errorf("item: outcome %q tally %v", it.Outcome, it.Tally)
		}
	})

	t.Run("fenced reply", func(t *testing.T) {
		f := newFixture(t, text, agenda.Item{Title: contractTitle})
		f.engine = &fakeEngine{text: "```json\n" + `{"outcome":"passed","tally":null,"votes":[],` +
			`"evidence":"the item was approved on a voice vote","confidence":0.8}` + "\n```"}

		hist := f.process(t, votes.Request{})

		if hist.Updated != 1 || hist.Failed != 0 {
			t.Fatalf("histogram: got %+v", hist)
		}
		if it := f.first(); it.Outcome != agenda.OutcomePassed {
			t.Errorf("outcome: got %q, want passed", it.Outcome)
		}
	})

	t.Run("ungrounded", func(t *testing.T) {
		f := newFixture(t, text, agenda.Item{Title: contractTitle})
		f.engine = &fakeEngine{text: `{"outcome":"passed","tally":{"yes":5,"no":0,"abstain":0,"absent":0},` +
			`"evidence":"Passed 5-0","confidence":0.9}`}

		hist := f.process(t, votes.Request{})

		if hist.Skipped[votes.SkipLowConfidence] != 1 || hist.Updated != 0 {
			t.Fatalf("histogram: got %+v", hist)
		}
		it := f.first()
		if it.Outcome != agenda.OutcomeUnknown {
			t.Errorf("outcome: got %q, want unknown", it.Outcome)
		}
		if len(it.Evidence) != 1 || it.Evidence[0].Kind != agenda.EvidenceInference || it.Evidence[0].Persisted {
			t.Errorf("evidence: got %+v", it.Evidence)
		}
	})

	t.Run("engine error", func(t *testing.T) {
		f := newFixture(t, text, agenda.Item{Title: contractTitle})
		f.engine = &fakeEngine{err: inference.ErrTimeout}

		hist := f.process(t, votes.Request{})

		if hist.Failed != 1 {
			t.Fatalf("histogram: got %+v", hist)
		}
	})
}

type fakeDocs struct {
	doc    *documents.Document
	text   string
	layout *ocr.Layout
}

func (f *fakeDocs) Find(_ context.Context, id uuid.UUID) (*documents.Document, error) {
	if id != f.doc.ID {
		return nil, documents.ErrNotFound
	}
	return f.doc, nil
}

func (f *fakeDocs) Content(_ context.Context, id uuid.UUID) (*documents.Content, error) {
	return &documents.Content{DocumentID: id, Text: f.text, Hash: f.doc.Hash()}, nil
}

func (f *fakeDocs) Layout(context.Context, uuid.UUID) (*ocr.Layout, error) {
	return f.layout, nil
}

type fakePlaces struct {
	place   *places.Place
	meeting *places.Meeting
}

func (f *fakePlaces) Find(context.Context, uuid.UUID) (*places.Place, error) {
	if f.place == nil {
		return nil, places.ErrNotFound
	}
	return f.place, nil
}

func (f *fakePlaces) FindMeeting(context.Context, uuid.UUID) (*places.Meeting, error) {
	if f.meeting == nil {
		return nil, places.ErrMeetingNotFound
	}
	return f.meeting, nil
}

type fakeItems struct {
	items   map[uuid.UUID]*agenda.Item
	order   []uuid.UUID
	applied int
}

func (f *fakeItems) ForDocument(context.Context, uuid.UUID) ([]agenda.Item, error) {
	out := make([]agenda.Item, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.items[id])
	}
	return out, nil
}

func (f *fakeItems) ApplyOutcome(
	_ context.Context,
	id uuid.UUID,
	observed *agenda.Source,
	result agenda.Result,
	evidence []agenda.Evidence,
) (*agenda.Item, error) {
	f.applied++
	it := f.items[id]
	if !agenda.Decide(observed, result.Source) {
		return nil, agenda.ErrTrustConflict
	}
	if (observed == nil) != (it.OutcomeSource == nil) ||
		(observed != nil && *observed != *it.OutcomeSource) {
		return nil, agenda.ErrConflict
	}

	source := result.Source
	it.Outcome = result.Outcome
	it.OutcomeSource = &source
	it.Tally = result.Tally
	it.Motion = result.Motion
	it.Votes = result.Votes
	it.Confidence = result.Confidence
	it.Verified = result.Verified
	it.Evidence = append(it.Evidence, evidence...)
	return it, nil
}

func (f *fakeItems) AppendEvidence(_ context.Context, id uuid.UUID, evidence []agenda.Evidence) error {
	f.items[id].Evidence = append(f.items[id].Evidence, evidence...)
	return nil
}

type fakeLegistar struct {
	events []legistar.EventItem
	votes  []legistar.Vote
}

func (f *fakeLegistar) EventItems(context.Context, string, string) ([]legistar.EventItem, error) {
	return f.events, nil
}

func (f *fakeLegistar) Votes(context.Context, string, int) ([]legistar.Vote, error) {
	return f.votes, nil
}

type fakeEngine struct {
	text string
	err  error
}

func (f *fakeEngine) Enabled() bool { return true }

func (f *fakeEngine) Generate(context.Context, inference.Request) (inference.Response, error) {
	if f.err != nil {
		return inference.Response{}, f.err
	}
	return inference.Response{Text: f.text}, nil
}
