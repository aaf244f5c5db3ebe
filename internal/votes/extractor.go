// Package votes verifies agenda item outcomes. Each item runs a chain of
// a deterministic pattern parse of its local text, a cross-check against
// external vote records anchored in the page layout, and an inference
// fallback. Writes respect the source trust hierarchy.
package votes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/documents"
	"github.com/JaimeStill/docket/internal/legistar"
	"github.com/JaimeStill/docket/internal/ocr"
	"github.com/JaimeStill/docket/internal/places"
	"github.com/JaimeStill/docket/internal/prompts"
)

// ErrNotSegmented rejects documents whose agenda is missing or stale.
var ErrNotSegmented = errors.New("document agenda not segmented")

// MapHTTPStatus maps vote verification errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotSegmented):
		return http.StatusConflict
	case errors.Is(err, agenda.ErrInvalidSource):
		return http.StatusBadRequest
	}
	return documents.MapHTTPStatus(err)
}

// Skip reasons.
const (
	SkipTrustedSource    = "trusted_source"
	SkipExistingResult   = "existing_result"
	SkipHighConfidence   = "already_high_confidence"
	SkipInsufficientText = "insufficient_text"
	SkipLowConfidence    = "low_confidence"
	SkipUnknownNoTally   = "unknown_no_tally"
)

// Request verifies every item of one document. Pattern results are written
// under Source; an empty Source uses the configured default.
type Request struct {
	DocumentID uuid.UUID     `json:"document_id"`
	Source     agenda.Source `json:"source"`
	Force      bool          `json:"force"`
}

// Histogram counts what happened to each item of a run.
type Histogram struct {
	Processed int            `json:"processed"`
	Updated   int            `json:"updated"`
	Verified  int            `json:"verified"`
	Skipped   map[string]int `json:"skipped"`
	Failed    int            `json:"failed"`
}

func (h *Histogram) skip(reason string) {
	h.Skipped[reason]++
}

// Documents is the document surface the extractor reads.
type Documents interface {
	Find(ctx context.Context, id uuid.UUID) (*documents.Document, error)
	Content(ctx context.Context, id uuid.UUID) (*documents.Content, error)
	Layout(ctx context.Context, id uuid.UUID) (*ocr.Layout, error)
}

// Places resolves a document's place and meeting.
type Places interface {
	Find(ctx context.Context, id uuid.UUID) (*places.Place, error)
	FindMeeting(ctx context.Context, id uuid.UUID) (*places.Meeting, error)
}

// Items reads and writes agenda item outcomes.
type Items interface {
	ForDocument(ctx context.Context, documentID uuid.UUID) ([]agenda.Item, error)
	ApplyOutcome(ctx context.Context, id uuid.UUID, observed *agenda.Source, result agenda.Result, evidence []agenda.Evidence) (*agenda.Item, error)
	AppendEvidence(ctx context.Context, id uuid.UUID, evidence []agenda.Evidence) error
}

// Runtime holds the extractor's collaborators. Legistar and Engine are
// optional.
type Runtime struct {
	Documents Documents
	Places    Places
	Items     Items
	Legistar  legistar.Client
	Engine    Generator
	Prompts   prompts.Instructor
	Logger    *slog.Logger
}

// Extractor runs vote verification for documents.
type Extractor struct {
	cfg    *Config
	rt     Runtime
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Extractor.
func New(cfg *Config, rt Runtime) *Extractor {
	return &Extractor{
		cfg:    cfg,
		rt:     rt,
		logger: rt.Logger.With("system", "votes"),
		now:    time.Now,
	}
}

type run struct {
	doc     *documents.Document
	text    string
	items   []agenda.Item
	spans   []Span
	records []*Record
	layout  *ocr.Layout
	client  string
	system  string
	source  agenda.Source
	force   bool
	hist    Histogram
}

// Process verifies the items of one document. Per-item failures are counted
// and do not fail the run; a cancelled context does.
func (e *Extractor) Process(ctx context.Context, req Request) (Histogram, error) {
	source := req.Source
	if source == "" {
		source = e.cfg.DefaultSource()
	}
	if !source.Valid() {
		return Histogram{}, fmt.Errorf("%w: %q", agenda.ErrInvalidSource, source)
	}

	doc, err := e.rt.Documents.Find(ctx, req.DocumentID)
	if err != nil {
		return Histogram{}, err
	}

	r := &run{
		doc:    doc,
		source: source,
		force:  req.Force,
		hist:   Histogram{Skipped: make(map[string]int)},
	}

	switch {
	case !doc.AgendaCurrent():
		return r.hist, fmt.Errorf("%w: %s", ErrNotSegmented, doc.AgendaStatus)
	case doc.AgendaStatus == documents.AgendaEmpty:
		return r.hist, nil
	case doc.AgendaStatus != documents.AgendaSegmented:
		return r.hist, fmt.Errorf("%w: %s", ErrNotSegmented, doc.AgendaStatus)
	}

	content, err := e.rt.Documents.Content(ctx, doc.ID)
	if err != nil {
		return r.hist, err
	}
	r.text = content.Text

	r.items, err = e.rt.Items.ForDocument(ctx, doc.ID)
	if err != nil {
		return r.hist, err
	}
	if len(r.items) == 0 {
		return r.hist, nil
	}

	r.spans = Spans(r.text, r.items, e.cfg.MaxLocalChars)
	r.records = e.external(ctx, r)
	r.layout = e.layout(ctx, doc.ID)

	for i := range r.items {
		if err := e.verify(ctx, r, i); err != nil {
			return r.hist, err
		}
	}

	e.logger.InfoContext(ctx, "votes verified",
		"document_id", doc.ID,
		"source", source,
		"processed", r.hist.Processed,
		"updated", r.hist.Updated,
		"verified", r.hist.Verified,
		"failed", r.hist.Failed,
	)
	return r.hist, nil
}

// external aligns the meeting's external records to items. Failures leave
// every item without a record.
func (e *Extractor) external(ctx context.Context, r *run) []*Record {
	none := make([]*Record, len(r.items))
	if e.rt.Legistar == nil || e.rt.Places == nil {
		return none
	}

	place, err := e.rt.Places.Find(ctx, r.doc.PlaceID)
	if err != nil || place.LegistarClient == nil {
		return none
	}
	meeting, err := e.rt.Places.FindMeeting(ctx, r.doc.MeetingID)
	if err != nil || meeting.ExternalID == nil {
		return none
	}

	events, err := e.rt.Legistar.EventItems(ctx, *place.LegistarClient, *meeting.ExternalID)
	if err != nil {
		e.logger.WarnContext(ctx, "external vote records unavailable",
			"document_id", r.doc.ID,
			"event_id", *meeting.ExternalID,
			"error", err,
		)
		return none
	}

	r.client = *place.LegistarClient
	return Align(r.items, events, e.cfg.TitleThreshold)
}

func (e *Extractor) layout(ctx context.Context, documentID uuid.UUID) *ocr.Layout {
	layout, err := e.rt.Documents.Layout(ctx, documentID)
	if err != nil {
		e.logger.WarnContext(ctx, "page layout unavailable", "document_id", documentID, "error", err)
		return nil
	}
	return layout
}

func (e *Extractor) verify(ctx context.Context, r *run, i int) error {
	it := r.items[i]
	span := r.spans[i]
	rec := r.records[i]
	r.hist.Processed++

	ceiling := r.source
	if rec != nil && agenda.SourceLegistar.Rank() > ceiling.Rank() {
		ceiling = agenda.SourceLegistar
	}

	if it.Outranks(ceiling) {
		e.logger.InfoContext(ctx, "outcome held by trusted source",
			"item_id", it.ID,
			"outcome_source", *it.OutcomeSource,
			"source", ceiling,
		)
		r.hist.skip(SkipTrustedSource)
		return nil
	}

	if !r.force && it.OutcomeSource != nil && it.OutcomeSource.Rank() >= ceiling.Rank() {
		if *it.OutcomeSource == ceiling && it.Confidence >= e.cfg.HighConfidence {
			r.hist.skip(SkipHighConfidence)
		} else {
			r.hist.skip(SkipExistingResult)
		}
		return nil
	}

	local := strings.TrimSpace(span.Text)
	sufficient := len(local) >= e.cfg.MinTextChars
	if !sufficient && rec == nil {
		r.hist.skip(SkipInsufficientText)
		return nil
	}

	page := span.Page
	if it.PageNumber != nil {
		page = *it.PageNumber
	}

	a := attempt{}

	if sufficient {
		e.pattern(r, it, local, page, &a)
	}

	// A pattern result already at the external tier stops the chain.
	if rec != nil && (a.chosen == nil || a.chosen.Source.Rank() < agenda.SourceLegistar.Rank()) {
		e.crossCheck(ctx, r, i, page, &a)
	}

	if a.chosen == nil && sufficient {
		if err := e.inference(ctx, r, it, local, page, &a); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			e.logger.WarnContext(ctx, "vote inference failed", "item_id", it.ID, "error", err)
			r.hist.Failed++
			e.appendEvidence(ctx, it.ID, a.evidence)
			return nil
		}
	}

	if a.chosen == nil {
		if a.lowConfidence {
			r.hist.skip(SkipLowConfidence)
		} else {
			r.hist.skip(SkipUnknownNoTally)
		}
		e.appendEvidence(ctx, it.ID, a.evidence)
		return nil
	}

	a.persist()
	_, err := e.rt.Items.ApplyOutcome(ctx, it.ID, it.OutcomeSource, *a.chosen, a.evidence)
	switch {
	case err == nil:
		r.hist.Updated++
		if a.chosen.Verified {
			r.hist.Verified++
		}
	case errors.Is(err, agenda.ErrTrustConflict):
		r.hist.skip(SkipTrustedSource)
		e.appendEvidence(ctx, it.ID, a.unpersist())
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		e.logger.WarnContext(ctx, "apply outcome failed", "item_id", it.ID, "error", err)
		r.hist.Failed++
		e.appendEvidence(ctx, it.ID, a.unpersist())
	}
	return nil
}

// attempt collects one item's evidence and the result chosen to persist.
type attempt struct {
	evidence      []agenda.Evidence
	chosen        *agenda.Result
	chosenKinds   []agenda.EvidenceKind
	lowConfidence bool
}

func (a *attempt) propose(res agenda.Result, kinds ...agenda.EvidenceKind) {
	if a.chosen != nil {
		if res.Source.Rank() < a.chosen.Source.Rank() {
			return
		}
		if res.Source.Rank() == a.chosen.Source.Rank() && res.Confidence <= a.chosen.Confidence {
			return
		}
	}
	a.chosen = &res
	a.chosenKinds = kinds
}

func (a *attempt) persist() {
	for i := range a.evidence {
		for _, k := range a.chosenKinds {
			if a.evidence[i].Kind == k {
				a.evidence[i].Persisted = true
			}
		}
	}
}

func (a *attempt) unpersist() []agenda.Evidence {
	for i := range a.evidence {
		a.evidence[i].Persisted = false
	}
	return a.evidence
}

func (e *Extractor) record(a *attempt, kind agenda.EvidenceKind, text string, page int, detail string) {
	ev := agenda.Evidence{
		Kind:       kind,
		Text:       text,
		Detail:     detail,
		RecordedAt: e.now().UTC(),
	}
	if page > 0 {
		p := page
		ev.PageNumber = &p
	}
	a.evidence = append(a.evidence, ev)
}

func (e *Extractor) pattern(r *run, it agenda.Item, local string, page int, a *attempt) {
	f := Parse(local)
	if !f.Positive() {
		return
	}

	e.record(a, agenda.EvidencePattern, f.Span, page,
		fmt.Sprintf("%s at %.2f", f.Outcome, f.Confidence))

	if f.Confidence < e.cfg.ConfidenceFloor {
		a.lowConfidence = true
		return
	}
	if !agenda.Decide(it.OutcomeSource, r.source) {
		return
	}

	a.propose(agenda.Result{
		Source:     r.source,
		Outcome:    f.Outcome,
		Tally:      f.Tally,
		Motion:     f.Motion,
		Votes:      f.Votes,
		Confidence: f.Confidence,
	}, agenda.EvidencePattern)
}

func (e *Extractor) crossCheck(ctx context.Context, r *run, i, page int, a *attempt) {
	it := r.items[i]
	rec := r.records[i]

	if len(rec.Votes) == 0 {
		votes, err := e.rt.Legistar.Votes(ctx, r.client, rec.EventItemID)
		if err != nil {
			e.logger.WarnContext(ctx, "external votes unavailable",
				"item_id", it.ID,
				"event_item_id", rec.EventItemID,
				"error", err,
			)
		} else {
			rec.withVotes(votes)
		}
	}

	if !rec.Positive() {
		e.record(a, agenda.EvidenceExternal, rec.Title, page, describe(rec)+"; no disposition recorded")
		return
	}
	e.record(a, agenda.EvidenceExternal, rec.Title, page, describe(rec))

	verified := false
	if r.layout != nil {
		anchor, block, detail := e.anchor(r, i, page, rec)
		e.record(a, agenda.EvidenceSpatial, block, page, detail)
		switch anchor {
		case AnchorAgree:
			verified = true
		case AnchorDisagree:
			return
		}
	}

	if !agenda.Decide(it.OutcomeSource, agenda.SourceLegistar) {
		return
	}
	a.propose(rec.result(verified), agenda.EvidenceExternal, agenda.EvidenceSpatial)
}

func (e *Extractor) anchor(r *run, i, page int, rec *Record) (Anchor, string, string) {
	var (
		next     string
		nextPage int
	)
	if i+1 < len(r.items) {
		next = r.items[i+1].Title
		nextPage = r.spans[i+1].Page
		if r.items[i+1].PageNumber != nil {
			nextPage = *r.items[i+1].PageNumber
		}
	}

	region, ok := RegionOf(r.layout, page, r.items[i].Title, next, nextPage)
	if !ok {
		return AnchorNone, "", fmt.Sprintf("heading not found on page %d", page)
	}

	anchor, block := rec.Check(region)
	switch anchor {
	case AnchorAgree:
		return anchor, block, "vote block agrees with external record"
	case AnchorDisagree:
		return anchor, block, "vote block contradicts external record"
	}
	return anchor, "", "no vote block in item region"
}

func (e *Extractor) inference(ctx context.Context, r *run, it agenda.Item, local string, page int, a *attempt) error {
	if e.rt.Engine == nil || !e.rt.Engine.Enabled() {
		return nil
	}
	if !agenda.Decide(it.OutcomeSource, agenda.SourceLLMExtracted) {
		return nil
	}

	if r.system == "" {
		system, err := composeSystem(ctx, e.rt.Prompts)
		if err != nil {
			return err
		}
		r.system = system
	}

	inf, err := infer(ctx, e.rt.Engine, r.system, it, local)
	if err != nil {
		e.record(a, agenda.EvidenceInference, "", page, "error: "+err.Error())
		return err
	}

	detail := fmt.Sprintf("%s at %.2f", inf.Result.Outcome, inf.Result.Confidence)
	if !inf.Grounded {
		detail += "; ungrounded"
	}
	e.record(a, agenda.EvidenceInference, inf.Evidence, page, detail)

	switch {
	case !inf.Result.Positive():
		return nil
	case !inf.Grounded, inf.Result.Confidence < e.cfg.ConfidenceFloor:
		a.lowConfidence = true
		return nil
	}

	a.propose(inf.Result, agenda.EvidenceInference)
	return nil
}

func (e *Extractor) appendEvidence(ctx context.Context, id uuid.UUID, evidence []agenda.Evidence) {
	if len(evidence) == 0 {
		return
	}
	if err := e.rt.Items.AppendEvidence(ctx, id, evidence); err != nil {
		e.logger.WarnContext(ctx, "append evidence failed", "item_id", id, "error", err)
	}
}
