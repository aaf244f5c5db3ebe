package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/documents"
	"github.com/JaimeStill/docket/internal/normalize"
	"github.com/JaimeStill/docket/internal/ocr"
	"github.com/JaimeStill/docket/internal/places"
	"github.com/JaimeStill/docket/internal/search"
	"github.com/JaimeStill/docket/internal/segment"
	"github.com/JaimeStill/docket/internal/tasks"
	"github.com/JaimeStill/docket/internal/votes"
)

// ExtractResult is the stored result of an extract task.
type ExtractResult struct {
	DocumentID uuid.UUID `json:"document_id"`
	Extractor  string    `json:"extractor"`
	Pages      int       `json:"pages"`
	Hash       string    `json:"hash"`
	Changed    bool      `json:"changed"`
	Layout     bool      `json:"layout"`
	Skipped    bool      `json:"skipped,omitempty"`
}

// SegmentResult is the stored result of a segment task.
type SegmentResult struct {
	DocumentID uuid.UUID `json:"document_id"`
	Skipped    bool      `json:"skipped,omitempty"`
	segment.Result
}

// Stages returns the stage registry for every pipeline operation.
// Document stages chain extract → segment → verify_votes.
func Stages(rt *Runtime) tasks.Registry {
	s := &stages{rt: rt, logger: rt.Logger.With("system", "workflow")}
	return tasks.Registry{
		tasks.OpExtract: {
			Run:   s.extract,
			Check: s.checkDocument,
			Next:  tasks.OpSegment,
		},
		tasks.OpSegment: {
			Run:   s.segment,
			Check: s.checkDocument,
			Next:  tasks.OpVerifyVotes,
		},
		tasks.OpVerifyVotes: {
			Run:   s.verifyVotes,
			Check: s.checkDocument,
		},
		tasks.OpSummarize: {
			Run:   s.summarize,
			Check: s.checkDocument,
		},
		tasks.OpRecomputeLineage: {
			Run:   s.recomputeLineage,
			Check: s.checkPlace,
		},
	}
}

type stages struct {
	rt     *Runtime
	logger *slog.Logger
}

func (s *stages) checkDocument(ctx context.Context, cmd tasks.Command) error {
	if _, err := s.rt.Documents.Find(ctx, cmd.TargetID); err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return fmt.Errorf("%w: document %s", tasks.ErrInvalidTarget, cmd.TargetID)
		}
		return err
	}
	return nil
}

func (s *stages) checkPlace(ctx context.Context, cmd tasks.Command) error {
	if _, err := s.rt.Places.Find(ctx, cmd.TargetID); err != nil {
		if errors.Is(err, places.ErrNotFound) {
			return fmt.Errorf("%w: place %s", tasks.ErrInvalidTarget, cmd.TargetID)
		}
		return err
	}
	return nil
}

// extract reads the stored source, runs text extraction, and records the
// canonical text. A changed hash leaves agenda and summary stale.
func (s *stages) extract(ctx context.Context, t tasks.Task) (any, error) {
	doc, err := s.rt.Documents.Find(ctx, t.TargetID)
	if err != nil {
		return nil, err
	}

	result := ExtractResult{
		DocumentID: doc.ID,
		Extractor:  s.rt.Extractor.Name(),
	}

	if !t.Force && doc.ExtractionStatus == documents.Extracted {
		result.Hash = doc.Hash()
		result.Skipped = true
		if doc.PageCount != nil {
			result.Pages = *doc.PageCount
		}
		return result, nil
	}

	data, err := s.rt.Documents.Source(ctx, doc.ID)
	if err != nil {
		return nil, s.extractionFailed(ctx, doc.ID, err)
	}

	out, err := s.rt.Extractor.Extract(ctx, data)
	if err != nil {
		return nil, s.extractionFailed(ctx, doc.ID, err)
	}

	norm := normalize.Normalize(out.Text)
	if norm.Text == "" {
		return nil, s.extractionFailed(ctx, doc.ID, ocr.ErrNoText)
	}

	pages := norm.Pages
	if out.Pages > pages {
		pages = out.Pages
	}

	if _, err := s.rt.Documents.SetText(ctx, doc.ID, norm.Text, norm.Hash, pages); err != nil {
		return nil, fmt.Errorf("store text: %w", err)
	}

	if out.Layout != nil {
		if err := s.rt.Documents.SaveLayout(ctx, doc.ID, out.Layout); err != nil {
			return nil, fmt.Errorf("store layout: %w", err)
		}
		result.Layout = true
	}

	result.Pages = pages
	result.Hash = norm.Hash
	result.Changed = norm.Hash != doc.Hash()

	s.logger.InfoContext(ctx, "document extracted",
		"document_id", doc.ID,
		"extractor", result.Extractor,
		"pages", pages,
		"changed", result.Changed,
	)

	s.index(ctx, doc.ID)
	return result, nil
}

func (s *stages) extractionFailed(ctx context.Context, id uuid.UUID, cause error) error {
	if err := s.rt.Documents.SetExtractionError(context.WithoutCancel(ctx), id, cause.Error()); err != nil {
		s.logger.WarnContext(ctx, "record extraction error", "document_id", id, "error", err)
	}
	return fmt.Errorf("extract %s: %w", id, cause)
}

// segment resolves agenda items. A current segmented or empty agenda is
// left alone unless forced; otherwise the prior set is replaced in one
// transaction.
func (s *stages) segment(ctx context.Context, t tasks.Task) (any, error) {
	doc, err := s.rt.Documents.Find(ctx, t.TargetID)
	if err != nil {
		return nil, err
	}

	result := SegmentResult{DocumentID: doc.ID}

	if !t.Force && doc.AgendaCurrent() &&
		(doc.AgendaStatus == documents.AgendaSegmented || doc.AgendaStatus == documents.AgendaEmpty) {
		result.Skipped = true
		result.Status = doc.AgendaStatus
		return result, nil
	}

	content, err := s.rt.Documents.Content(ctx, doc.ID)
	if err != nil {
		if errors.Is(err, documents.ErrNoText) {
			return nil, fmt.Errorf("%w: %s", ErrNotExtracted, doc.ID)
		}
		return nil, err
	}

	in := segment.Input{Document: doc, Text: content.Text}
	if in.Place, err = s.rt.Places.Find(ctx, doc.PlaceID); err != nil {
		return nil, fmt.Errorf("find place: %w", err)
	}
	if in.Meeting, err = s.rt.Places.FindMeeting(ctx, doc.MeetingID); err != nil {
		return nil, fmt.Errorf("find meeting: %w", err)
	}

	res, err := s.rt.Segmenter.Resolve(ctx, in)
	if err != nil {
		if ctx.Err() == nil {
			if ferr := s.rt.Documents.SetAgendaFailed(context.WithoutCancel(ctx), doc.ID, err.Error()); ferr != nil {
				s.logger.WarnContext(ctx, "record agenda failure", "document_id", doc.ID, "error", ferr)
			}
		}
		return nil, fmt.Errorf("segment %s: %w", doc.ID, err)
	}

	if _, err := s.rt.Items.ReplaceForDocument(ctx, doc.ID, res.Drafts, res.Status, content.Hash); err != nil {
		return nil, fmt.Errorf("store agenda: %w", err)
	}

	s.logger.InfoContext(ctx, "document segmented",
		"document_id", doc.ID,
		"status", res.Status,
		"source", res.Source,
		"items", res.Items,
	)

	s.index(ctx, doc.ID)
	result.Result = res
	return result, nil
}

func (s *stages) verifyVotes(ctx context.Context, t tasks.Task) (any, error) {
	hist, err := s.rt.Verifier.Process(ctx, votes.Request{
		DocumentID: t.TargetID,
		Force:      t.Force,
	})
	if err != nil {
		return nil, err
	}

	s.index(ctx, t.TargetID)
	return hist, nil
}

func (s *stages) summarize(ctx context.Context, t tasks.Task) (any, error) {
	out, err := s.rt.Summarizer.Summarize(ctx, t.TargetID, t.Force)
	if err != nil {
		return nil, err
	}

	if !out.Skipped {
		s.index(ctx, t.TargetID)
	}
	return out, nil
}

func (s *stages) recomputeLineage(ctx context.Context, t tasks.Task) (any, error) {
	snap, err := s.rt.Lineage.Recompute(ctx, t.TargetID)
	if err != nil {
		return nil, fmt.Errorf("place %s: %w", t.TargetID, err)
	}
	return snap.Summary(), nil
}

// index pushes the document's current record to the search sink. Sink
// failures never fail a stage.
func (s *stages) index(ctx context.Context, id uuid.UUID) {
	if s.rt.Search == nil {
		return
	}

	doc, err := s.rt.Documents.Find(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "search index skipped", "document_id", id, "error", err)
		return
	}

	items, err := s.rt.Items.ForDocument(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "search index skipped", "document_id", id, "error", err)
		return
	}

	if err := s.rt.Search.Index(ctx, search.NewRecord(doc, items)); err != nil {
		s.logger.WarnContext(ctx, "search index failed", "document_id", id, "error", err)
	}
}
