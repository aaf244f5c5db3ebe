// Package summaries generates grounded plain-language document summaries.
package summaries

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/documents"
	"github.com/JaimeStill/docket/internal/inference"
	"github.com/JaimeStill/docket/internal/normalize"
	"github.com/JaimeStill/docket/internal/prompts"
	"github.com/JaimeStill/docket/pkg/fuzzy"
)

// Documents is the document surface summaries read and write.
type Documents interface {
	Find(ctx context.Context, id uuid.UUID) (*documents.Document, error)
	Content(ctx context.Context, id uuid.UUID) (*documents.Content, error)
	SetSummary(ctx context.Context, id uuid.UUID, hash string, summary *string, status string) error
}

// Generator is the engine surface summaries use.
type Generator interface {
	Enabled() bool
	ContextChars() int
	Generate(ctx context.Context, req inference.Request) (inference.Response, error)
}

// Runtime bundles the collaborators of a Summarizer.
type Runtime struct {
	Documents Documents
	Engine    Generator
	Prompts   prompts.Instructor
	Logger    *slog.Logger
}

// Outcome reports one summarize run.
type Outcome struct {
	DocumentID uuid.UUID `json:"document_id"`
	Status     string    `json:"status"`
	Grounding  *float64  `json:"grounding,omitempty"`
	Skipped    bool      `json:"skipped,omitempty"`
}

// Summarizer runs the summarize stage.
type Summarizer struct {
	cfg *Config
	rt  Runtime
	log *slog.Logger
}

// New creates a Summarizer.
func New(cfg *Config, rt Runtime) *Summarizer {
	return &Summarizer{
		cfg: cfg,
		rt:  rt,
		log: rt.Logger.With("system", "summaries"),
	}
}

// Summarize writes a summary for a document, or records why none was
// written. A summary already derived from the current text is kept unless
// force is set. Engine failures are recorded as failed and returned.
func (s *Summarizer) Summarize(ctx context.Context, documentID uuid.UUID, force bool) (*Outcome, error) {
	doc, err := s.rt.Documents.Find(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if !force && doc.SummaryCurrent() && doc.SummaryStatus != documents.SummaryFailed {
		return &Outcome{DocumentID: documentID, Status: doc.SummaryStatus, Skipped: true}, nil
	}

	content, err := s.rt.Documents.Content(ctx, documentID)
	if err != nil {
		return nil, err
	}

	out := &Outcome{DocumentID: documentID}

	if normalize.AlphaCount(content.Text) < s.cfg.MinSignalChars {
		out.Status = documents.SummaryBlockedLowSignal
		return out, s.record(ctx, content, nil, out)
	}

	if !s.rt.Engine.Enabled() {
		return nil, inference.ErrDisabled
	}

	system, err := prompts.Compose(ctx, s.rt.Prompts, prompts.StageSummarize)
	if err != nil {
		return nil, err
	}

	resp, err := s.rt.Engine.Generate(ctx, inference.Request{
		Operation: inference.OpSummarize,
		System:    system,
		Prompt:    clip(content.Text, s.rt.Engine.ContextChars()),
	})
	if err != nil {
		out.Status = documents.SummaryFailed
		if rerr := s.record(context.WithoutCancel(ctx), content, nil, out); rerr != nil {
			return nil, errors.Join(err, rerr)
		}
		return nil, fmt.Errorf("generate summary: %w", err)
	}

	summary := strings.TrimSpace(resp.Text)
	score := Grounding(summary, content.Text, s.cfg.MinTokenChars)
	out.Grounding = &score

	if score < s.cfg.MinGrounding {
		out.Status = documents.SummaryBlockedUngrounded
		return out, s.record(ctx, content, nil, out)
	}

	out.Status = documents.SummaryExtracted
	return out, s.record(ctx, content, &summary, out)
}

func (s *Summarizer) record(ctx context.Context, content *documents.Content, summary *string, out *Outcome) error {
	if err := s.rt.Documents.SetSummary(ctx, content.DocumentID, content.Hash, summary, out.Status); err != nil {
		return fmt.Errorf("record summary: %w", err)
	}

	attrs := []any{"document_id", content.DocumentID, "status", out.Status}
	if out.Grounding != nil {
		attrs = append(attrs, "grounding", *out.Grounding)
	}
	s.log.InfoContext(ctx, "summary recorded", attrs...)
	return nil
}

// Grounding returns the share of the summary's content tokens that occur in
// the source. Tokens shorter than minChars are ignored. A summary with no
// content tokens scores zero.
func Grounding(summary, source string, minChars int) float64 {
	known := make(map[string]bool)
	for _, t := range fuzzy.Tokens(source) {
		known[t] = true
	}

	var total, hits int
	for _, t := range fuzzy.Tokens(summary) {
		if utf8.RuneCountInString(t) < minChars {
			continue
		}
		total++
		if known[t] {
			hits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// clip cuts s to at most n bytes on a rune boundary.
func clip(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
