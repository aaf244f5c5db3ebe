package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/documents"
	"github.com/JaimeStill/docket/internal/places"
)

// ErrAllSourcesFailed reports that every available strategy errored and
// none produced a usable result.
var ErrAllSourcesFailed = errors.New("all segmentation sources failed")

// Result is the outcome of one resolve. Status is segmented when Drafts is
// non-empty, otherwise empty.
type Result struct {
	Drafts   []agenda.Draft    `json:"-"`
	Items    int               `json:"items"`
	Source   string            `json:"source,omitempty"`
	Status   string            `json:"status"`
	Rejected map[string]int    `json:"rejected"`
	Failures map[string]string `json:"failures,omitempty"`
}

// Resolver tries strategies in trust order.
type Resolver struct {
	cfg        *Config
	strategies []Strategy
	inference  bool
	logger     *slog.Logger
}

// NewResolver creates a Resolver over strategies, which must be ordered
// from most to least trusted. inference reports whether the engine is
// enabled.
func NewResolver(cfg *Config, inference bool, logger *slog.Logger, strategies ...Strategy) *Resolver {
	return &Resolver{
		cfg:        cfg,
		strategies: strategies,
		inference:  inference,
		logger:     logger.With("system", "segment"),
	}
}

// Resolve segments in.Text. Zero usable items is an empty result, not an
// error. Errors from every attempted source, or a cancelled context, are
// returned and nothing is produced.
func (r *Resolver) Resolve(ctx context.Context, in Input) (Result, error) {
	mode := places.ModeBalanced
	if in.Place != nil && in.Place.SegmentationMode != "" {
		mode = in.Place.SegmentationMode
	}
	th := r.cfg.Thresholds(mode)
	caps := CapabilitiesOf(in, r.inference)

	result := Result{
		Status:   documents.AgendaEmpty,
		Rejected: make(map[string]int),
	}

	var (
		lastErr   error
		succeeded bool
	)

	for _, s := range r.strategies {
		if !s.Available(caps) {
			continue
		}

		cands, err := s.Resolve(ctx, in)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			r.logger.WarnContext(ctx, "segmentation source failed",
				"strategy", s.Name(),
				"document_id", documentID(in),
				"error", err,
			)
			if result.Failures == nil {
				result.Failures = make(map[string]string)
			}
			result.Failures[s.Name()] = err.Error()
			lastErr = err
			continue
		}
		succeeded = true

		kept, rejected := filter(cands, in.Text, th, r.cfg.TailChars)
		for reason, n := range rejected {
			result.Rejected[reason] += n
		}

		if len(kept) == 0 {
			r.logger.InfoContext(ctx, "segmentation source yielded no usable items",
				"strategy", s.Name(),
				"document_id", documentID(in),
				"candidates", len(cands),
			)
			continue
		}

		result.Drafts = toDrafts(kept, s.Source())
		result.Items = len(result.Drafts)
		result.Source = s.Name()
		result.Status = documents.AgendaSegmented
		return result, nil
	}

	if !succeeded && lastErr != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrAllSourcesFailed, lastErr)
	}
	return result, nil
}

// toDrafts numbers candidates from 1 and resolves parent markers to the
// order of the nearest preceding top-level item carrying that marker.
func toDrafts(cands []Candidate, source agenda.Source) []agenda.Draft {
	drafts := make([]agenda.Draft, 0, len(cands))
	topLevel := make(map[string]int)

	for i, c := range cands {
		order := i + 1
		d := agenda.Draft{
			Order:          order,
			Marker:         c.Marker,
			Title:          c.Title,
			Description:    c.Description,
			Classification: Classify(c.Title, c.Description),
			Source:         source,
		}
		if c.Page > 0 {
			page := c.Page
			d.PageNumber = &page
		}

		if c.ParentMarker != "" {
			if parent, ok := topLevel[c.ParentMarker]; ok {
				d.ParentOrder = &parent
			}
		} else if c.Marker != "" {
			topLevel[c.Marker] = order
		}

		drafts = append(drafts, d)
	}
	return drafts
}

func documentID(in Input) any {
	if in.Document == nil {
		return nil
	}
	return in.Document.ID
}
