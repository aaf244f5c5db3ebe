package agenda

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/query"
	"github.com/JaimeStill/docket/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates an agenda repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "agenda"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Item, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	it, err := repository.QueryOne(ctx, r.db, q, args, scanItem)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &it, nil
}

func (r *repo) ForDocument(ctx context.Context, documentID uuid.UUID) ([]Item, error) {
	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("DocumentID", documentID).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanItem)
	if err != nil {
		return nil, fmt.Errorf("query agenda items: %w", err)
	}
	return items, nil
}

func (r *repo) ReplaceForDocument(
	ctx context.Context,
	documentID uuid.UUID,
	drafts []Draft,
	status, hash string,
) ([]Item, error) {
	insert := `
		INSERT INTO agenda_items(document_id, item_order, parent_order, marker, title, description,
			classification, page_number, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + itemColumns

	items, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) ([]Item, error) {
		n, err := repository.ExecAffected(ctx, tx, `
			UPDATE documents
			SET agenda_status = $2, agenda_hash = $3, agenda_error = NULL, updated_at = NOW()
			WHERE id = $1 AND content_hash IS NOT DISTINCT FROM $3`,
			documentID, status, hash,
		)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrConflict
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM agenda_items WHERE document_id = $1", documentID); err != nil {
			return nil, err
		}

		items := make([]Item, 0, len(drafts))
		for _, d := range drafts {
			if !d.Source.Valid() {
				return nil, fmt.Errorf("%w: item %d: %q", ErrInvalidSource, d.Order, d.Source)
			}

			args := []any{
				documentID, d.Order, d.ParentOrder, d.Marker, d.Title,
				d.Description, d.Classification, d.PageNumber, d.Source,
			}

			it, err := repository.QueryOne(ctx, tx, insert, args, scanItem)
			if err != nil {
				return nil, err
			}
			items = append(items, it)
		}
		return items, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"agenda replaced",
		"document_id", documentID,
		"status", status,
		"items", len(items),
	)
	return items, nil
}

func (r *repo) ApplyOutcome(
	ctx context.Context,
	id uuid.UUID,
	observed *Source,
	result Result,
	evidence []Evidence,
) (*Item, error) {
	if !result.Outcome.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResult, result.Outcome)
	}
	if !Decide(observed, result.Source) {
		return nil, ErrTrustConflict
	}

	args, err := outcomeArgs(result, evidence)
	if err != nil {
		return nil, err
	}
	args = append(args, id, sourceParam(observed))

	q := `
		UPDATE agenda_items
		SET outcome = $1, outcome_source = $2, tally = $3::jsonb, motion = $4::jsonb,
			votes = $5::jsonb, confidence = $6, verified = $7,
			evidence = evidence || $8::jsonb, updated_at = NOW()
		WHERE id = $9 AND outcome_source IS NOT DISTINCT FROM $10
		RETURNING ` + itemColumns

	it, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Item, error) {
		it, err := repository.QueryOptional(ctx, tx, q, args, scanItem)
		if err != nil || it != nil {
			return it, err
		}

		var exists bool
		if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM agenda_items WHERE id = $1)", id).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"outcome applied",
		"item_id", id,
		"source", result.Source,
		"outcome", result.Outcome,
		"verified", result.Verified,
	)
	return it, nil
}

func (r *repo) AppendEvidence(ctx context.Context, id uuid.UUID, evidence []Evidence) error {
	if len(evidence) == 0 {
		return nil
	}

	ev, err := jsonbList(evidence)
	if err != nil {
		return fmt.Errorf("encode evidence: %w", err)
	}

	err = repository.ExecExpectOne(ctx, r.db, `
		UPDATE agenda_items SET evidence = evidence || $2::jsonb, updated_at = NOW()
		WHERE id = $1`,
		id, ev,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) SetManualOutcome(ctx context.Context, id uuid.UUID, cmd OutcomeCommand) (*Item, error) {
	current, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	result := Result{
		Source:     SourceManual,
		Outcome:    cmd.Outcome,
		Tally:      cmd.Tally,
		Motion:     cmd.Motion,
		Votes:      cmd.Votes,
		Confidence: 1,
		Verified:   true,
	}

	return r.ApplyOutcome(ctx, id, current.OutcomeSource, result, nil)
}

func outcomeArgs(result Result, evidence []Evidence) ([]any, error) {
	tally, err := jsonb(result.Tally)
	if err != nil {
		return nil, fmt.Errorf("encode tally: %w", err)
	}
	motion, err := jsonb(result.Motion)
	if err != nil {
		return nil, fmt.Errorf("encode motion: %w", err)
	}
	votes, err := jsonbList(result.Votes)
	if err != nil {
		return nil, fmt.Errorf("encode votes: %w", err)
	}
	ev, err := jsonbList(evidence)
	if err != nil {
		return nil, fmt.Errorf("encode evidence: %w", err)
	}

	return []any{
		result.Outcome, result.Source, tally, motion,
		votes, result.Confidence, result.Verified, ev,
	}, nil
}

func sourceParam(s *Source) any {
	if s == nil {
		return nil
	}
	return string(*s)
}
