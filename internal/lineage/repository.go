package lineage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/database"
	"github.com/JaimeStill/docket/pkg/repository"
)

// Store reads lineage inputs and persists recompute results.
type Store interface {
	Nodes(ctx context.Context, placeID uuid.UUID) ([]Node, error)
	// Replace swaps in a place's groups and records the run in one
	// transaction.
	Replace(ctx context.Context, placeID uuid.UUID, groups []Group, computedAt time.Time) error
	// LastRun returns when the place was last recomputed, or nil.
	LastRun(ctx context.Context, placeID uuid.UUID) (*time.Time, error)

	Find(ctx context.Context, lineageID uuid.UUID) (*View, error)
	ForItem(ctx context.Context, itemID uuid.UUID) (*View, error)
	ForDocument(ctx context.Context, documentID uuid.UUID) ([]View, error)
}

// Locker takes the system-wide recompute lock without blocking.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(context.Context) error, err error)
}

const lockName = "docket:lineage:recompute"

type advisoryLocker struct {
	db *sql.DB
}

func (l advisoryLocker) TryLock(ctx context.Context) (func(context.Context) error, error) {
	lock, err := database.TryAdvisoryLock(ctx, l.db, database.LockKey(lockName))
	if errors.Is(err, database.ErrLockHeld) {
		return nil, ErrRecomputeInProgress
	}
	if err != nil {
		return nil, err
	}
	return lock.Unlock, nil
}

type repo struct {
	db *sql.DB
}

func (r *repo) Nodes(ctx context.Context, placeID uuid.UUID) ([]Node, error) {
	q := `
		SELECT i.id, i.document_id, d.meeting_id, i.title, m.record_date, i.lineage_id
		FROM agenda_items i
		JOIN documents d ON d.id = i.document_id
		JOIN meetings m ON m.id = d.meeting_id
		WHERE m.place_id = $1
		ORDER BY i.id`

	nodes, err := repository.QueryMany(ctx, r.db, q, []any{placeID}, scanNode)
	if err != nil {
		return nil, fmt.Errorf("query lineage nodes: %w", err)
	}
	return nodes, nil
}

func (r *repo) Replace(ctx context.Context, placeID uuid.UUID, groups []Group, computedAt time.Time) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		_, err := tx.ExecContext(ctx, `
			UPDATE agenda_items i
			SET lineage_id = NULL, lineage_confidence = NULL
			FROM documents d, meetings m
			WHERE d.id = i.document_id AND m.id = d.meeting_id
				AND m.place_id = $1 AND i.lineage_id IS NOT NULL`,
			placeID,
		)
		if err != nil {
			return struct{}{}, fmt.Errorf("clear item lineage: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM lineage_groups WHERE place_id = $1", placeID); err != nil {
			return struct{}{}, fmt.Errorf("clear lineage groups: %w", err)
		}

		for _, g := range groups {
			if err := insertGroup(ctx, tx, g); err != nil {
				return struct{}{}, err
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO lineage_runs(place_id, computed_at, group_count)
			VALUES ($1, $2, $3)
			ON CONFLICT (place_id) DO UPDATE
			SET computed_at = EXCLUDED.computed_at, group_count = EXCLUDED.group_count`,
			placeID, computedAt, len(groups),
		)
		if err != nil {
			return struct{}{}, fmt.Errorf("record lineage run: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

func (r *repo) LastRun(ctx context.Context, placeID uuid.UUID) (*time.Time, error) {
	at, err := repository.QueryOptional(ctx, r.db,
		"SELECT computed_at FROM lineage_runs WHERE place_id = $1",
		[]any{placeID},
		func(s repository.Scanner) (time.Time, error) {
			var t time.Time
			err := s.Scan(&t)
			return t, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("query lineage run: %w", err)
	}
	return at, nil
}

func insertGroup(ctx context.Context, tx *sql.Tx, g Group) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO lineage_groups(lineage_id, place_id, confidence, low_confidence, member_count, document_count)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		g.LineageID, g.PlaceID, g.Confidence, g.LowConfidence, len(g.Members), g.DocumentCount,
	)
	if err != nil {
		return fmt.Errorf("insert lineage group %s: %w", g.LineageID, err)
	}

	for _, m := range g.Members {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO lineage_members(lineage_id, item_id, document_id, confidence)
			VALUES ($1, $2, $3, $4)`,
			g.LineageID, m.ItemID, m.DocumentID, m.Confidence,
		)
		if err != nil {
			return fmt.Errorf("insert lineage member %s: %w", m.ItemID, err)
		}

		err = repository.ExecExpectOne(ctx, tx, `
			UPDATE agenda_items SET lineage_id = $2, lineage_confidence = $3 WHERE id = $1`,
			m.ItemID, g.LineageID, m.Confidence,
		)
		if err != nil {
			return fmt.Errorf("link item %s: %w", m.ItemID, err)
		}
	}
	return nil
}

const groupColumns = `g.lineage_id, g.place_id, g.confidence, g.low_confidence,
	g.member_count, g.document_count, g.updated_at`

func (r *repo) Find(ctx context.Context, lineageID uuid.UUID) (*View, error) {
	q := "SELECT " + groupColumns + " FROM lineage_groups g WHERE g.lineage_id = $1"
	return r.view(ctx, q, lineageID)
}

func (r *repo) ForItem(ctx context.Context, itemID uuid.UUID) (*View, error) {
	q := "SELECT " + groupColumns + `
		FROM lineage_groups g
		JOIN lineage_members lm ON lm.lineage_id = g.lineage_id
		WHERE lm.item_id = $1`
	return r.view(ctx, q, itemID)
}

func (r *repo) ForDocument(ctx context.Context, documentID uuid.UUID) ([]View, error) {
	q := "SELECT DISTINCT " + groupColumns + `
		FROM lineage_groups g
		JOIN lineage_members lm ON lm.lineage_id = g.lineage_id
		WHERE lm.document_id = $1
		ORDER BY g.lineage_id`

	views, err := repository.QueryMany(ctx, r.db, q, []any{documentID}, scanView)
	if err != nil {
		return nil, fmt.Errorf("query document lineage: %w", err)
	}
	for i := range views {
		if views[i].Members, err = r.members(ctx, views[i].LineageID); err != nil {
			return nil, err
		}
	}
	return views, nil
}

func (r *repo) view(ctx context.Context, q string, id uuid.UUID) (*View, error) {
	v, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanView)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	if v.Members, err = r.members(ctx, v.LineageID); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repo) members(ctx context.Context, lineageID uuid.UUID) ([]MemberView, error) {
	q := `
		SELECT lm.item_id, lm.document_id, i.title, m.record_date, lm.confidence
		FROM lineage_members lm
		JOIN agenda_items i ON i.id = lm.item_id
		JOIN documents d ON d.id = lm.document_id
		JOIN meetings m ON m.id = d.meeting_id
		WHERE lm.lineage_id = $1
		ORDER BY m.record_date, lm.item_id`

	members, err := repository.QueryMany(ctx, r.db, q, []any{lineageID}, scanMember)
	if err != nil {
		return nil, fmt.Errorf("query lineage members: %w", err)
	}
	return members, nil
}

func scanNode(s repository.Scanner) (Node, error) {
	var n Node
	err := s.Scan(&n.ItemID, &n.DocumentID, &n.MeetingID, &n.Title, &n.RecordDate, &n.PriorID)
	return n, err
}

func scanView(s repository.Scanner) (View, error) {
	var v View
	err := s.Scan(
		&v.LineageID, &v.PlaceID, &v.Confidence, &v.LowConfidence,
		&v.MemberCount, &v.DocumentCount, &v.UpdatedAt,
	)
	return v, err
}

func scanMember(s repository.Scanner) (MemberView, error) {
	var m MemberView
	err := s.Scan(&m.ItemID, &m.DocumentID, &m.Title, &m.RecordDate, &m.Confidence)
	return m, err
}
