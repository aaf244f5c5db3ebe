package lineage

import (
	"context"
	"database/sql"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// System defines the public contract for lineage operations.
type System interface {
	Handler() *Handler

	// Recompute rebuilds every group of a place. It returns
	// ErrRecomputeInProgress without waiting when another recompute holds
	// the lock, in this process or any other.
	Recompute(ctx context.Context, placeID uuid.UUID) (*Snapshot, error)
	// Current returns the last snapshot this process published for a place.
	Current(placeID uuid.UUID) *Snapshot
	// ComputedAt returns when the place was last recomputed by any process,
	// or nil when it never was.
	ComputedAt(ctx context.Context, placeID uuid.UUID) (*time.Time, error)

	Find(ctx context.Context, lineageID uuid.UUID) (*View, error)
	ForItem(ctx context.Context, itemID uuid.UUID) (*View, error)
	ForDocument(ctx context.Context, documentID uuid.UUID) ([]View, error)
}

type engine struct {
	cfg    *Config
	store  Store
	locker Locker
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	snapshots atomic.Pointer[map[uuid.UUID]*Snapshot]
}

// New creates a lineage System backed by PostgreSQL. The recompute lock is
// a session advisory lock.
func New(cfg *Config, db *sql.DB, logger *slog.Logger) System {
	return newEngine(cfg, &repo{db: db}, advisoryLocker{db: db}, logger)
}

func newEngine(cfg *Config, store Store, locker Locker, logger *slog.Logger) *engine {
	e := &engine{
		cfg:    cfg,
		store:  store,
		locker: locker,
		logger: logger.With("system", "lineage"),
		now:    time.Now,
	}
	e.snapshots.Store(&map[uuid.UUID]*Snapshot{})
	return e
}

func (e *engine) Handler() *Handler {
	return NewHandler(e, e.logger)
}

func (e *engine) Recompute(ctx context.Context, placeID uuid.UUID) (*Snapshot, error) {
	if !e.mu.TryLock() {
		return nil, ErrRecomputeInProgress
	}
	defer e.mu.Unlock()

	unlock, err := e.locker.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("release lineage lock", "error", err)
		}
	}()

	started := e.now()

	nodes, err := e.store.Nodes(ctx, placeID)
	if err != nil {
		return nil, err
	}

	groups := Compute(placeID, nodes, e.cfg)
	snap := newSnapshot(placeID, groups, e.now().UTC())

	if err := e.store.Replace(ctx, placeID, groups, snap.ComputedAt); err != nil {
		return nil, err
	}
	e.publish(snap)

	sum := snap.Summary()
	e.logger.InfoContext(ctx, "lineage recomputed",
		"place_id", placeID,
		"items", len(nodes),
		"groups", sum.Groups,
		"members", sum.Members,
		"low_confidence", sum.LowConfidence,
		"duration", e.now().Sub(started),
	)
	return snap, nil
}

// publish swaps in a copy of the snapshot map holding snap. Callers hold mu.
func (e *engine) publish(snap *Snapshot) {
	next := maps.Clone(*e.snapshots.Load())
	next[snap.PlaceID] = snap
	e.snapshots.Store(&next)
}

func (e *engine) Current(placeID uuid.UUID) *Snapshot {
	return (*e.snapshots.Load())[placeID]
}

func (e *engine) ComputedAt(ctx context.Context, placeID uuid.UUID) (*time.Time, error) {
	if snap := e.Current(placeID); snap != nil {
		at := snap.ComputedAt
		return &at, nil
	}
	return e.store.LastRun(ctx, placeID)
}

func (e *engine) Find(ctx context.Context, lineageID uuid.UUID) (*View, error) {
	return e.store.Find(ctx, lineageID)
}

func (e *engine) ForItem(ctx context.Context, itemID uuid.UUID) (*View, error) {
	return e.store.ForItem(ctx, itemID)
}

func (e *engine) ForDocument(ctx context.Context, documentID uuid.UUID) ([]View, error) {
	return e.store.ForDocument(ctx, documentID)
}
