package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	meili "github.com/meilisearch/meilisearch-go"

	"github.com/JaimeStill/docket/pkg/lifecycle"
)

// Meili indexes records in Meilisearch. While the backend is unhealthy,
// writes return ErrUnavailable without a network round trip.
type Meili struct {
	cfg     *Config
	client  meili.ServiceManager
	healthy atomic.Bool
	logger  *slog.Logger
}

// NewMeili creates a Meilisearch indexer. No connection is made until Start.
func NewMeili(cfg *Config, logger *slog.Logger) *Meili {
	return &Meili{
		cfg:    cfg,
		client: meili.New(cfg.URL, meili.WithAPIKey(cfg.APIKey)),
		logger: logger,
	}
}

// Start checks the backend and configures the index at startup, then
// monitors health until shutdown. An unreachable backend does not fail
// startup.
func (m *Meili) Start(lc *lifecycle.Coordinator) {
	lc.OnStartup(func() error {
		m.check()
		return nil
	})
	lc.Go(m.monitor)
}

func (m *Meili) monitor(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.HealthIntervalDuration())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check()
		}
	}
}

// check refreshes the health flag and configures the index on recovery.
func (m *Meili) check() {
	_, err := m.client.Health()
	was := m.healthy.Swap(err == nil)

	switch {
	case err != nil && was:
		m.logger.Warn("meilisearch unavailable", "url", m.cfg.URL, "error", err)
	case err == nil && !was:
		m.logger.Info("meilisearch available, configuring index", "index", m.cfg.Index)
		m.configure()
	}
}

func (m *Meili) configure() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        m.cfg.Index,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("create index (may already exist)", "index", m.cfg.Index, "error", err)
	}

	index := m.client.Index(m.cfg.Index)

	filterable := []interface{}{"place_id", "meeting_id", "category", "record_date", "items.outcome", "items.lineage_id"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", "error", err)
	}

	searchable := []string{"items.title", "summary", "filename"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", "error", err)
	}
}

// Healthy reports whether the last health check succeeded.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Index(_ context.Context, rec Record) error {
	if !m.healthy.Load() {
		return ErrUnavailable
	}
	if _, err := m.client.Index(m.cfg.Index).AddDocuments([]Record{rec}, nil); err != nil {
		m.healthy.Store(false)
		return fmt.Errorf("index document %s: %w", rec.ID, err)
	}
	return nil
}

func (m *Meili) Delete(_ context.Context, documentID uuid.UUID) error {
	if !m.healthy.Load() {
		return ErrUnavailable
	}
	if _, err := m.client.Index(m.cfg.Index).DeleteDocument(documentID.String(), nil); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	return nil
}
