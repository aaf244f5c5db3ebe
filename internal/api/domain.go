package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/config"
	"github.com/JaimeStill/docket/internal/documents"
	"github.com/JaimeStill/docket/internal/lineage"
	"github.com/JaimeStill/docket/internal/places"
	"github.com/JaimeStill/docket/internal/prompts"
	"github.com/JaimeStill/docket/internal/search"
	"github.com/JaimeStill/docket/internal/segment"
	"github.com/JaimeStill/docket/internal/status"
	"github.com/JaimeStill/docket/internal/summaries"
	"github.com/JaimeStill/docket/internal/tasks"
	"github.com/JaimeStill/docket/internal/votes"
	"github.com/JaimeStill/docket/internal/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Places    places.System
	Documents documents.System
	Agenda    agenda.System
	Prompts   prompts.System
	Lineage   lineage.System
	Status    status.System
	Tasks     tasks.System
	Search    search.Indexer
}

// NewDomain creates all domain systems from the API runtime and binds the
// pipeline stages to the task core.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	placesSystem := places.New(db, runtime.Logger, runtime.Pagination)

	docsSystem := documents.New(
		db,
		runtime.Storage,
		placesSystem,
		runtime.Logger,
		runtime.Pagination,
		cfg.Storage.MaxUploadBytes(),
	)

	agendaSystem := agenda.New(db, runtime.Logger)
	promptsSystem := prompts.New(db, runtime.Logger, runtime.Pagination)
	lineageSystem := lineage.New(&cfg.Lineage, db, runtime.Logger)
	indexer := search.New(&cfg.Search, runtime.Logger)

	resolver := segment.NewResolver(
		&cfg.Segment,
		runtime.Engine.Enabled(),
		runtime.Logger,
		segment.NewLegistarStrategy(runtime.Legistar),
		segment.NewHTMLStrategy(&cfg.Segment),
		segment.NewInferenceStrategy(runtime.Engine, promptsSystem, &cfg.Segment),
	)

	verifier := votes.New(&cfg.Votes, votes.Runtime{
		Documents: docsSystem,
		Places:    placesSystem,
		Items:     agendaSystem,
		Legistar:  runtime.Legistar,
		Engine:    runtime.Engine,
		Prompts:   promptsSystem,
		Logger:    runtime.Logger,
	})

	summarizer := summaries.New(&cfg.Summary, summaries.Runtime{
		Documents: docsSystem,
		Engine:    runtime.Engine,
		Prompts:   promptsSystem,
		Logger:    runtime.Logger,
	})

	registry := workflow.Stages(&workflow.Runtime{
		Documents:  docsSystem,
		Places:     placesSystem,
		Items:      agendaSystem,
		Extractor:  runtime.Extractor,
		Segmenter:  resolver,
		Verifier:   verifier,
		Summarizer: summarizer,
		Lineage:    lineageSystem,
		Search:     indexer,
		Logger:     runtime.Logger,
	})

	tasksSystem := tasks.New(&cfg.Worker, db, registry, runtime.Logger, runtime.Pagination)

	return &Domain{
		Places:    placesSystem,
		Documents: docsSystem,
		Agenda:    agendaSystem,
		Prompts:   promptsSystem,
		Lineage:   lineageSystem,
		Status:    status.New(docsSystem, agendaSystem, lineageSystem, runtime.Logger),
		Tasks:     tasksSystem,
		Search:    indexer,
	}
}

// Dispatch submits a forced extract for a document whose source arrived or
// changed. Chaining carries it through segmentation and vote verification.
func (d *Domain) Dispatch(ctx context.Context, documentID uuid.UUID) error {
	_, err := d.Tasks.Submit(ctx, tasks.Command{
		Operation: tasks.OpExtract,
		TargetID:  documentID,
		Force:     true,
	})
	return err
}

// Start registers the domain's background work with the lifecycle
// coordinator.
func (d *Domain) Start(runtime *Runtime) {
	runtime.Engine.Start(runtime.Lifecycle)
	d.Search.Start(runtime.Lifecycle)
	d.Tasks.Start(runtime.Lifecycle)
}
