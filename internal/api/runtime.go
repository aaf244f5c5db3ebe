package api

import (
	"github.com/JaimeStill/docket/internal/config"
	"github.com/JaimeStill/docket/internal/inference"
	"github.com/JaimeStill/docket/internal/infrastructure"
	"github.com/JaimeStill/docket/internal/legistar"
	"github.com/JaimeStill/docket/internal/ocr"
	"github.com/JaimeStill/docket/pkg/pagination"
)

// Runtime extends Infrastructure with the API's external collaborators.
// The engine is constructed once here and passed by reference to every
// stage that generates.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Engine     *inference.Engine
	Legistar   legistar.Client
	Extractor  ocr.Extractor
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	logger := infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    logger,
			Database:  infra.Database,
			Storage:   infra.Storage,
			Redis:     infra.Redis,
		},
		Pagination: cfg.API.Pagination,
		Engine:     inference.NewEngine(&cfg.Engine, inference.NewAgent(&cfg.Engine), logger),
		Legistar:   legistar.New(&cfg.Legistar, logger),
		Extractor:  ocr.New(&cfg.OCR),
	}
}
