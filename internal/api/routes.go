package api

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/docket/internal/config"
	"github.com/JaimeStill/docket/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	logger *slog.Logger,
) {
	patterns := routes.Register(
		mux,
		domain.Tasks.Handler().Routes(),
		domain.Places.Handler().Routes(),
		domain.Documents.Handler(cfg.Storage.MaxUploadBytes(), domain.Dispatch).Routes(),
		domain.Prompts.Handler().Routes(),
	)
	patterns = append(patterns, routes.Register(mux, domain.Agenda.Handler().Routes()...)...)
	patterns = append(patterns, routes.Register(mux, domain.Status.Handler().Routes()...)...)
	patterns = append(patterns, routes.Register(mux, domain.Lineage.Handler().Routes()...)...)

	logger.Info("api routes registered", "base_path", cfg.API.BasePath, "count", len(patterns))
	for _, p := range patterns {
		logger.Debug("route", "pattern", p)
	}
}
