package lineage

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/docket/pkg/handlers"
	"github.com/JaimeStill/docket/pkg/routes"
)

// Handler provides HTTP endpoints for lineage reads.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "lineage"),
	}
}

// Routes returns lineage lookups by group, item, and document.
func (h *Handler) Routes() []routes.Group {
	return []routes.Group{
		{
			Prefix: "/lineage",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			},
		},
		{
			Prefix: "/items/{id}/lineage",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: h.ForItem},
			},
		},
		{
			Prefix: "/documents/{id}/lineage",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: h.ForDocument},
			},
		},
	}
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathUUID(r, "id")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	v, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, v)
}

func (h *Handler) ForItem(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathUUID(r, "id")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	v, err := h.sys.ForItem(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, v)
}

func (h *Handler) ForDocument(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathUUID(r, "id")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	views, err := h.sys.ForDocument(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, views)
}
