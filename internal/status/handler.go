package status

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/docket/internal/agenda"
	"github.com/JaimeStill/docket/internal/documents"
	"github.com/JaimeStill/docket/pkg/handlers"
	"github.com/JaimeStill/docket/pkg/routes"
)

// Handler provides HTTP endpoints for derived status.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "status"),
	}
}

// Routes returns the document and item status routes.
func (h *Handler) Routes() []routes.Group {
	return []routes.Group{
		{
			Prefix: "/documents/{id}/status",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: h.Document},
			},
		},
		{
			Prefix: "/items/{id}/status",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: h.Item},
			},
		},
	}
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathUUID(r, "id")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	st, err := h.sys.Document(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, mapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, st)
}

func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathUUID(r, "id")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	st, err := h.sys.Item(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, mapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, st)
}

func mapHTTPStatus(err error) int {
	if errors.Is(err, agenda.ErrNotFound) {
		return agenda.MapHTTPStatus(err)
	}
	return documents.MapHTTPStatus(err)
}
