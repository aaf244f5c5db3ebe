package agenda

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/docket/pkg/handlers"
	"github.com/JaimeStill/docket/pkg/routes"
)

const maxOutcomeBody = 64 << 10

// Handler provides HTTP endpoints for agenda items.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "agenda"),
	}
}

// Routes returns the item routes and the per-document item listing.
func (h *Handler) Routes() []routes.Group {
	return []routes.Group{
		{
			Prefix: "/items",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "/{id}", Handler: h.Find},
				{Method: "PUT", Pattern: "/{id}/outcome", Handler: h.SetOutcome},
			},
		},
		{
			Prefix: "/documents/{id}/items",
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

	it, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, it)
}

func (h *Handler) ForDocument(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathUUID(r, "id")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	items, err := h.sys.ForDocument(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, items)
}

// SetOutcome records a manual outcome, which no automated source can
// overwrite.
func (h *Handler) SetOutcome(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathUUID(r, "id")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	cmd, err := handlers.DecodeJSON[OutcomeCommand](r, maxOutcomeBody)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	it, err := h.sys.SetManualOutcome(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, it)
}
