// Package handler exposes the schedule catalog read endpoints.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	schedule "adoro/internal/schedule/service"
	dErrors "adoro/pkg/domain-errors"
	"adoro/pkg/platform/httputil"
)

// Handler serves the collection and period listings the registration form
// is built from.
type Handler struct {
	service *schedule.Service
	logger  *slog.Logger
}

// New constructs a schedule handler.
func New(service *schedule.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/collections", h.HandleListCollections)
	r.Get("/collections/{id}/periods", h.HandleListPeriods)
}

type collectionResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Languages   []string  `json:"languages"`
}

// HandleListCollections handles GET /collections?lang=.
func (h *Handler) HandleListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.service.ListCollections(r.Context(), r.URL.Query().Get("lang"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list collections failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	out := make([]collectionResponse, 0, len(collections))
	for _, c := range collections {
		out = append(out, collectionResponse{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Languages:   c.Languages,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"collections": out})
}

type periodResponse struct {
	SlotRef     string `json:"slot_ref"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Registered  int    `json:"registered"`
}

// HandleListPeriods handles GET /collections/{id}/periods?lang=.
func (h *Handler) HandleListPeriods(w http.ResponseWriter, r *http.Request) {
	collectionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "collection not found"))
		return
	}

	slots, err := h.service.ListSlots(r.Context(), collectionID, r.URL.Query().Get("lang"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]periodResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, periodResponse{
			SlotRef:     s.SlotRef,
			Name:        s.PeriodName,
			Description: s.Description,
			Registered:  s.Registered,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"periods": out})
}
