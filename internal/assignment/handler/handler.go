// Package handler wires the registration and deletion endpoints to the
// assignment service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"adoro/internal/assignment/models"
	"adoro/internal/assignment/service"
	dErrors "adoro/pkg/domain-errors"
	"adoro/pkg/platform/httputil"
	"adoro/pkg/requestcontext"
)

// Service defines the assignment operations the handler needs.
type Service interface {
	Register(ctx context.Context, req service.RegisterRequest) (*service.Registration, error)
	LookupByToken(ctx context.Context, candidateToken string) (*models.Assignment, error)
	DeleteByToken(ctx context.Context, candidateToken, claimedEmail string) (*models.Assignment, error)
}

// SlotGate checks that a slot exists and is open before the expensive part
// of registration runs. The core itself treats slot refs as opaque.
type SlotGate interface {
	SlotOpen(ctx context.Context, slotRef string) error
}

// Handler exposes registration and deletion over HTTP.
type Handler struct {
	service  Service
	logger   *slog.Logger
	validate *validator.Validate
	slots    SlotGate
}

// Option configures optional handler collaborators.
type Option func(*Handler)

// WithSlotGate attaches slot validation for registrations.
func WithSlotGate(g SlotGate) Option {
	return func(h *Handler) { h.slots = g }
}

// New constructs an assignment handler.
func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service:  service,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register mounts the endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/register", h.HandleRegister)
	r.Get("/delete/{token}", h.HandleDeleteLookup)
	r.Post("/delete/{token}", h.HandleDelete)
}

type registerRequest struct {
	CollectionRef string `json:"collection_ref" validate:"required"`
	SlotRef       string `json:"slot_ref" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"omitempty,max=15"`
}

type registerResponse struct {
	ID            uuid.UUID `json:"id"`
	CollectionRef string    `json:"collection_ref"`
	SlotRef       string    `json:"slot_ref"`
	DeletionLink  string    `json:"deletion_link"`
	CreatedAt     time.Time `json:"created_at"`
}

// HandleRegister handles POST /register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.Decode[registerRequest](w, r)
	if !ok {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid registration request"))
		return
	}
	if h.slots != nil {
		if err := h.slots.SlotOpen(ctx, req.SlotRef); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	reg, err := h.service.Register(ctx, service.RegisterRequest{
		CollectionRef: req.CollectionRef,
		SlotRef:       req.SlotRef,
		Email:         req.Email,
		Name:          req.Name,
		Phone:         req.Phone,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "registration failed",
			"request_id", requestID,
			"slot_ref", req.SlotRef,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration handled",
		"request_id", requestID,
		"record_id", reg.Record.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, registerResponse{
		ID:            reg.Record.ID,
		CollectionRef: reg.Record.CollectionRef,
		SlotRef:       reg.Record.SlotRef,
		DeletionLink:  reg.DeletionLink,
		CreatedAt:     reg.Record.CreatedAt,
	})
}

type deletionLookupResponse struct {
	CollectionRef string `json:"collection_ref"`
	SlotRef       string `json:"slot_ref"`
	EmailRequired bool   `json:"email_required"`
}

// HandleDeleteLookup handles GET /delete/{token}: the confirmation step of a
// cancellation link. The response carries only the refs needed to render the
// confirmation; failures are indistinguishable from a spent token.
func (h *Handler) HandleDeleteLookup(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.LookupByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deletionLookupResponse{
		CollectionRef: rec.CollectionRef,
		SlotRef:       rec.SlotRef,
		EmailRequired: true,
	})
}

type deleteRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
}

type deleteResponse struct {
	Status        string `json:"status"`
	CollectionRef string `json:"collection_ref"`
	SlotRef       string `json:"slot_ref"`
}

// HandleDelete handles POST /delete/{token}. An email in the body is
// verified against the record before deletion, mirroring the confirmation
// form of the registration mail.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var claimedEmail string
	if r.ContentLength > 0 {
		req, ok := httputil.Decode[deleteRequest](w, r)
		if !ok {
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid deletion request"))
			return
		}
		claimedEmail = req.Email
	}

	rec, err := h.service.DeleteByToken(ctx, chi.URLParam(r, "token"), claimedEmail)
	if err != nil {
		// Token not found and token mismatch share one message on purpose.
		h.logger.InfoContext(ctx, "deletion rejected", "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "deletion handled",
		"request_id", requestID,
		"record_id", rec.ID,
	)

	httputil.WriteJSON(w, http.StatusOK, deleteResponse{
		Status:        "cancelled",
		CollectionRef: rec.CollectionRef,
		SlotRef:       rec.SlotRef,
	})
}
