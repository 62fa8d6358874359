package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/fortunia-app/fortunia-api/internal/domain"
)

// GuestProvisioner creates the user row backing a new guest identity.
type GuestProvisioner interface {
	CreateUser(ctx context.Context, id uuid.UUID) error
}

// GuestHandler issues server-provisioned guest ids so clients never
// mint their own identities.
type GuestHandler struct {
	repo   GuestProvisioner
	logger *slog.Logger
}

// NewGuestHandler creates a new GuestHandler.
func NewGuestHandler(repo GuestProvisioner, logger *slog.Logger) *GuestHandler {
	return &GuestHandler{
		repo:   repo,
		logger: logger,
	}
}

// RegisterRoutes registers guest routes with the provided mux.
func (h *GuestHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /guests", h.Create)
}

type guestResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id"`
}

// Create handles POST /guests.
func (h *GuestHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handler.guests.create"

	id := uuid.New()
	if err := h.repo.CreateUser(r.Context(), id); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to provision guest"))
		return
	}

	h.logger.Info("guest provisioned", "user_id", id)
	writeJSON(w, http.StatusOK, guestResponse{Success: true, UserID: id.String()})
}
