package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fortunia-app/fortunia-api/internal/auth"
	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/repository"
)

// ProfileStore is the persistence surface for birth profiles.
type ProfileStore interface {
	GetBirthProfile(ctx context.Context, userID uuid.UUID) (domain.BirthProfile, error)
	UpdateBirthProfile(ctx context.Context, params repository.UpdateBirthProfileParams) error
}

// ProfileHandler stores the birth data used to personalize readings.
type ProfileHandler struct {
	resolver *auth.Resolver
	profiles ProfileStore
	logger   *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(resolver *auth.Resolver, profiles ProfileStore, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		resolver: resolver,
		profiles: profiles,
		logger:   logger,
	}
}

// RegisterRoutes registers profile routes with the provided mux.
func (h *ProfileHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("PUT /profile", h.Update)
	mux.HandleFunc("GET /profile", h.Get)
}

type profileRequest struct {
	UserID       string `json:"user_id,omitempty"`
	BirthDate    string `json:"birth_date,omitempty"` // "2006-01-02"
	BirthTime    string `json:"birth_time,omitempty"` // "HH:MM"
	BirthCity    string `json:"birth_city,omitempty"`
	BirthCountry string `json:"birth_country,omitempty"`
}

type profileResponse struct {
	Success      bool   `json:"success"`
	BirthDate    string `json:"birth_date,omitempty"`
	BirthTime    string `json:"birth_time,omitempty"`
	BirthCity    string `json:"birth_city,omitempty"`
	BirthCountry string `json:"birth_country,omitempty"`
}

// Update handles PUT /profile.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handler.profile.update"

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid JSON body"))
		return
	}

	res, err := h.resolver.Resolve(r.Header.Get("Authorization"), req.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if res.TokenMismatch {
		ErrorResponse(w, r, h.logger, domain.Forbidden(op, "user_id does not match authenticated identity"))
		return
	}

	params := repository.UpdateBirthProfileParams{
		UserID:       res.Principal.ID,
		BirthTime:    req.BirthTime,
		BirthCity:    req.BirthCity,
		BirthCountry: req.BirthCountry,
	}

	if req.BirthDate != "" {
		d, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "birth_date must be formatted YYYY-MM-DD"))
			return
		}
		params.BirthDate = &d
	}
	if req.BirthTime != "" {
		if _, err := time.Parse("15:04", req.BirthTime); err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "birth_time must be formatted HH:MM"))
			return
		}
	}

	if err := h.profiles.UpdateBirthProfile(r.Context(), params); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to save profile"))
		return
	}

	h.logger.Info("birth profile updated", "user_id", res.Principal.ID)
	writeJSON(w, http.StatusOK, profileResponse{
		Success:      true,
		BirthDate:    req.BirthDate,
		BirthTime:    req.BirthTime,
		BirthCity:    req.BirthCity,
		BirthCountry: req.BirthCountry,
	})
}

// Get handles GET /profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handler.profile.get"

	res, err := h.resolver.Resolve(r.Header.Get("Authorization"), r.URL.Query().Get("user_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if res.TokenMismatch {
		ErrorResponse(w, r, h.logger, domain.Forbidden(op, "user_id does not match authenticated identity"))
		return
	}

	profile, err := h.profiles.GetBirthProfile(r.Context(), res.Principal.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to load profile"))
		return
	}

	resp := profileResponse{
		Success:      true,
		BirthTime:    profile.BirthTime,
		BirthCity:    profile.BirthCity,
		BirthCountry: profile.BirthCountry,
	}
	if profile.BirthDate != nil {
		resp.BirthDate = profile.BirthDate.Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, resp)
}
