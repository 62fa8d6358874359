package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fortunia-app/fortunia-api/internal/auth"
	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/service"
	"github.com/fortunia-app/fortunia-api/internal/sharecard"
)

// ShareCardHandler renders share cards on demand.
type ShareCardHandler struct {
	resolver   *auth.Resolver
	shareCards *service.ShareCardService
	logger     *slog.Logger
}

// NewShareCardHandler creates a new ShareCardHandler.
func NewShareCardHandler(resolver *auth.Resolver, shareCards *service.ShareCardService, logger *slog.Logger) *ShareCardHandler {
	return &ShareCardHandler{
		resolver:   resolver,
		shareCards: shareCards,
		logger:     logger,
	}
}

// RegisterRoutes registers share-card routes with the provided mux.
func (h *ShareCardHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /share-cards", h.Create)
}

type shareCardRequest struct {
	FortuneText    string `json:"fortune_text"`
	ReadingType    string `json:"reading_type"`
	CulturalOrigin string `json:"cultural_origin"`
	UserID         string `json:"user_id"`
}

type shareCardResponse struct {
	Success      bool   `json:"success"`
	ShareCardURL string `json:"share_card_url"`
}

// Create handles POST /share-cards. Requires a bearer token.
func (h *ShareCardHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handler.sharecards.create"

	var req shareCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid JSON body"))
		return
	}
	if req.FortuneText == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "fortune_text is required"))
		return
	}

	res, err := h.resolver.Resolve(r.Header.Get("Authorization"), req.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if !res.Principal.IsRegistered() {
		ErrorResponse(w, r, h.logger, domain.Unauthorized(op, "A bearer token is required to create share cards"))
		return
	}

	url, err := h.shareCards.Create(r.Context(), res.Principal.ID, sharecard.RenderParams{
		FortuneText:    req.FortuneText,
		ReadingType:    domain.ReadingType(req.ReadingType),
		CulturalOrigin: domain.CulturalOrigin(req.CulturalOrigin),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, shareCardResponse{Success: true, ShareCardURL: url})
}
