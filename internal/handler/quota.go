package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fortunia-app/fortunia-api/internal/auth"
	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/entitlement"
)

// QuotaHandler reports a principal's entitlement state.
type QuotaHandler struct {
	resolver     *auth.Resolver
	entitlements entitlement.Store
	logger       *slog.Logger
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(resolver *auth.Resolver, entitlements entitlement.Store, logger *slog.Logger) *QuotaHandler {
	return &QuotaHandler{
		resolver:     resolver,
		entitlements: entitlements,
		logger:       logger,
	}
}

// RegisterRoutes registers quota routes with the provided mux.
func (h *QuotaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /quota", h.Status)
}

type quotaRequest struct {
	UserID string `json:"user_id,omitempty"`
}

type quotaResponse struct {
	Success        bool `json:"success"`
	QuotaUsed      int  `json:"quota_used"`
	QuotaLimit     int  `json:"quota_limit"`
	QuotaRemaining int  `json:"quota_remaining"`
	IsPremium      bool `json:"is_premium"`
}

// Status handles POST /quota.
func (h *QuotaHandler) Status(w http.ResponseWriter, r *http.Request) {
	const op = "handler.quota.status"

	var req quotaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid JSON body"))
		return
	}

	res, err := h.resolver.Resolve(r.Header.Get("Authorization"), req.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	// Quota is identity-sensitive: a supplied id that disagrees with the
	// token is rejected rather than answered on the token's behalf.
	if res.TokenMismatch {
		ErrorResponse(w, r, h.logger, domain.Forbidden(op, "user_id does not match authenticated identity"))
		return
	}

	state, err := h.entitlements.GetStatus(r.Context(), res.Principal.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, quotaResponse{
		Success:        true,
		QuotaUsed:      state.QuotaUsed,
		QuotaLimit:     state.QuotaLimit,
		QuotaRemaining: state.QuotaRemaining(),
		IsPremium:      state.IsPremium,
	})
}
