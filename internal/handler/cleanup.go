package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/service"
)

// CleanupHandler lets operators trigger a retention sweep outside the
// scheduled run. Guarded by basic auth, not bearer tokens: callers are
// humans or cron, not app users.
type CleanupHandler struct {
	retention       *service.RetentionService
	retentionWindow time.Duration
	username        string
	password        string
	logger          *slog.Logger
}

// NewCleanupHandler creates a new CleanupHandler.
func NewCleanupHandler(retention *service.RetentionService, retentionWindow time.Duration, username, password string, logger *slog.Logger) *CleanupHandler {
	return &CleanupHandler{
		retention:       retention,
		retentionWindow: retentionWindow,
		username:        username,
		password:        password,
		logger:          logger,
	}
}

// RegisterRoutes registers cleanup routes with the provided mux.
func (h *CleanupHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /internal/cleanup", h.Trigger)
}

type cleanupResponse struct {
	Success bool                 `json:"success"`
	Summary service.SweepSummary `json:"summary"`
}

// Trigger handles POST /internal/cleanup.
func (h *CleanupHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	const op = "handler.cleanup.trigger"

	user, pass, ok := r.BasicAuth()
	if !ok ||
		subtle.ConstantTimeCompare([]byte(user), []byte(h.username)) != 1 ||
		subtle.ConstantTimeCompare([]byte(pass), []byte(h.password)) != 1 {
		w.Header().Set("WWW-Authenticate", `Basic realm="cleanup"`)
		ErrorResponse(w, r, h.logger, domain.Unauthorized(op, "Authentication required"))
		return
	}

	cutoff := time.Now().Add(-h.retentionWindow)
	summary, err := h.retention.Sweep(r.Context(), cutoff)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, cleanupResponse{Success: true, Summary: summary})
}
