package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/service"
)

// HoroscopeHandler serves daily horoscopes.
type HoroscopeHandler struct {
	horoscopes *service.HoroscopeService
	logger     *slog.Logger
}

// NewHoroscopeHandler creates a new HoroscopeHandler.
func NewHoroscopeHandler(horoscopes *service.HoroscopeService, logger *slog.Logger) *HoroscopeHandler {
	return &HoroscopeHandler{
		horoscopes: horoscopes,
		logger:     logger,
	}
}

// RegisterRoutes registers horoscope routes with the provided mux.
func (h *HoroscopeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /horoscopes", h.Generate)
}

type horoscopeRequest struct {
	Sign string `json:"sign"`
}

// Generate handles POST /horoscopes.
func (h *HoroscopeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	const op = "handler.horoscopes.generate"

	var req horoscopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid JSON body"))
		return
	}

	horoscope, err := h.horoscopes.Generate(r.Context(), req.Sign)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, horoscope)
}
