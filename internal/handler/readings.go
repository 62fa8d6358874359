package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fortunia-app/fortunia-api/internal/auth"
	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/service"
)

// ReadingHandler handles reading generation requests.
type ReadingHandler struct {
	resolver *auth.Resolver
	readings *service.ReadingService
	logger   *slog.Logger
}

// NewReadingHandler creates a new ReadingHandler.
func NewReadingHandler(resolver *auth.Resolver, readings *service.ReadingService, logger *slog.Logger) *ReadingHandler {
	return &ReadingHandler{
		resolver: resolver,
		readings: readings,
		logger:   logger,
	}
}

// RegisterRoutes registers reading routes with the provided mux.
func (h *ReadingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /readings", h.Create)
}

type readingRequest struct {
	ReadingType    string `json:"reading_type"`
	CulturalOrigin string `json:"cultural_origin"`
	ImageURL       string `json:"image_url,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

type readingResponse struct {
	Success        bool    `json:"success"`
	Result         string  `json:"result"`
	ReadingType    string  `json:"reading_type"`
	CulturalOrigin string  `json:"cultural_origin"`
	ShareCardURL   *string `json:"share_card_url,omitempty"`
	ProcessingTime float64 `json:"processing_time"`
}

type readingErrorResponse struct {
	Success        bool    `json:"success"`
	Error          string  `json:"error"`
	ProcessingTime float64 `json:"processing_time"`
}

// Create handles POST /readings.
func (h *ReadingHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handler.readings.create"
	start := time.Now()

	var req readingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid JSON body"))
		return
	}

	res, err := h.resolver.Resolve(r.Header.Get("Authorization"), req.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	resp, err := h.readings.Process(r.Context(), res.Principal, domain.ReadingRequest{
		ReadingType:    domain.ReadingType(req.ReadingType),
		CulturalOrigin: domain.CulturalOrigin(req.CulturalOrigin),
		ImageURL:       req.ImageURL,
	})
	if err != nil {
		status := ErrorCodeToHTTPStatus(domain.ErrorCode(err))
		logError(h.logger, r, err, domain.ErrorCode(err), domain.ErrorOp(err), status)
		writeJSON(w, status, readingErrorResponse{
			Success:        false,
			Error:          domain.ErrorMessage(err),
			ProcessingTime: time.Since(start).Seconds(),
		})
		return
	}

	writeJSON(w, http.StatusOK, readingResponse{
		Success:        true,
		Result:         resp.ResultText,
		ReadingType:    resp.ReadingType.String(),
		CulturalOrigin: resp.CulturalOrigin.String(),
		ShareCardURL:   resp.ShareCardURL,
		ProcessingTime: resp.ProcessingTime.Seconds(),
	})
}
