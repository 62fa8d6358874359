// Package jobs contains the background job handlers registered with
// the worker.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/service"
	"github.com/fortunia-app/fortunia-api/internal/worker"
)

// GenerateShareCardHandler processes jobs that render the share card
// for a persisted reading and record its URL on the reading row.
type GenerateShareCardHandler struct {
	shareCards *service.ShareCardService
	logger     *slog.Logger
}

// NewGenerateShareCardHandler creates a new handler for share-card jobs.
func NewGenerateShareCardHandler(shareCards *service.ShareCardService, logger *slog.Logger) *GenerateShareCardHandler {
	return &GenerateShareCardHandler{
		shareCards: shareCards,
		logger:     logger,
	}
}

// Type returns the job type identifier.
func (h *GenerateShareCardHandler) Type() string {
	return worker.JobTypeGenerateShareCard
}

// Handle renders and stores the card. A missing reading is permanent:
// the row was swept or never existed, so retrying cannot help. Render
// and storage failures are left retryable.
func (h *GenerateShareCardHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.GenerateShareCardPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("unmarshal payload: %w", err))
	}

	url, err := h.shareCards.GenerateForReading(ctx, p.ReadingID)
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.ENOTFOUND, domain.EINVALID:
			return worker.NewPermanentError(err)
		}
		return fmt.Errorf("generate share card for reading %s: %w", p.ReadingID, err)
	}

	h.logger.Info("share card job finished", "reading_id", p.ReadingID, "url", url)
	return nil
}
