package service

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/metrics"
	"github.com/fortunia-app/fortunia-api/internal/sharecard"
	"github.com/fortunia-app/fortunia-api/internal/storage"
)

// ShareCardRepository is the persistence surface for card generation.
type ShareCardRepository interface {
	GetReading(ctx context.Context, id uuid.UUID) (domain.Reading, error)
	UpdateReadingShareCard(ctx context.Context, id uuid.UUID, shareCardURL string) error
}

// ShareCardService renders share cards and stores them publicly.
type ShareCardService struct {
	renderer *sharecard.Renderer
	storage  storage.Storage
	repo     ShareCardRepository
	logger   *slog.Logger
}

// NewShareCardService creates a ShareCardService.
func NewShareCardService(renderer *sharecard.Renderer, store storage.Storage, repo ShareCardRepository, logger *slog.Logger) *ShareCardService {
	return &ShareCardService{
		renderer: renderer,
		storage:  store,
		repo:     repo,
		logger:   logger,
	}
}

// Create renders a card from caller-supplied content and uploads it,
// returning the public URL. Used by the synchronous endpoint.
func (s *ShareCardService) Create(ctx context.Context, userID uuid.UUID, params sharecard.RenderParams) (string, error) {
	const op = "sharecard.create"

	if !params.ReadingType.IsValid() {
		return "", domain.Invalid(op, "invalid reading type")
	}
	if !params.CulturalOrigin.IsValid() {
		return "", domain.Invalid(op, "invalid cultural origin")
	}

	url, err := s.renderAndStore(ctx, userID, params)
	if err != nil {
		return "", err
	}

	s.logger.Info("share card created", "user_id", userID, "url", url)
	return url, nil
}

// GenerateForReading renders and stores a card for a persisted reading,
// then records its URL on the row. Used by the background job.
func (s *ShareCardService) GenerateForReading(ctx context.Context, readingID uuid.UUID) (string, error) {
	const op = "sharecard.generate_for_reading"

	reading, err := s.repo.GetReading(ctx, readingID)
	if err != nil {
		return "", err
	}
	if reading.ShareCardURL != nil {
		// Already generated, nothing to do on retry.
		return *reading.ShareCardURL, nil
	}

	url, err := s.renderAndStore(ctx, reading.UserID, sharecard.RenderParams{
		FortuneText:    reading.ResultText,
		ReadingType:    reading.ReadingType,
		CulturalOrigin: reading.CulturalOrigin,
	})
	if err != nil {
		return "", err
	}

	if err := s.repo.UpdateReadingShareCard(ctx, readingID, url); err != nil {
		return "", domain.Internal(err, op, "failed to record share card url")
	}

	s.logger.Info("share card generated for reading", "reading_id", readingID, "url", url)
	return url, nil
}

func (s *ShareCardService) renderAndStore(ctx context.Context, userID uuid.UUID, params sharecard.RenderParams) (string, error) {
	const op = "sharecard.render_and_store"

	data, err := s.renderer.Render(params)
	if err != nil {
		return "", domain.Internal(err, op, "failed to render share card")
	}

	key := storage.ShareCardKey(userID)
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), storage.PutOptions{
		ContentType: "image/png",
		Public:      true,
	}); err != nil {
		return "", domain.Upstream(err, op, "failed to store share card")
	}

	url, err := s.storage.URL(ctx, key, 0)
	if err != nil {
		return "", domain.Upstream(err, op, "failed to resolve share card url")
	}

	metrics.ShareCardsGenerated.Inc()
	return url, nil
}
