// Package service contains the business logic layer.
//
// This file implements the reading pipeline: validate, gate on quota,
// fetch media, compose the prompt, invoke inference, persist, consume.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fortunia-app/fortunia-api/internal/ai"
	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/entitlement"
	"github.com/fortunia-app/fortunia-api/internal/media"
	"github.com/fortunia-app/fortunia-api/internal/metrics"
	"github.com/fortunia-app/fortunia-api/internal/prompt"
	"github.com/fortunia-app/fortunia-api/internal/repository"
)

// completionTimeout bounds the detached stretch of the pipeline that
// keeps running after a client disconnect.
const completionTimeout = 2 * time.Minute

// =============================================================================
// Dependencies
// =============================================================================

// ReadingRepository is the persistence surface the pipeline needs.
type ReadingRepository interface {
	CreateUser(ctx context.Context, id uuid.UUID) error
	GetBirthProfile(ctx context.Context, userID uuid.UUID) (domain.BirthProfile, error)
	CreateReading(ctx context.Context, params repository.CreateReadingParams) (domain.Reading, error)
}

// ShareCardEnqueuer schedules asynchronous share-card generation for a
// persisted reading.
type ShareCardEnqueuer interface {
	EnqueueShareCard(ctx context.Context, readingID, userID uuid.UUID) error
}

// =============================================================================
// Service
// =============================================================================

// ReadingService runs the reading pipeline.
type ReadingService struct {
	entitlements entitlement.Store
	fetcher      media.Fetcher
	provider     ai.Provider
	repo         ReadingRepository
	shareCards   ShareCardEnqueuer // optional
	logger       *slog.Logger
	now          func() time.Time
}

// NewReadingService creates a ReadingService. shareCards may be nil
// when asynchronous card generation is disabled.
func NewReadingService(
	entitlements entitlement.Store,
	fetcher media.Fetcher,
	provider ai.Provider,
	repo ReadingRepository,
	shareCards ShareCardEnqueuer,
	logger *slog.Logger,
) *ReadingService {
	return &ReadingService{
		entitlements: entitlements,
		fetcher:      fetcher,
		provider:     provider,
		repo:         repo,
		shareCards:   shareCards,
		logger:       logger,
		now:          time.Now,
	}
}

// Process runs one reading request end to end.
//
// The quota gate runs before any media or inference work: a request
// that cannot be fulfilled never costs an inference call. Consumption
// runs last, gated on persistence, so a failed reading never charges a
// unit; a consume failure after persistence is logged and swallowed.
//
// Once inference starts, the remainder of the pipeline runs on a
// context detached from the request so a client disconnect cannot
// leave a generated-but-unpersisted reading or a half-applied charge.
func (s *ReadingService) Process(ctx context.Context, principal domain.Principal, req domain.ReadingRequest) (domain.ReadingResponse, error) {
	const op = "reading.process"
	start := s.now()

	if err := req.Validate(); err != nil {
		return domain.ReadingResponse{}, err
	}

	state, err := s.entitlements.GetStatus(ctx, principal.ID)
	if err != nil {
		return domain.ReadingResponse{}, err
	}
	if !state.CanConsume() {
		metrics.QuotaDenials.Inc()
		s.logger.Info("quota exhausted, rejecting before inference",
			"user_id", principal.ID,
			"quota_used", state.QuotaUsed,
			"quota_limit", state.QuotaLimit,
		)
		return domain.ReadingResponse{}, domain.QuotaExhausted(op, state.QuotaUsed, state.QuotaLimit)
	}

	var image *ai.ImagePart
	if req.ReadingType.RequiresImage() {
		fetched, err := s.fetcher.Fetch(ctx, req.ImageURL)
		if err != nil {
			return domain.ReadingResponse{}, err
		}
		image = &ai.ImagePart{MimeType: fetched.MimeType, Data: fetched.Data}
	}

	// Personalization is best-effort: a profile lookup failure never
	// blocks the reading.
	profile, err := s.repo.GetBirthProfile(ctx, principal.ID)
	if err != nil {
		s.logger.Warn("failed to load birth profile", "user_id", principal.ID, "error", err)
		profile = domain.BirthProfile{}
	}

	composed := prompt.Compose(req.ReadingType, req.CulturalOrigin, profile, s.now())

	// From here on the pipeline must run to completion even if the
	// client goes away.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), completionTimeout)
	defer cancel()

	text, err := s.provider.Generate(dctx, ai.GenerateParams{Prompt: composed, Image: image})
	if err != nil {
		metrics.InferenceFailures.Inc()
		return domain.ReadingResponse{}, domain.Upstream(err, op, "The spirits are silent right now. Please try again.")
	}

	if err := s.repo.CreateUser(dctx, principal.ID); err != nil {
		return domain.ReadingResponse{}, domain.Internal(err, op, "Failed to save reading")
	}
	reading, err := s.repo.CreateReading(dctx, repository.CreateReadingParams{
		UserID:         principal.ID,
		ReadingType:    req.ReadingType,
		CulturalOrigin: req.CulturalOrigin,
		ImageURL:       req.ImageURL,
		ResultText:     text,
		IsPremium:      state.IsPremium,
	})
	if err != nil {
		return domain.ReadingResponse{}, domain.Internal(err, op, "Failed to save reading")
	}

	// The reading exists; losing a quota decrement is preferable to
	// denying an already-generated result.
	if _, err := s.entitlements.Consume(dctx, principal.ID); err != nil {
		s.logger.Error("failed to consume quota after persisted reading",
			"user_id", principal.ID,
			"reading_id", reading.ID,
			"error", err,
		)
	}

	if s.shareCards != nil {
		if err := s.shareCards.EnqueueShareCard(dctx, reading.ID, principal.ID); err != nil {
			s.logger.Warn("failed to enqueue share card generation",
				"reading_id", reading.ID, "error", err)
		}
	}

	metrics.ReadingsGenerated.WithLabelValues(req.ReadingType.String()).Inc()

	return domain.ReadingResponse{
		ResultText:     text,
		ReadingType:    req.ReadingType,
		CulturalOrigin: req.CulturalOrigin,
		ShareCardURL:   reading.ShareCardURL,
		ProcessingTime: s.now().Sub(start),
	}, nil
}
