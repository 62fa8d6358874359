package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/metrics"
	"github.com/fortunia-app/fortunia-api/internal/storage"
)

// Batch sizes for the sweep. Storage deletes run in bounded batches to
// respect provider API limits.
const (
	sweepReadingBatch = 500
	sweepDeleteBatch  = 100
)

// RetentionRepository is the persistence surface for sweeping.
type RetentionRepository interface {
	ListReadingsBefore(ctx context.Context, cutoff time.Time, limit int32) ([]domain.Reading, error)
	DeleteReadings(ctx context.Context, ids []uuid.UUID) (int64, error)
	ListDanglingShareCards(ctx context.Context, limit int32) ([]domain.Reading, error)
	ClearShareCardURL(ctx context.Context, id uuid.UUID) error
}

// SweepSummary reports what one sweep removed.
type SweepSummary struct {
	DeletedReadings   int       `json:"deletedReadings"`
	DeletedShareCards int       `json:"deletedShareCards"`
	CutoffDate        time.Time `json:"cutoffDate"`
}

// RetentionService deletes aged readings and their stored artifacts,
// and repairs dangling share-card references.
type RetentionService struct {
	repo    RetentionRepository
	storage storage.Storage
	logger  *slog.Logger
}

// NewRetentionService creates a RetentionService.
func NewRetentionService(repo RetentionRepository, store storage.Storage, logger *slog.Logger) *RetentionService {
	return &RetentionService{
		repo:    repo,
		storage: store,
		logger:  logger,
	}
}

// Sweep removes readings created before the cutoff along with their
// stored objects. Idempotent: a second run over the same data finds
// nothing left. One batch failing to delete is logged and skipped, not
// fatal to the run.
func (s *RetentionService) Sweep(ctx context.Context, cutoff time.Time) (SweepSummary, error) {
	const op = "retention.sweep"
	summary := SweepSummary{CutoffDate: cutoff}

	for {
		readings, err := s.repo.ListReadingsBefore(ctx, cutoff, sweepReadingBatch)
		if err != nil {
			return summary, domain.Internal(err, op, "failed to list aged readings")
		}
		if len(readings) == 0 {
			break
		}

		var keys []string
		ids := make([]uuid.UUID, 0, len(readings))
		for _, r := range readings {
			ids = append(ids, r.ID)
			if key := objectKey(r.ImageURL); key != "" {
				keys = append(keys, key)
			}
			if r.ShareCardURL != nil {
				if key := objectKey(*r.ShareCardURL); key != "" {
					keys = append(keys, key)
				}
			}
		}

		summary.DeletedShareCards += s.deleteObjects(ctx, keys)

		deleted, err := s.repo.DeleteReadings(ctx, ids)
		if err != nil {
			return summary, domain.Internal(err, op, "failed to delete aged readings")
		}
		summary.DeletedReadings += int(deleted)
		metrics.SweepDeletedReadings.Add(float64(deleted))
	}

	if err := s.repairDanglingShareCards(ctx); err != nil {
		s.logger.Error("orphan repair failed", "error", err)
	}

	s.logger.Info("retention sweep finished",
		"cutoff", cutoff,
		"deleted_readings", summary.DeletedReadings,
		"deleted_share_cards", summary.DeletedShareCards,
	)
	return summary, nil
}

// deleteObjects removes stored objects in bounded batches, continuing
// past per-batch failures. Returns how many deletes succeeded.
func (s *RetentionService) deleteObjects(ctx context.Context, keys []string) int {
	deleted := 0
	for start := 0; start < len(keys); start += sweepDeleteBatch {
		end := start + sweepDeleteBatch
		if end > len(keys) {
			end = len(keys)
		}
		for _, key := range keys[start:end] {
			if err := s.storage.Delete(ctx, key); err != nil {
				s.logger.Warn("failed to delete stored object, continuing", "key", key, "error", err)
				continue
			}
			deleted++
		}
	}
	metrics.SweepDeletedObjects.Add(float64(deleted))
	return deleted
}

// repairDanglingShareCards nulls share_card_url references whose
// objects no longer exist.
func (s *RetentionService) repairDanglingShareCards(ctx context.Context) error {
	readings, err := s.repo.ListDanglingShareCards(ctx, sweepReadingBatch)
	if err != nil {
		return err
	}

	for _, r := range readings {
		key := objectKey(*r.ShareCardURL)
		if key == "" {
			continue
		}
		exists, err := s.storage.Exists(ctx, key)
		if err != nil {
			s.logger.Warn("failed to check share card existence", "key", key, "error", err)
			continue
		}
		if exists {
			continue
		}
		if err := s.repo.ClearShareCardURL(ctx, r.ID); err != nil {
			s.logger.Warn("failed to clear dangling share card url", "reading_id", r.ID, "error", err)
			continue
		}
		s.logger.Info("cleared dangling share card url", "reading_id", r.ID, "key", key)
	}
	return nil
}

// objectKey extracts the bucket key from a stored URL by locating the
// known logical folder prefixes. URLs from other buckets yield "".
func objectKey(url string) string {
	for _, prefix := range []string{storage.ShareCardsPrefix, storage.ReadingsPrefix} {
		if idx := strings.Index(url, prefix); idx >= 0 {
			return url[idx:]
		}
	}
	return ""
}
