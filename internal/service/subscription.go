package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/metrics"
	"github.com/fortunia-app/fortunia-api/internal/repository"
)

// SubscriptionRepository is the persistence surface for reconciliation.
type SubscriptionRepository interface {
	CreateUser(ctx context.Context, id uuid.UUID) error
	UpsertSubscription(ctx context.Context, params repository.UpsertSubscriptionParams) (domain.Subscription, error)
}

// SubscriptionService reconciles client-submitted app-store
// transactions into subscription rows.
type SubscriptionService struct {
	repo   SubscriptionRepository
	logger *slog.Logger
}

// NewSubscriptionService creates a SubscriptionService.
func NewSubscriptionService(repo SubscriptionRepository, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:   repo,
		logger: logger,
	}
}

// Reconcile validates and upserts a subscription. The transaction id is
// the idempotency key: replays update the stored row in place, and
// replays carrying an older purchase date are rejected as no-ops.
func (s *SubscriptionService) Reconcile(ctx context.Context, principal domain.Principal, sub domain.Subscription) (domain.Subscription, error) {
	const op = "subscription.reconcile"

	sub.UserID = principal.ID
	if err := sub.Validate(); err != nil {
		return domain.Subscription{}, err
	}

	if err := s.repo.CreateUser(ctx, principal.ID); err != nil {
		return domain.Subscription{}, domain.Internal(err, op, "Failed to save subscription")
	}

	stored, err := s.repo.UpsertSubscription(ctx, repository.UpsertSubscriptionParams{
		UserID:        sub.UserID,
		ProductID:     sub.ProductID,
		Status:        sub.Status,
		ExpiresAt:     sub.ExpiresAt,
		TransactionID: sub.TransactionID,
		PurchaseDate:  sub.PurchaseDate,
		Environment:   sub.Environment,
	})
	if err != nil {
		return domain.Subscription{}, domain.Internal(err, op, "Failed to save subscription")
	}

	metrics.SubscriptionsReconciled.Inc()
	s.logger.Info("subscription reconciled",
		"user_id", principal.ID,
		"transaction_id", stored.TransactionID,
		"status", stored.Status,
		"expires_at", stored.ExpiresAt,
	)
	return stored, nil
}
