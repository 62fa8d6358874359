package entitlement

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fortunia-app/fortunia-api/internal/domain"
)

// PostgresStore backs the quota ledger with the entitlements table.
// Consume is a single conditional upsert so the ceiling check and the
// increment happen in one statement; the daily reset happens lazily on
// the first touch after UTC midnight rather than via a scheduled job.
type PostgresStore struct {
	db         *sql.DB
	quotaLimit int
	logger     *slog.Logger
}

// NewPostgresStore creates a PostgresStore. quotaLimit is the daily
// free-reading ceiling applied to rows created implicitly.
func NewPostgresStore(db *sql.DB, quotaLimit int, logger *slog.Logger) *PostgresStore {
	if quotaLimit <= 0 {
		quotaLimit = domain.DefaultQuotaLimit
	}
	return &PostgresStore{
		db:         db,
		quotaLimit: quotaLimit,
		logger:     logger,
	}
}

const getStatusQuery = `
SELECT
	CASE WHEN e.reset_at < (now() AT TIME ZONE 'utc')::date THEN 0 ELSE COALESCE(e.quota_used, 0) END,
	COALESCE(e.quota_limit, $2),
	EXISTS (
		SELECT 1 FROM subscriptions s
		WHERE s.user_id = $1 AND s.status = 'active' AND s.expires_at > now()
	)
FROM (SELECT $1::uuid AS user_id) u
LEFT JOIN entitlements e ON e.user_id = u.user_id`

// GetStatus returns the principal's current entitlement state, treating
// a missing row as a fresh one.
func (s *PostgresStore) GetStatus(ctx context.Context, principalID uuid.UUID) (domain.EntitlementState, error) {
	const op = "entitlement.get_status"

	var state domain.EntitlementState
	err := s.db.QueryRowContext(ctx, getStatusQuery, principalID, s.quotaLimit).
		Scan(&state.QuotaUsed, &state.QuotaLimit, &state.IsPremium)
	if err != nil {
		return domain.EntitlementState{}, domain.Internal(err, op, "failed to read entitlement state")
	}
	return state, nil
}

// consumeFreeQuery spends one unit only if the ceiling allows it. The
// WHERE guard makes the ceiling check and the increment atomic: of two
// racing calls for the last unit, exactly one gets a row back.
const consumeFreeQuery = `
INSERT INTO entitlements (user_id, quota_used, quota_limit, reset_at)
VALUES ($1, 1, $2, (now() AT TIME ZONE 'utc')::date)
ON CONFLICT (user_id) DO UPDATE SET
	quota_used = CASE
		WHEN entitlements.reset_at < (now() AT TIME ZONE 'utc')::date THEN 1
		ELSE entitlements.quota_used + 1
	END,
	reset_at = (now() AT TIME ZONE 'utc')::date
WHERE entitlements.reset_at < (now() AT TIME ZONE 'utc')::date
	OR entitlements.quota_used < entitlements.quota_limit
RETURNING quota_used, quota_limit`

// consumePremiumQuery records usage without a ceiling guard.
const consumePremiumQuery = `
INSERT INTO entitlements (user_id, quota_used, quota_limit, reset_at)
VALUES ($1, 1, $2, (now() AT TIME ZONE 'utc')::date)
ON CONFLICT (user_id) DO UPDATE SET
	quota_used = CASE
		WHEN entitlements.reset_at < (now() AT TIME ZONE 'utc')::date THEN 1
		ELSE entitlements.quota_used + 1
	END,
	reset_at = (now() AT TIME ZONE 'utc')::date
RETURNING quota_used, quota_limit`

// Consume atomically spends one quota unit.
func (s *PostgresStore) Consume(ctx context.Context, principalID uuid.UUID) (domain.EntitlementState, error) {
	const op = "entitlement.consume"

	premium, err := s.isPremium(ctx, principalID)
	if err != nil {
		return domain.EntitlementState{}, domain.Internal(err, op, "failed to check premium status")
	}

	if premium {
		// Usage is recorded for premium users too, but a bookkeeping
		// failure must never block an unlimited principal.
		state := domain.EntitlementState{QuotaLimit: s.quotaLimit, IsPremium: true}
		err := s.db.QueryRowContext(ctx, consumePremiumQuery, principalID, s.quotaLimit).
			Scan(&state.QuotaUsed, &state.QuotaLimit)
		if err != nil {
			s.logger.Warn("failed to record premium usage", "user_id", principalID, "error", err)
		}
		return state, nil
	}

	var state domain.EntitlementState
	err = s.db.QueryRowContext(ctx, consumeFreeQuery, principalID, s.quotaLimit).
		Scan(&state.QuotaUsed, &state.QuotaLimit)
	if err == sql.ErrNoRows {
		// Guard rejected the update: ceiling reached.
		current, gerr := s.GetStatus(ctx, principalID)
		if gerr != nil {
			current = domain.EntitlementState{QuotaUsed: s.quotaLimit, QuotaLimit: s.quotaLimit}
		}
		return domain.EntitlementState{}, domain.QuotaExhausted(op, current.QuotaUsed, current.QuotaLimit)
	}
	if err != nil {
		return domain.EntitlementState{}, domain.Internal(err, op, "failed to consume quota")
	}
	return state, nil
}

func (s *PostgresStore) isPremium(ctx context.Context, principalID uuid.UUID) (bool, error) {
	var premium bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE user_id = $1 AND status = 'active' AND expires_at > now())`,
		principalID).Scan(&premium)
	return premium, err
}
