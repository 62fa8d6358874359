// Package repository provides database access for the reading service.
// Queries run against database/sql and work identically inside or
// outside a transaction via WithTx.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/fortunia-app/fortunia-api/internal/domain"
)

// DBTX is the subset of database/sql used by queries, satisfied by
// both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds all database operations.
type Queries struct {
	db DBTX
}

// New creates a Queries instance backed by the given connection.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries instance that runs inside the transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// =============================================================================
// Users
// =============================================================================

// CreateUser inserts a user row if it does not already exist. Used both
// for guest provisioning and to satisfy foreign keys on first contact
// from a registered account.
func (q *Queries) CreateUser(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id)
	return err
}

// GetBirthProfile loads a user's personalization data. A missing row or
// empty profile returns a zero BirthProfile, never an error.
func (q *Queries) GetBirthProfile(ctx context.Context, userID uuid.UUID) (domain.BirthProfile, error) {
	var (
		profile   domain.BirthProfile
		birthDate sql.NullTime
		birthTime, city, country sql.NullString
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT birth_date, birth_time, birth_city, birth_country FROM users WHERE id = $1`,
		userID).Scan(&birthDate, &birthTime, &city, &country)
	if err == sql.ErrNoRows {
		return domain.BirthProfile{}, nil
	}
	if err != nil {
		return domain.BirthProfile{}, err
	}

	if birthDate.Valid {
		d := birthDate.Time
		profile.BirthDate = &d
	}
	profile.BirthTime = birthTime.String
	profile.BirthCity = city.String
	profile.BirthCountry = country.String
	return profile, nil
}

// UpdateBirthProfileParams contains the fields for a profile update.
type UpdateBirthProfileParams struct {
	UserID       uuid.UUID
	BirthDate    *time.Time
	BirthTime    string
	BirthCity    string
	BirthCountry string
}

// UpdateBirthProfile stores a user's personalization data.
func (q *Queries) UpdateBirthProfile(ctx context.Context, params UpdateBirthProfileParams) error {
	var birthDate sql.NullTime
	if params.BirthDate != nil {
		birthDate = sql.NullTime{Time: *params.BirthDate, Valid: true}
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO users (id, birth_date, birth_time, birth_city, birth_country, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), now())
		ON CONFLICT (id) DO UPDATE SET
			birth_date = EXCLUDED.birth_date,
			birth_time = EXCLUDED.birth_time,
			birth_city = EXCLUDED.birth_city,
			birth_country = EXCLUDED.birth_country,
			updated_at = now()`,
		params.UserID, birthDate, params.BirthTime, params.BirthCity, params.BirthCountry)
	return err
}

// =============================================================================
// Readings
// =============================================================================

// CreateReadingParams contains the fields for persisting a reading.
type CreateReadingParams struct {
	UserID         uuid.UUID
	ReadingType    domain.ReadingType
	CulturalOrigin domain.CulturalOrigin
	ImageURL       string
	ResultText     string
	IsPremium      bool
}

// CreateReading persists a completed reading and returns the stored row.
func (q *Queries) CreateReading(ctx context.Context, params CreateReadingParams) (domain.Reading, error) {
	reading := domain.Reading{
		UserID:         params.UserID,
		ReadingType:    params.ReadingType,
		CulturalOrigin: params.CulturalOrigin,
		ImageURL:       params.ImageURL,
		ResultText:     params.ResultText,
		IsPremium:      params.IsPremium,
	}
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO readings (user_id, reading_type, cultural_origin, image_url, result_text, is_premium)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		RETURNING id, created_at`,
		params.UserID, params.ReadingType, params.CulturalOrigin,
		params.ImageURL, params.ResultText, params.IsPremium).
		Scan(&reading.ID, &reading.CreatedAt)
	return reading, err
}

// GetReading loads a single reading by id.
func (q *Queries) GetReading(ctx context.Context, id uuid.UUID) (domain.Reading, error) {
	var (
		reading      domain.Reading
		imageURL     sql.NullString
		shareCardURL sql.NullString
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, reading_type, cultural_origin, image_url, result_text, share_card_url, is_premium, created_at
		FROM readings WHERE id = $1`, id).
		Scan(&reading.ID, &reading.UserID, &reading.ReadingType, &reading.CulturalOrigin,
			&imageURL, &reading.ResultText, &shareCardURL, &reading.IsPremium, &reading.CreatedAt)
	if err != nil {
		return domain.Reading{}, err
	}
	reading.ImageURL = imageURL.String
	if shareCardURL.Valid {
		reading.ShareCardURL = &shareCardURL.String
	}
	return reading, nil
}

// UpdateReadingShareCard fills in the share card URL on a reading.
func (q *Queries) UpdateReadingShareCard(ctx context.Context, id uuid.UUID, shareCardURL string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE readings SET share_card_url = $2 WHERE id = $1`, id, shareCardURL)
	return err
}

// ClearShareCardURL nulls a dangling share card reference.
func (q *Queries) ClearShareCardURL(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE readings SET share_card_url = NULL WHERE id = $1`, id)
	return err
}

// ListReadingsBefore returns readings older than the cutoff, oldest
// first, for retention sweeping.
func (q *Queries) ListReadingsBefore(ctx context.Context, cutoff time.Time, limit int32) ([]domain.Reading, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, reading_type, cultural_origin, image_url, result_text, share_card_url, is_premium, created_at
		FROM readings WHERE created_at < $1 ORDER BY created_at ASC LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []domain.Reading
	for rows.Next() {
		var (
			reading      domain.Reading
			imageURL     sql.NullString
			shareCardURL sql.NullString
		)
		if err := rows.Scan(&reading.ID, &reading.UserID, &reading.ReadingType, &reading.CulturalOrigin,
			&imageURL, &reading.ResultText, &shareCardURL, &reading.IsPremium, &reading.CreatedAt); err != nil {
			return nil, err
		}
		reading.ImageURL = imageURL.String
		if shareCardURL.Valid {
			reading.ShareCardURL = &shareCardURL.String
		}
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}

// ListDanglingShareCards returns readings whose share_card_url is set,
// for orphan repair during the retention sweep.
func (q *Queries) ListDanglingShareCards(ctx context.Context, limit int32) ([]domain.Reading, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, reading_type, cultural_origin, image_url, result_text, share_card_url, is_premium, created_at
		FROM readings WHERE share_card_url IS NOT NULL ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []domain.Reading
	for rows.Next() {
		var (
			reading      domain.Reading
			imageURL     sql.NullString
			shareCardURL sql.NullString
		)
		if err := rows.Scan(&reading.ID, &reading.UserID, &reading.ReadingType, &reading.CulturalOrigin,
			&imageURL, &reading.ResultText, &shareCardURL, &reading.IsPremium, &reading.CreatedAt); err != nil {
			return nil, err
		}
		reading.ImageURL = imageURL.String
		if shareCardURL.Valid {
			reading.ShareCardURL = &shareCardURL.String
		}
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}

// DeleteReadings removes the given reading rows.
func (q *Queries) DeleteReadings(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM readings WHERE id = ANY($1)`, uuidArray(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// =============================================================================
// Subscriptions
// =============================================================================

// UpsertSubscriptionParams contains the fields for reconciling a
// subscription from a client-submitted store transaction.
type UpsertSubscriptionParams struct {
	UserID        uuid.UUID
	ProductID     string
	Status        domain.SubscriptionStatus
	ExpiresAt     time.Time
	TransactionID string
	PurchaseDate  time.Time
	Environment   domain.SubscriptionEnvironment
}

// UpsertSubscription inserts or updates a subscription keyed on
// transaction_id. A write whose purchase_date is older than the stored
// row is a stale replay: it is rejected by the WHERE guard and the
// existing row is returned unchanged.
func (q *Queries) UpsertSubscription(ctx context.Context, params UpsertSubscriptionParams) (domain.Subscription, error) {
	sub := domain.Subscription{
		UserID:        params.UserID,
		ProductID:     params.ProductID,
		Status:        params.Status,
		ExpiresAt:     params.ExpiresAt,
		TransactionID: params.TransactionID,
		PurchaseDate:  params.PurchaseDate,
		Environment:   params.Environment,
	}
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO subscriptions (user_id, product_id, status, expires_at, transaction_id, purchase_date, environment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (transaction_id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			status = EXCLUDED.status,
			expires_at = EXCLUDED.expires_at,
			purchase_date = EXCLUDED.purchase_date,
			environment = EXCLUDED.environment,
			updated_at = now()
		WHERE subscriptions.purchase_date <= EXCLUDED.purchase_date
		RETURNING id, created_at, updated_at`,
		params.UserID, params.ProductID, params.Status, params.ExpiresAt,
		params.TransactionID, params.PurchaseDate, params.Environment).
		Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err == sql.ErrNoRows {
		// Stale write; return what is stored.
		return q.GetSubscriptionByTransaction(ctx, params.TransactionID)
	}
	return sub, err
}

// GetSubscriptionByTransaction loads a subscription by its idempotency key.
func (q *Queries) GetSubscriptionByTransaction(ctx context.Context, transactionID string) (domain.Subscription, error) {
	var sub domain.Subscription
	err := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, product_id, status, expires_at, transaction_id, purchase_date, environment, created_at, updated_at
		FROM subscriptions WHERE transaction_id = $1`, transactionID).
		Scan(&sub.ID, &sub.UserID, &sub.ProductID, &sub.Status, &sub.ExpiresAt,
			&sub.TransactionID, &sub.PurchaseDate, &sub.Environment, &sub.CreatedAt, &sub.UpdatedAt)
	return sub, err
}

// uuidArray renders a uuid slice as a Postgres array literal. The pgx
// stdlib driver accepts string array literals for ANY($1) parameters.
func uuidArray(ids []uuid.UUID) string {
	out := "{"
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += id.String()
	}
	return out + "}"
}
