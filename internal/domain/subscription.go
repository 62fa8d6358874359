package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Subscription Status
// =============================================================================

// SubscriptionStatus is the lifecycle state reported by the app store.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// IsValid returns true if the status is a recognized value.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionActive, SubscriptionExpired, SubscriptionCancelled:
		return true
	}
	return false
}

// =============================================================================
// Subscription Environment
// =============================================================================

// SubscriptionEnvironment distinguishes sandbox purchases from real ones.
type SubscriptionEnvironment string

const (
	EnvironmentSandbox    SubscriptionEnvironment = "sandbox"
	EnvironmentProduction SubscriptionEnvironment = "production"
)

// IsValid returns true if the environment is a recognized value.
func (e SubscriptionEnvironment) IsValid() bool {
	return e == EnvironmentSandbox || e == EnvironmentProduction
}

// =============================================================================
// Subscription Domain Type
// =============================================================================

// Subscription is a reconciled app-store subscription record.
// TransactionID is the idempotency key: re-submitting the same
// transaction updates the existing row instead of inserting a duplicate.
type Subscription struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	ProductID     string
	Status        SubscriptionStatus
	ExpiresAt     time.Time
	TransactionID string
	PurchaseDate  time.Time
	Environment   SubscriptionEnvironment
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsActive reports whether this subscription currently grants premium.
func (s Subscription) IsActive(now time.Time) bool {
	return s.Status == SubscriptionActive && s.ExpiresAt.After(now)
}

// Validate checks a reconciliation payload before it reaches the database.
func (s Subscription) Validate() error {
	const op = "domain.Subscription.Validate"

	if s.ProductID == "" {
		return Invalid(op, "product_id is required")
	}
	if !s.Status.IsValid() {
		return Invalid(op, "status must be one of: active, expired, cancelled")
	}
	if s.TransactionID == "" {
		return Invalid(op, "transaction_id is required")
	}
	if s.ExpiresAt.IsZero() {
		return Invalid(op, "expires_at is required")
	}
	if s.PurchaseDate.IsZero() {
		return Invalid(op, "purchase_date is required")
	}
	if !s.Environment.IsValid() {
		return Invalid(op, "environment must be sandbox or production")
	}
	return nil
}
