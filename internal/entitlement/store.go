// Package entitlement tracks per-principal daily reading quota and
// premium status. The store is the only shared, concurrently-mutated
// resource in the system: Consume must be atomic with respect to
// concurrent consumers of the same principal.
package entitlement

import (
	"context"

	"github.com/google/uuid"

	"github.com/fortunia-app/fortunia-api/internal/domain"
)

// Store defines quota ledger operations.
type Store interface {
	// GetStatus returns the principal's current entitlement state.
	// Read-only, idempotent, safe for concurrent callers. Principals
	// with no ledger row get an implicit fresh state (zero used).
	GetStatus(ctx context.Context, principalID uuid.UUID) (domain.EntitlementState, error)

	// Consume atomically spends one quota unit. It fails with an
	// ERATELIMIT error when a free principal's ceiling is reached;
	// two concurrent calls racing for the last unit must not both
	// succeed. Premium principals bypass the ceiling but usage is
	// still recorded.
	Consume(ctx context.Context, principalID uuid.UUID) (domain.EntitlementState, error)
}
