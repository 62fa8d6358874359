package domain

// DefaultQuotaLimit is the number of free readings a principal gets per day.
const DefaultQuotaLimit = 3

// EntitlementState is a principal's quota standing at a point in time.
// Rows are created implicitly on first lookup with zero usage.
type EntitlementState struct {
	QuotaUsed  int
	QuotaLimit int
	IsPremium  bool
}

// QuotaRemaining returns limit minus used, floored at zero.
func (e EntitlementState) QuotaRemaining() int {
	r := e.QuotaLimit - e.QuotaUsed
	if r < 0 {
		return 0
	}
	return r
}

// CanConsume reports whether one more reading is allowed. Premium
// principals bypass the ceiling entirely.
func (e EntitlementState) CanConsume() bool {
	return e.IsPremium || e.QuotaRemaining() > 0
}
