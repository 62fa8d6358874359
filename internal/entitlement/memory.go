package entitlement

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fortunia-app/fortunia-api/internal/domain"
)

type memoryEntry struct {
	used     int
	limit    int
	resetDay time.Time // UTC date of last touch
	premium  bool
}

// MemoryStore is an in-process Store for tests and local development.
// A mutex stands in for the database's atomic conditional update.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[uuid.UUID]*memoryEntry
	quotaLimit int
	now        func() time.Time
}

// NewMemoryStore creates an empty MemoryStore with the given daily ceiling.
func NewMemoryStore(quotaLimit int) *MemoryStore {
	if quotaLimit <= 0 {
		quotaLimit = domain.DefaultQuotaLimit
	}
	return &MemoryStore{
		entries:    make(map[uuid.UUID]*memoryEntry),
		quotaLimit: quotaLimit,
		now:        time.Now,
	}
}

// SetClock overrides the time source. Test hook for reset behavior.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetPremium marks a principal as premium.
func (s *MemoryStore) SetPremium(principalID uuid.UUID, premium bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(principalID).premium = premium
}

// Seed sets a principal's used count directly.
func (s *MemoryStore) Seed(principalID uuid.UUID, used int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(principalID)
	e.used = used
	e.resetDay = s.today()
}

// GetStatus returns the principal's current entitlement state.
func (s *MemoryStore) GetStatus(_ context.Context, principalID uuid.UUID) (domain.EntitlementState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(principalID)
	used := e.used
	if e.resetDay.Before(s.today()) {
		used = 0
	}
	return domain.EntitlementState{
		QuotaUsed:  used,
		QuotaLimit: e.limit,
		IsPremium:  e.premium,
	}, nil
}

// Consume atomically spends one quota unit.
func (s *MemoryStore) Consume(_ context.Context, principalID uuid.UUID) (domain.EntitlementState, error) {
	const op = "entitlement.consume"

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(principalID)
	today := s.today()
	if e.resetDay.Before(today) {
		e.used = 0
		e.resetDay = today
	}

	if !e.premium && e.used >= e.limit {
		return domain.EntitlementState{}, domain.QuotaExhausted(op, e.used, e.limit)
	}

	e.used++
	return domain.EntitlementState{
		QuotaUsed:  e.used,
		QuotaLimit: e.limit,
		IsPremium:  e.premium,
	}, nil
}

// entry returns the principal's ledger row, creating a fresh one if
// absent. Caller must hold the mutex.
func (s *MemoryStore) entry(principalID uuid.UUID) *memoryEntry {
	e, ok := s.entries[principalID]
	if !ok {
		e = &memoryEntry{limit: s.quotaLimit, resetDay: s.today()}
		s.entries[principalID] = e
	}
	return e
}

func (s *MemoryStore) today() time.Time {
	t := s.now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
