package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReadingRequestValidate(t *testing.T) {
	tests := []struct {
		name     string
		req      ReadingRequest
		wantCode string // empty means valid
	}{
		{
			name: "valid face reading with image",
			req:  ReadingRequest{ReadingType: ReadingTypeFace, CulturalOrigin: OriginChinese, ImageURL: "https://cdn.example.com/readings/a.jpg"},
		},
		{
			name: "valid tarot reading without image",
			req:  ReadingRequest{ReadingType: ReadingTypeTarot, CulturalOrigin: OriginEuropean},
		},
		{
			name:     "unknown reading type",
			req:      ReadingRequest{ReadingType: "tea_leaves", CulturalOrigin: OriginChinese},
			wantCode: EINVALID,
		},
		{
			name:     "unknown cultural origin",
			req:      ReadingRequest{ReadingType: ReadingTypeTarot, CulturalOrigin: "martian"},
			wantCode: EINVALID,
		},
		{
			name:     "palm reading missing image",
			req:      ReadingRequest{ReadingType: ReadingTypePalm, CulturalOrigin: OriginMiddleEastern},
			wantCode: EINVALID,
		},
		{
			name:     "coffee reading missing image",
			req:      ReadingRequest{ReadingType: ReadingTypeCoffee, CulturalOrigin: OriginMiddleEastern},
			wantCode: EINVALID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantCode, ErrorCode(err))
		})
	}
}

func TestReadingTypeRequiresImage(t *testing.T) {
	assert.True(t, ReadingTypeFace.RequiresImage())
	assert.True(t, ReadingTypePalm.RequiresImage())
	assert.True(t, ReadingTypeCoffee.RequiresImage())
	assert.False(t, ReadingTypeTarot.RequiresImage())
}

func TestEntitlementState(t *testing.T) {
	t.Run("remaining floors at zero", func(t *testing.T) {
		e := EntitlementState{QuotaUsed: 5, QuotaLimit: 3}
		assert.Equal(t, 0, e.QuotaRemaining())
	})

	t.Run("free user with quota left can consume", func(t *testing.T) {
		e := EntitlementState{QuotaUsed: 2, QuotaLimit: 3}
		assert.Equal(t, 1, e.QuotaRemaining())
		assert.True(t, e.CanConsume())
	})

	t.Run("exhausted free user cannot consume", func(t *testing.T) {
		e := EntitlementState{QuotaUsed: 3, QuotaLimit: 3}
		assert.False(t, e.CanConsume())
	})

	t.Run("premium bypasses ceiling", func(t *testing.T) {
		e := EntitlementState{QuotaUsed: 100, QuotaLimit: 3, IsPremium: true}
		assert.True(t, e.CanConsume())
	})
}

func TestBirthProfileAge(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		birth time.Time
		want  int
	}{
		{"birthday already passed this year", time.Date(1990, 3, 1, 0, 0, 0, 0, time.UTC), 35},
		{"birthday later this year", time.Date(1990, 11, 20, 0, 0, 0, 0, time.UTC), 34},
		{"birthday today", time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC), 35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := BirthProfile{BirthDate: &tt.birth}
			assert.Equal(t, tt.want, p.Age(now))
		})
	}

	t.Run("unknown birth date", func(t *testing.T) {
		assert.Equal(t, -1, BirthProfile{}.Age(now))
	})
}

func TestBirthProfileLocation(t *testing.T) {
	assert.Equal(t, "Istanbul, Turkey", BirthProfile{BirthCity: "Istanbul", BirthCountry: "Turkey"}.Location())
	assert.Equal(t, "Istanbul", BirthProfile{BirthCity: "Istanbul"}.Location())
	assert.Equal(t, "Turkey", BirthProfile{BirthCountry: "Turkey"}.Location())
	assert.Equal(t, "", BirthProfile{}.Location())
}

func TestSubscriptionIsActive(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	active := Subscription{Status: SubscriptionActive, ExpiresAt: now.Add(24 * time.Hour)}
	assert.True(t, active.IsActive(now))

	lapsed := Subscription{Status: SubscriptionActive, ExpiresAt: now.Add(-time.Hour)}
	assert.False(t, lapsed.IsActive(now))

	cancelled := Subscription{Status: SubscriptionCancelled, ExpiresAt: now.Add(24 * time.Hour)}
	assert.False(t, cancelled.IsActive(now))
}
