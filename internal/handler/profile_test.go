package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortunia-app/fortunia-api/internal/auth"
	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/repository"
)

type fakeProfileStore struct {
	profiles  map[uuid.UUID]domain.BirthProfile
	updateErr error
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[uuid.UUID]domain.BirthProfile)}
}

func (s *fakeProfileStore) GetBirthProfile(_ context.Context, userID uuid.UUID) (domain.BirthProfile, error) {
	return s.profiles[userID], nil
}

func (s *fakeProfileStore) UpdateBirthProfile(_ context.Context, params repository.UpdateBirthProfileParams) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.profiles[params.UserID] = domain.BirthProfile{
		BirthDate:    params.BirthDate,
		BirthTime:    params.BirthTime,
		BirthCity:    params.BirthCity,
		BirthCountry: params.BirthCountry,
	}
	return nil
}

func newProfileHandler(store *fakeProfileStore) *ProfileHandler {
	logger := testLogger()
	resolver := auth.NewResolver(testSecret, logger)
	return NewProfileHandler(resolver, store, logger)
}

func TestProfileHandler_UpdateAndGetRoundTrip(t *testing.T) {
	store := newFakeProfileStore()
	h := newProfileHandler(store)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	userID := uuid.New()
	token := signToken(t, userID)

	body, err := json.Marshal(map[string]string{
		"birth_date":    "1990-06-15",
		"birth_time":    "07:45",
		"birth_city":    "Istanbul",
		"birth_country": "Turkey",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/profile", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	saved := store.profiles[userID]
	require.NotNil(t, saved.BirthDate)
	assert.Equal(t, time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC), *saved.BirthDate)
	assert.Equal(t, "07:45", saved.BirthTime)
	assert.Equal(t, "Istanbul", saved.BirthCity)
	assert.Equal(t, "Turkey", saved.BirthCountry)

	req = httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp profileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "1990-06-15", resp.BirthDate)
	assert.Equal(t, "07:45", resp.BirthTime)
	assert.Equal(t, "Istanbul", resp.BirthCity)
	assert.Equal(t, "Turkey", resp.BirthCountry)
}

func TestProfileHandler_RejectsMalformedDates(t *testing.T) {
	store := newFakeProfileStore()
	h := newProfileHandler(store)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	token := signToken(t, uuid.New())

	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad birth_date", map[string]string{"birth_date": "June 15, 1990"}},
		{"bad birth_time", map[string]string{"birth_time": "7.45am"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body, err := json.Marshal(tc.body)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPut, "/profile", bytes.NewReader(body))
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, store.profiles)
		})
	}
}

func TestProfileHandler_TokenMismatchForbidden(t *testing.T) {
	store := newFakeProfileStore()
	h := newProfileHandler(store)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	token := signToken(t, uuid.New())
	body, err := json.Marshal(map[string]string{
		"user_id":    uuid.New().String(), // different identity
		"birth_city": "Lagos",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/profile", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, store.profiles)
}

func TestProfileHandler_GuestCanStoreProfile(t *testing.T) {
	store := newFakeProfileStore()
	h := newProfileHandler(store)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	guestID := uuid.New()
	body, err := json.Marshal(map[string]string{
		"user_id":    guestID.String(),
		"birth_city": "Mumbai",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/profile", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Mumbai", store.profiles[guestID].BirthCity)
}

func TestProfileHandler_UpdateFailureReturns500(t *testing.T) {
	store := newFakeProfileStore()
	store.updateErr = errors.New("connection reset")
	h := newProfileHandler(store)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	body, err := json.Marshal(map[string]string{"birth_city": "Cairo"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/profile", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.New()))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
