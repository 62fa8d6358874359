package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/service"
	"github.com/fortunia-app/fortunia-api/internal/storage"
)

type stubRetentionRepo struct{}

func (stubRetentionRepo) ListReadingsBefore(_ context.Context, _ time.Time, _ int32) ([]domain.Reading, error) {
	return nil, nil
}

func (stubRetentionRepo) DeleteReadings(_ context.Context, _ []uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubRetentionRepo) ListDanglingShareCards(_ context.Context, _ int32) ([]domain.Reading, error) {
	return nil, nil
}

func (stubRetentionRepo) ClearShareCardURL(_ context.Context, _ uuid.UUID) error { return nil }

func newCleanupMux() *http.ServeMux {
	logger := testLogger()
	retention := service.NewRetentionService(stubRetentionRepo{}, storage.NewMemoryStorage(), logger)
	handler := NewCleanupHandler(retention, 30*24*time.Hour, "ops", "sekrit", logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux
}

func TestCleanupRequiresBasicAuth(t *testing.T) {
	mux := newCleanupMux()

	req := httptest.NewRequest(http.MethodPost, "/internal/cleanup", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/internal/cleanup", bytes.NewReader(nil))
	req.SetBasicAuth("ops", "wrong")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCleanupRunsSweep(t *testing.T) {
	mux := newCleanupMux()

	req := httptest.NewRequest(http.MethodPost, "/internal/cleanup", bytes.NewReader(nil))
	req.SetBasicAuth("ops", "sekrit")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cleanupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.Summary.DeletedReadings)
	assert.WithinDuration(t, time.Now().Add(-30*24*time.Hour), resp.Summary.CutoffDate, time.Minute)
}
