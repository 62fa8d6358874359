package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortunia-app/fortunia-api/internal/auth"
	"github.com/fortunia-app/fortunia-api/internal/entitlement"
)

func newQuotaMux(store *entitlement.MemoryStore) *http.ServeMux {
	logger := testLogger()
	handler := NewQuotaHandler(auth.NewResolver(testSecret, logger), store, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux
}

func TestQuotaStatusForGuest(t *testing.T) {
	store := entitlement.NewMemoryStore(3)
	userID := uuid.New()
	store.Seed(userID, 1)

	rec := postJSON(t, newQuotaMux(store), "/quota", "", map[string]string{
		"user_id": userID.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp quotaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.QuotaUsed)
	assert.Equal(t, 3, resp.QuotaLimit)
	assert.Equal(t, 2, resp.QuotaRemaining)
	assert.False(t, resp.IsPremium)
}

func TestQuotaStatusPremium(t *testing.T) {
	store := entitlement.NewMemoryStore(3)
	userID := uuid.New()
	store.SetPremium(userID, true)

	rec := postJSON(t, newQuotaMux(store), "/quota", signToken(t, userID), map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp quotaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.IsPremium)
}

func TestQuotaRejectsMismatchedIdentity(t *testing.T) {
	store := entitlement.NewMemoryStore(3)

	// Token for one user, body claims another.
	rec := postJSON(t, newQuotaMux(store), "/quota", signToken(t, uuid.New()), map[string]string{
		"user_id": uuid.NewString(),
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestQuotaRequiresIdentity(t *testing.T) {
	rec := postJSON(t, newQuotaMux(entitlement.NewMemoryStore(3)), "/quota", "", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
