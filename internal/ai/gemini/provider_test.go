package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortunia-app/fortunia-api/internal/ai"
)

func successBody(text string) string {
	resp := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newTestProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	p, err := New(Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		ProviderConfig: ai.ProviderConfig{
			MaxAttempts:    3,
			RetryBaseDelay: time.Millisecond,
			RequestTimeout: 2 * time.Second,
		},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return p
}

func TestGenerateSuccess(t *testing.T) {
	var gotBody apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		io.WriteString(w, successBody("Your destiny unfolds."))
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	text, err := p.Generate(context.Background(), ai.GenerateParams{
		Prompt: "read this palm",
		Image:  &ai.ImagePart{MimeType: "image/jpeg", Data: []byte("fake")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Your destiny unfolds.", text)

	// Prompt text plus inline image data in one content entry.
	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 2)
	assert.Equal(t, "read this palm", gotBody.Contents[0].Parts[0].Text)
	assert.Equal(t, "image/jpeg", gotBody.Contents[0].Parts[1].InlineData.MimeType)
	assert.Equal(t, 0.9, gotBody.GenerationConfig.Temperature)
	assert.Equal(t, 1024, gotBody.GenerationConfig.MaxOutputTokens)
}

func TestGeneratePromptOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req apiRequest
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		require.Len(t, req.Contents[0].Parts, 1, "no image part for tarot prompts")
		io.WriteString(w, successBody("The cards speak."))
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	text, err := p.Generate(context.Background(), ai.GenerateParams{Prompt: "draw three cards"})
	require.NoError(t, err)
	assert.Equal(t, "The cards speak.", text)
}

func TestGenerateExhaustsRetriesOn503(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	_, err := p.Generate(context.Background(), ai.GenerateParams{Prompt: "x"})
	require.Error(t, err)

	var infErr *ai.InferenceError
	require.ErrorAs(t, err, &infErr)
	assert.Equal(t, 3, infErr.Attempts)
	assert.Equal(t, 3, calls, "always-failing backend is attempted exactly max_attempts times")
	assert.ErrorIs(t, err, ai.EAIUnavailable)
}

func TestGenerateRecoversAfterTransientFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, successBody("third time lucky"))
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	text, err := p.Generate(context.Background(), ai.GenerateParams{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", text)
	assert.Equal(t, 3, calls, "fail-twice backend succeeds on the third attempt")
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"code":400,"message":"image too large","status":"INVALID_ARGUMENT"}}`)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	_, err := p.Generate(context.Background(), ai.GenerateParams{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx other than 429 fails immediately")
	assert.ErrorIs(t, err, ai.EAIInvalidImage)
}

func TestGenerateDoesNotRetryUnauthorized(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	_, err := p.Generate(context.Background(), ai.GenerateParams{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, ai.EAIUnauthorized)
}

func TestGenerateMalformedResponseFailsImmediately(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		io.WriteString(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	_, err := p.Generate(context.Background(), ai.GenerateParams{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "empty candidate list is not retryable")
}

func TestGeneratePerAttemptTimeoutIsRetryable(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		io.WriteString(w, successBody("eventually"))
	}))
	defer srv.Close()

	p, err := New(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		ProviderConfig: ai.ProviderConfig{
			MaxAttempts:    3,
			RetryBaseDelay: time.Millisecond,
			RequestTimeout: 50 * time.Millisecond,
		},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	text, err := p.Generate(context.Background(), ai.GenerateParams{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "eventually", text)
	assert.GreaterOrEqual(t, calls, 2, "timed-out attempt is retried")
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ai.EAIUnauthorized))
}
