// Package gemini implements the inference Provider against Google's
// Generative Language REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/fortunia-app/fortunia-api/internal/ai"
)

const (
	// DefaultBaseURL is the Generative Language API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is the Gemini model used for readings.
	DefaultModel = "gemini-2.0-flash-exp"
)

// Generation parameters tuned for creative, varied narratives.
const (
	temperature     = 0.9
	topK            = 40
	topP            = 0.95
	maxOutputTokens = 1024
)

// Config contains configuration for the Gemini provider.
type Config struct {
	APIKey         string
	Model          string
	BaseURL        string // Overridable for tests
	ProviderConfig ai.ProviderConfig
}

// Provider implements ai.Provider using Gemini's generateContent endpoint.
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a Gemini provider.
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.ProviderConfig.MaxAttempts == 0 {
		config.ProviderConfig.MaxAttempts = 3
	}
	if config.ProviderConfig.RetryBaseDelay == 0 {
		config.ProviderConfig.RetryBaseDelay = 1 * time.Second
	}
	if config.ProviderConfig.RequestTimeout == 0 {
		config.ProviderConfig.RequestTimeout = 30 * time.Second
	}

	return &Provider{
		config: config,
		client: &http.Client{},
		logger: logger,
	}, nil
}

// Generate calls generateContent with bounded exponential-backoff retry.
// Only rate limits, 5xx responses, and timeouts are retried; other 4xx
// and malformed responses fail immediately.
func (p *Provider) Generate(ctx context.Context, params ai.GenerateParams) (string, error) {
	body, err := json.Marshal(p.buildRequest(params))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	backoff := retry.WithMaxRetries(
		uint64(p.config.ProviderConfig.MaxAttempts-1),
		retry.NewExponential(p.config.ProviderConfig.RetryBaseDelay),
	)

	var text string
	attempts := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		out, err := p.attempt(ctx, body)
		if err != nil {
			if ai.IsRetryable(err) {
				p.logger.Info("Retrying inference request", "attempt", attempts, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return "", &ai.InferenceError{Attempts: attempts, Err: err}
	}
	return text, nil
}

// attempt performs one HTTP call under its own wall-clock budget.
func (p *Provider) attempt(ctx context.Context, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.ProviderConfig.RequestTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		p.config.BaseURL, p.config.Model, url.QueryEscape(p.config.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ai.EAITimeout
		}
		// Network errors are typically transient.
		return "", ai.EAIUnavailable
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", p.mapHTTPError(resp.StatusCode, respBody)
	}

	return parseResponse(respBody)
}

// mapHTTPError maps HTTP status codes to inference errors.
func (p *Provider) mapHTTPError(statusCode int, body []byte) error {
	var errResp apiErrorResponse
	_ = json.Unmarshal(body, &errResp)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return ai.EAIRateLimit
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ai.EAIUnauthorized
	case statusCode == http.StatusBadRequest:
		if errResp.Error.Message != "" {
			return fmt.Errorf("%w: %s", ai.EAIInvalidImage, errResp.Error.Message)
		}
		return ai.EAIInvalidImage
	case statusCode >= 500:
		return ai.EAIUnavailable
	default:
		return fmt.Errorf("API error (status %d): %s", statusCode, errResp.Error.Message)
	}
}

// =============================================================================
// Wire Types
// =============================================================================

type apiRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type apiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (p *Provider) buildRequest(params ai.GenerateParams) apiRequest {
	parts := []part{{Text: params.Prompt}}
	if params.Image != nil {
		parts = append(parts, part{
			InlineData: &inlineData{
				MimeType: params.Image.MimeType,
				Data:     base64.StdEncoding.EncodeToString(params.Image.Data),
			},
		})
	}

	return apiRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			TopK:            topK,
			TopP:            topP,
			MaxOutputTokens: maxOutputTokens,
		},
	}
}

func parseResponse(body []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response content")
	}
	text := resp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}
	return text, nil
}
