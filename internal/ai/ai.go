// Package ai defines the interface for generative fortune inference.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider defines the interface for generating reading narratives.
type Provider interface {
	// Generate produces a narrative from a composed prompt and an
	// optional image part. Transient failures are retried internally;
	// the caller sees either the text or an InferenceError after the
	// retry budget is spent.
	Generate(ctx context.Context, params GenerateParams) (string, error)
}

// GenerateParams contains the inputs for one inference call.
type GenerateParams struct {
	Prompt string     // Composed instruction text
	Image  *ImagePart // Optional source photo (nil for tarot)
}

// ImagePart is a photo attached to the inference request.
type ImagePart struct {
	MimeType string
	Data     []byte
}

// ProviderConfig contains common configuration for inference providers.
type ProviderConfig struct {
	MaxAttempts    int           // Total attempts including the first
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Wall-clock budget per attempt
}

// Error codes for inference operations
var (
	// EAIRateLimit indicates the API rate limit has been exceeded
	EAIRateLimit = errors.New("inference rate limit exceeded")

	// EAIInvalidImage indicates the image format or content was rejected
	EAIInvalidImage = errors.New("invalid image format or content")

	// EAITimeout indicates the request exceeded its per-attempt budget
	EAITimeout = errors.New("inference request timed out")

	// EAIUnavailable indicates the service is temporarily unavailable
	EAIUnavailable = errors.New("inference service temporarily unavailable")

	// EAIUnauthorized indicates invalid API credentials
	EAIUnauthorized = errors.New("inference provider authentication failed")
)

// IsRetryable returns true if the error is transient and worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, EAIRateLimit) ||
		errors.Is(err, EAITimeout) ||
		errors.Is(err, EAIUnavailable)
}

// InferenceError is the terminal failure of a Generate call, carrying
// how many attempts were made and the last underlying error.
type InferenceError struct {
	Attempts int
	Err      error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
