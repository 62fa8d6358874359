// Package mock provides a canned inference provider for testing and
// local development without API credentials.
package mock

import (
	"context"
	"log/slog"

	"github.com/fortunia-app/fortunia-api/internal/ai"
)

// Provider is a mock inference provider.
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing
	GenerateResponse string
	GenerateError    error

	// Call tracking for testing
	GenerateCalls int
	LastParams    ai.GenerateParams
}

// New creates a new mock provider.
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// Generate returns the configured response or a canned reading.
func (p *Provider) Generate(_ context.Context, params ai.GenerateParams) (string, error) {
	p.GenerateCalls++
	p.LastParams = params

	if p.GenerateError != nil {
		return "", p.GenerateError
	}
	if p.GenerateResponse != "" {
		return p.GenerateResponse, nil
	}

	return "The signs before me speak of a seeker standing at a threshold. " +
		"Patience has carried you this far, and the season ahead rewards it: " +
		"an opportunity you once set aside returns in a new form. Trust the " +
		"steadiness you have built, share your warmth freely, and the path " +
		"will rise to meet you.", nil
}
