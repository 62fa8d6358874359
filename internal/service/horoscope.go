package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fortunia-app/fortunia-api/internal/ai"
	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/metrics"
)

// zodiacSigns are the accepted values for a horoscope request, lowercase.
var zodiacSigns = map[string]bool{
	"aries": true, "taurus": true, "gemini": true, "cancer": true,
	"leo": true, "virgo": true, "libra": true, "scorpio": true,
	"sagittarius": true, "capricorn": true, "aquarius": true, "pisces": true,
}

// Horoscope is one day's prediction for a zodiac sign.
type Horoscope struct {
	Sign       string `json:"sign"`
	Prediction string `json:"prediction"`
	Date       string `json:"date"`
}

// HoroscopeService produces daily horoscopes through a prompt-only
// inference call.
type HoroscopeService struct {
	provider ai.Provider
	logger   *slog.Logger
	now      func() time.Time
}

// NewHoroscopeService creates a HoroscopeService.
func NewHoroscopeService(provider ai.Provider, logger *slog.Logger) *HoroscopeService {
	return &HoroscopeService{
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// Generate produces today's horoscope for the given sign. The prompt is
// composed server-side; clients only choose the sign.
func (s *HoroscopeService) Generate(ctx context.Context, sign string) (Horoscope, error) {
	const op = "horoscope.generate"

	sign = strings.ToLower(strings.TrimSpace(sign))
	if !zodiacSigns[sign] {
		return Horoscope{}, domain.Invalid(op, fmt.Sprintf("unknown zodiac sign %q", sign))
	}

	today := s.now().UTC().Format("2006-01-02")
	prompt := fmt.Sprintf(
		"You are an experienced astrologer. Write today's (%s) horoscope for %s. "+
			"Cover love, career, and wellbeing in an encouraging, grounded tone. "+
			"Write 80-120 words of plain prose with no headings or lists.",
		today, sign,
	)

	text, err := s.provider.Generate(ctx, ai.GenerateParams{Prompt: prompt})
	if err != nil {
		metrics.InferenceFailures.Inc()
		return Horoscope{}, domain.Upstream(err, op, "The stars are quiet right now. Please try again.")
	}

	s.logger.Info("horoscope generated", "sign", sign, "date", today)
	return Horoscope{
		Sign:       sign,
		Prediction: strings.TrimSpace(text),
		Date:       today,
	}, nil
}
