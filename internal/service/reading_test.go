package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortunia-app/fortunia-api/internal/ai/mock"
	"github.com/fortunia-app/fortunia-api/internal/domain"
	"github.com/fortunia-app/fortunia-api/internal/entitlement"
	"github.com/fortunia-app/fortunia-api/internal/media"
	"github.com/fortunia-app/fortunia-api/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// =============================================================================
// Fakes
// =============================================================================

type fakeEntitlements struct {
	state      domain.EntitlementState
	statusErr  error
	consumeErr error

	consumeCalls int
}

func (f *fakeEntitlements) GetStatus(_ context.Context, _ uuid.UUID) (domain.EntitlementState, error) {
	if f.statusErr != nil {
		return domain.EntitlementState{}, f.statusErr
	}
	return f.state, nil
}

func (f *fakeEntitlements) Consume(_ context.Context, _ uuid.UUID) (domain.EntitlementState, error) {
	f.consumeCalls++
	if f.consumeErr != nil {
		return domain.EntitlementState{}, f.consumeErr
	}
	f.state.QuotaUsed++
	return f.state, nil
}

type fakeFetcher struct {
	image media.Image
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (media.Image, error) {
	f.calls++
	if f.err != nil {
		return media.Image{}, f.err
	}
	return f.image, nil
}

type fakeReadingRepo struct {
	profile    domain.BirthProfile
	profileErr error

	createUserErr    error
	createReadingErr error

	createReadingCalls int
	lastParams         repository.CreateReadingParams
}

func (f *fakeReadingRepo) CreateUser(_ context.Context, _ uuid.UUID) error {
	return f.createUserErr
}

func (f *fakeReadingRepo) GetBirthProfile(_ context.Context, _ uuid.UUID) (domain.BirthProfile, error) {
	if f.profileErr != nil {
		return domain.BirthProfile{}, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeReadingRepo) CreateReading(_ context.Context, params repository.CreateReadingParams) (domain.Reading, error) {
	f.createReadingCalls++
	f.lastParams = params
	if f.createReadingErr != nil {
		return domain.Reading{}, f.createReadingErr
	}
	return domain.Reading{
		ID:             uuid.New(),
		UserID:         params.UserID,
		ReadingType:    params.ReadingType,
		CulturalOrigin: params.CulturalOrigin,
		ImageURL:       params.ImageURL,
		ResultText:     params.ResultText,
		IsPremium:      params.IsPremium,
		CreatedAt:      time.Now(),
	}, nil
}

type fakeEnqueuer struct {
	err   error
	calls int
	last  uuid.UUID
}

func (f *fakeEnqueuer) EnqueueShareCard(_ context.Context, readingID, _ uuid.UUID) error {
	f.calls++
	f.last = readingID
	if f.err != nil {
		return f.err
	}
	return nil
}

func guestPrincipal() domain.Principal {
	return domain.Principal{ID: uuid.New(), Kind: domain.PrincipalGuest}
}

// =============================================================================
// Tests
// =============================================================================

func TestProcessGuestTarotHappyPath(t *testing.T) {
	store := entitlement.NewMemoryStore(3)
	fetcher := &fakeFetcher{}
	provider := mock.New(testLogger())
	provider.GenerateResponse = "The cards show a turning tide."
	repo := &fakeReadingRepo{}
	enqueuer := &fakeEnqueuer{}

	svc := NewReadingService(store, fetcher, provider, repo, enqueuer, testLogger())

	principal := guestPrincipal()
	resp, err := svc.Process(context.Background(), principal, domain.ReadingRequest{
		ReadingType:    domain.ReadingTypeTarot,
		CulturalOrigin: domain.OriginEuropean,
	})
	require.NoError(t, err)

	assert.Equal(t, "The cards show a turning tide.", resp.ResultText)
	assert.Equal(t, domain.ReadingTypeTarot, resp.ReadingType)
	assert.Equal(t, domain.OriginEuropean, resp.CulturalOrigin)
	assert.Nil(t, resp.ShareCardURL)
	assert.GreaterOrEqual(t, resp.ProcessingTime, time.Duration(0))

	// Tarot needs no image.
	assert.Equal(t, 0, fetcher.calls)
	assert.Equal(t, 1, provider.GenerateCalls)
	assert.Equal(t, 1, repo.createReadingCalls)
	assert.Equal(t, 1, enqueuer.calls)

	state, err := store.GetStatus(context.Background(), principal.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.QuotaUsed)
	assert.Equal(t, 2, state.QuotaRemaining())
}

func TestProcessFetchesImageForPalmReading(t *testing.T) {
	store := entitlement.NewMemoryStore(3)
	fetcher := &fakeFetcher{image: media.Image{MimeType: "image/jpeg", Data: []byte("jpegdata")}}
	provider := mock.New(testLogger())
	repo := &fakeReadingRepo{}

	svc := NewReadingService(store, fetcher, provider, repo, nil, testLogger())

	_, err := svc.Process(context.Background(), guestPrincipal(), domain.ReadingRequest{
		ReadingType:    domain.ReadingTypePalm,
		CulturalOrigin: domain.OriginChinese,
		ImageURL:       "https://cdn.example.com/uploads/palm.jpg",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.calls)
	require.NotNil(t, provider.LastParams.Image)
	assert.Equal(t, "image/jpeg", provider.LastParams.Image.MimeType)
	assert.Equal(t, []byte("jpegdata"), provider.LastParams.Image.Data)
}

func TestProcessQuotaExhaustedShortCircuits(t *testing.T) {
	ents := &fakeEntitlements{state: domain.EntitlementState{QuotaUsed: 3, QuotaLimit: 3}}
	fetcher := &fakeFetcher{}
	provider := mock.New(testLogger())
	repo := &fakeReadingRepo{}

	svc := NewReadingService(ents, fetcher, provider, repo, nil, testLogger())

	_, err := svc.Process(context.Background(), guestPrincipal(), domain.ReadingRequest{
		ReadingType:    domain.ReadingTypePalm,
		CulturalOrigin: domain.OriginChinese,
		ImageURL:       "https://cdn.example.com/uploads/palm.jpg",
	})
	require.Error(t, err)
	assert.Equal(t, domain.ERATELIMIT, domain.ErrorCode(err))
	assert.Contains(t, domain.ErrorMessage(err), "Daily quota exceeded (3/3)")

	// Nothing past the gate runs: no fetch, no inference, no persist.
	assert.Equal(t, 0, fetcher.calls)
	assert.Equal(t, 0, provider.GenerateCalls)
	assert.Equal(t, 0, repo.createReadingCalls)
	assert.Equal(t, 0, ents.consumeCalls)
}

func TestProcessPremiumBypassesQuota(t *testing.T) {
	ents := &fakeEntitlements{state: domain.EntitlementState{QuotaUsed: 40, QuotaLimit: 3, IsPremium: true}}
	provider := mock.New(testLogger())
	repo := &fakeReadingRepo{}

	svc := NewReadingService(ents, &fakeFetcher{}, provider, repo, nil, testLogger())

	_, err := svc.Process(context.Background(), guestPrincipal(), domain.ReadingRequest{
		ReadingType:    domain.ReadingTypeTarot,
		CulturalOrigin: domain.OriginIndian,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ents.consumeCalls)
	assert.True(t, repo.lastParams.IsPremium)
}

func TestProcessMediaFailureDoesNotCharge(t *testing.T) {
	ents := &fakeEntitlements{state: domain.EntitlementState{QuotaUsed: 0, QuotaLimit: 3}}
	fetcher := &fakeFetcher{err: domain.Upstream(errors.New("status 404"), "media.fetch", "Could not download the image")}
	provider := mock.New(testLogger())
	repo := &fakeReadingRepo{}

	svc := NewReadingService(ents, fetcher, provider, repo, nil, testLogger())

	_, err := svc.Process(context.Background(), guestPrincipal(), domain.ReadingRequest{
		ReadingType:    domain.ReadingTypeFace,
		CulturalOrigin: domain.OriginAfrican,
		ImageURL:       "https://cdn.example.com/uploads/face.jpg",
	})
	require.Error(t, err)
	assert.Equal(t, domain.EUPSTREAM, domain.ErrorCode(err))

	assert.Equal(t, 0, provider.GenerateCalls)
	assert.Equal(t, 0, repo.createReadingCalls)
	assert.Equal(t, 0, ents.consumeCalls)
}

func TestProcessInferenceFailureDoesNotCharge(t *testing.T) {
	ents := &fakeEntitlements{state: domain.EntitlementState{QuotaLimit: 3}}
	provider := mock.New(testLogger())
	provider.GenerateError = errors.New("model unavailable")
	repo := &fakeReadingRepo{}

	svc := NewReadingService(ents, &fakeFetcher{}, provider, repo, nil, testLogger())

	_, err := svc.Process(context.Background(), guestPrincipal(), domain.ReadingRequest{
		ReadingType:    domain.ReadingTypeTarot,
		CulturalOrigin: domain.OriginMiddleEastern,
	})
	require.Error(t, err)
	assert.Equal(t, domain.EUPSTREAM, domain.ErrorCode(err))
	assert.Equal(t, "The spirits are silent right now. Please try again.", domain.ErrorMessage(err))

	assert.Equal(t, 0, repo.createReadingCalls)
	assert.Equal(t, 0, ents.consumeCalls)
}

func TestProcessPersistFailureDoesNotConsume(t *testing.T) {
	ents := &fakeEntitlements{state: domain.EntitlementState{QuotaLimit: 3}}
	provider := mock.New(testLogger())
	repo := &fakeReadingRepo{createReadingErr: errors.New("connection reset")}

	svc := NewReadingService(ents, &fakeFetcher{}, provider, repo, nil, testLogger())

	_, err := svc.Process(context.Background(), guestPrincipal(), domain.ReadingRequest{
		ReadingType:    domain.ReadingTypeTarot,
		CulturalOrigin: domain.OriginEuropean,
	})
	require.Error(t, err)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))

	// A reading only charges once persisted.
	assert.Equal(t, 0, ents.consumeCalls)
}

func TestProcessConsumeFailureStillReturnsReading(t *testing.T) {
	ents := &fakeEntitlements{
		state:      domain.EntitlementState{QuotaLimit: 3},
		consumeErr: errors.New("store unavailable"),
	}
	provider := mock.New(testLogger())
	provider.GenerateResponse = "text A"
	repo := &fakeReadingRepo{}

	svc := NewReadingService(ents, &fakeFetcher{}, provider, repo, nil, testLogger())

	resp, err := svc.Process(context.Background(), guestPrincipal(), domain.ReadingRequest{
		ReadingType:    domain.ReadingTypeCoffee,
		CulturalOrigin: domain.OriginMiddleEastern,
		ImageURL:       "https://cdn.example.com/uploads/cup.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "text A", resp.ResultText)
	assert.Equal(t, 1, ents.consumeCalls)
}

func TestProcessEnqueueFailureIsTolerated(t *testing.T) {
	store := entitlement.NewMemoryStore(3)
	provider := mock.New(testLogger())
	repo := &fakeReadingRepo{}
	enqueuer := &fakeEnqueuer{err: errors.New("queue full")}

	svc := NewReadingService(store, &fakeFetcher{}, provider, repo, enqueuer, testLogger())

	_, err := svc.Process(context.Background(), guestPrincipal(), domain.ReadingRequest{
		ReadingType:    domain.ReadingTypeTarot,
		CulturalOrigin: domain.OriginEuropean,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, enqueuer.calls)
}

func TestProcessPersonalizesPromptFromProfile(t *testing.T) {
	birthDate := time.Date(1990, time.March, 12, 0, 0, 0, 0, time.UTC)
	repo := &fakeReadingRepo{profile: domain.BirthProfile{
		BirthDate:    &birthDate,
		BirthTime:    "07:45",
		BirthCity:    "Istanbul",
		BirthCountry: "Turkey",
	}}
	provider := mock.New(testLogger())

	svc := NewReadingService(entitlement.NewMemoryStore(3), &fakeFetcher{}, provider, repo, nil, testLogger())

	_, err := svc.Process(context.Background(), guestPrincipal(), domain.ReadingRequest{
		ReadingType:    domain.ReadingTypeTarot,
		CulturalOrigin: domain.OriginMiddleEastern,
	})
	require.NoError(t, err)

	prompt := provider.LastParams.Prompt
	assert.Contains(t, prompt, "Istanbul, Turkey")
	assert.Contains(t, prompt, "at the sacred hour of 07:45")
	assert.True(t, strings.Contains(prompt, "years of life experience"))
}

func TestProcessProfileLookupFailureIsBestEffort(t *testing.T) {
	repo := &fakeReadingRepo{profileErr: errors.New("timeout")}
	provider := mock.New(testLogger())

	svc := NewReadingService(entitlement.NewMemoryStore(3), &fakeFetcher{}, provider, repo, nil, testLogger())

	_, err := svc.Process(context.Background(), guestPrincipal(), domain.ReadingRequest{
		ReadingType:    domain.ReadingTypeTarot,
		CulturalOrigin: domain.OriginEuropean,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.GenerateCalls)
}

func TestProcessRejectsInvalidRequest(t *testing.T) {
	svc := NewReadingService(entitlement.NewMemoryStore(3), &fakeFetcher{}, mock.New(testLogger()), &fakeReadingRepo{}, nil, testLogger())

	tests := []struct {
		name string
		req  domain.ReadingRequest
	}{
		{"unknown type", domain.ReadingRequest{ReadingType: "tea", CulturalOrigin: domain.OriginChinese}},
		{"unknown origin", domain.ReadingRequest{ReadingType: domain.ReadingTypeTarot, CulturalOrigin: "martian"}},
		{"missing image url", domain.ReadingRequest{ReadingType: domain.ReadingTypePalm, CulturalOrigin: domain.OriginChinese}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Process(context.Background(), guestPrincipal(), tt.req)
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		})
	}
}
