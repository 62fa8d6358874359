package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/fortunia-app/fortunia-api/internal"
	"github.com/fortunia-app/fortunia-api/internal/ai"
	"github.com/fortunia-app/fortunia-api/internal/ai/gemini"
	"github.com/fortunia-app/fortunia-api/internal/ai/mock"
	"github.com/fortunia-app/fortunia-api/internal/auth"
	"github.com/fortunia-app/fortunia-api/internal/entitlement"
	"github.com/fortunia-app/fortunia-api/internal/handler"
	"github.com/fortunia-app/fortunia-api/internal/jobs"
	"github.com/fortunia-app/fortunia-api/internal/media"
	"github.com/fortunia-app/fortunia-api/internal/metrics"
	"github.com/fortunia-app/fortunia-api/internal/middleware"
	"github.com/fortunia-app/fortunia-api/internal/repository"
	"github.com/fortunia-app/fortunia-api/internal/service"
	"github.com/fortunia-app/fortunia-api/internal/sharecard"
	"github.com/fortunia-app/fortunia-api/internal/storage"
	"github.com/fortunia-app/fortunia-api/internal/worker"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	queries := repository.New(db)

	// Initialize object storage
	store, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// Initialize inference provider
	provider, err := newProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("inference provider initialization failed: %w", err)
	}
	logger.Info("Inference provider ready", "provider", cfg.AIProvider)

	// Initialize services
	entitlements := entitlement.NewPostgresStore(db, cfg.QuotaDailyLimit, logger)
	resolver := auth.NewResolver(cfg.JWTSecret, logger)
	fetcher := media.NewHTTPFetcher(0)
	renderer := sharecard.NewRenderer()

	shareCardService := service.NewShareCardService(renderer, store, queries, logger)
	subscriptionService := service.NewSubscriptionService(queries, logger)
	horoscopeService := service.NewHoroscopeService(provider, logger)
	retentionService := service.NewRetentionService(queries, store, logger)

	// Asynchronous share-card generation rides on the job queue; when
	// the worker is disabled readings simply ship without a card.
	var enqueuer service.ShareCardEnqueuer
	if cfg.WorkerEnabled {
		enqueuer = worker.NewEnqueuer(queries)
	}
	readingService := service.NewReadingService(entitlements, fetcher, provider, queries, enqueuer, logger)

	// Start the background worker
	var jobWorker *worker.Worker
	if cfg.WorkerEnabled {
		workerCfg := worker.DefaultConfig()
		workerCfg.Concurrency = cfg.WorkerConcurrency
		workerCfg.PollInterval = cfg.WorkerPollInterval
		workerCfg.JobTimeout = cfg.WorkerJobTimeout
		jobWorker, err = worker.New(db, queries, workerCfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		jobWorker.Register(jobs.NewGenerateShareCardHandler(shareCardService, logger))
		jobWorker.Start(ctx)
		logger.Info("Worker started", "concurrency", cfg.WorkerConcurrency)
	}

	// Schedule the nightly retention sweep
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.RetentionCronSpec, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		cutoff := time.Now().Add(-cfg.RetentionWindow)
		summary, err := retentionService.Sweep(sweepCtx, cutoff)
		if err != nil {
			logger.Error("retention sweep failed", "error", err)
			return
		}
		logger.Info("retention sweep complete",
			"deleted_readings", summary.DeletedReadings,
			"deleted_share_cards", summary.DeletedShareCards,
		)
	})
	if err != nil {
		return fmt.Errorf("retention schedule failed: %w", err)
	}
	scheduler.Start()

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Locally stored files are served straight off disk. S3 objects are
	// reached through their public or presigned URLs instead.
	if cfg.StorageProvider == "local" {
		filesFS := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", filesFS))
	}

	// Inference-backed endpoints sit behind a per-IP rate limit.
	inferenceLimiter := middleware.NewInferenceRateLimiter(logger)
	inferenceMux := http.NewServeMux()
	handler.NewReadingHandler(resolver, readingService, logger).RegisterRoutes(inferenceMux)
	handler.NewHoroscopeHandler(horoscopeService, logger).RegisterRoutes(inferenceMux)
	limited := inferenceLimiter.Limit(inferenceMux)
	mux.Handle("POST /readings", limited)
	mux.Handle("POST /horoscopes", limited)

	handler.NewQuotaHandler(resolver, entitlements, logger).RegisterRoutes(mux)
	handler.NewSubscriptionHandler(resolver, subscriptionService, logger).RegisterRoutes(mux)
	handler.NewShareCardHandler(resolver, shareCardService, logger).RegisterRoutes(mux)
	handler.NewGuestHandler(queries, logger).RegisterRoutes(mux)
	handler.NewProfileHandler(resolver, queries, logger).RegisterRoutes(mux)
	handler.NewCleanupHandler(retentionService, cfg.RetentionWindow, cfg.MetricsUsername, cfg.MetricsPassword, logger).RegisterRoutes(mux)

	// Prometheus metrics, behind basic auth
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Middleware stack: security headers, request logging, HTTP metrics
	isSecure := cfg.Env != "development"
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	root := securityMw.Handler(loggingMw.Handler(metrics.Middleware(mux)))

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	// Stop background machinery after in-flight requests drain.
	cronCtx := scheduler.Stop()
	<-cronCtx.Done()
	if jobWorker != nil {
		jobWorker.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newStorage builds the object storage backend selected by configuration.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.StorageProvider == "s3" {
		return storage.NewS3Storage(storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			BucketName:      cfg.S3BucketName,
			PublicURL:       cfg.S3PublicURL,
			Region:          cfg.S3Region,
		}, logger)
	}
	return storage.NewLocalStorage(storage.LocalConfig{
		BasePath: cfg.LocalStoragePath,
		BaseURL:  cfg.LocalStorageURL,
	}, logger)
}

// newProvider builds the inference provider selected by configuration.
func newProvider(cfg *internal.Config, logger *slog.Logger) (ai.Provider, error) {
	if cfg.AIProvider == "gemini" {
		return gemini.New(gemini.Config{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
			ProviderConfig: ai.ProviderConfig{
				MaxAttempts:    cfg.AIMaxAttempts,
				RetryBaseDelay: cfg.AIRetryBaseDelay,
				RequestTimeout: cfg.AIRequestTimeout,
			},
		}, logger)
	}
	return mock.New(logger), nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
