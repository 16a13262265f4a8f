package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	database "github.com/chatterly/registration-service/app/db"
	appLogger "github.com/chatterly/registration-service/app/logger"
	"github.com/chatterly/registration-service/app/observability/metrics"
	"github.com/chatterly/registration-service/app/queue"
	"github.com/chatterly/registration-service/config"
	"github.com/chatterly/registration-service/internal/api/register"
	"github.com/chatterly/registration-service/internal/assets"
	"github.com/chatterly/registration-service/internal/email"
	"github.com/chatterly/registration-service/internal/reconcile"
	"github.com/chatterly/registration-service/internal/router"
	"github.com/chatterly/registration-service/internal/types"
	"github.com/chatterly/registration-service/internal/worker"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger(cfg.Mode)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Database ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Queue ---
	queueManager, err := queue.NewManager(cfg.Queue.URL, logger)
	if err != nil {
		logger.Error("Failed to connect to message broker", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = queueManager.Close() }()

	topologyCh, err := queueManager.Channel()
	if err != nil {
		logger.Error("Failed to open topology channel", slog.Any("error", err))
		os.Exit(1)
	}
	if err := queue.DeclareTopology(topologyCh, string(types.JobPersistUser), string(types.JobSendWelcomeEmail)); err != nil {
		logger.Error("Failed to declare queue topology", slog.Any("error", err))
		os.Exit(1)
	}
	_ = topologyCh.Close()

	publisher, err := queue.NewPublisher(queueManager, logger)
	if err != nil {
		logger.Error("Failed to create publisher", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = publisher.Close() }()

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.New(registry)

	// --- Dependency Injection ---
	repo := register.NewPostgresRepository(pool, logger)
	credentialCache := register.NewMemoryCredentialCache()
	dispatcher := register.NewAMQPDispatcher(publisher, logger)
	hasher := register.NewBcryptHasher()

	sweeper := reconcile.NewSweeper(repo, credentialCache, cfg.Reconcile.Interval, logger)
	go sweeper.Run(ctx)

	registerService := register.NewService(repo, credentialCache, dispatcher, hasher, sweeper, pipelineMetrics, cfg.JWT, logger)
	registerHandler := register.NewHandler(registerService, logger)

	// --- Background workers ---
	var uploader assets.Uploader
	if cfg.Assets.Bucket != "" {
		s3Uploader, err := assets.NewS3Uploader(ctx, cfg.Assets, logger)
		if err != nil {
			logger.Error("Failed to create asset uploader", slog.Any("error", err))
			os.Exit(1)
		}
		uploader = s3Uploader
	}

	sender := email.NewSMTPSender(cfg.Email, logger)
	runner := worker.NewRunner(queueManager, pipelineMetrics, cfg.Queue.PrefetchCount, cfg.Queue.Consumers, logger)
	go func() {
		err := runner.Run(ctx,
			worker.NewPersistenceWorker(repo, uploader, logger),
			worker.NewNotificationWorker(sender, logger),
		)
		if err != nil {
			logger.Error("Worker runner stopped", slog.Any("error", err))
			cancel()
		}
	}()

	// --- Router ---
	mainRouter := router.SetupRouter(&router.Config{
		RegisterHandler: registerHandler,
		MetricsGatherer: registry,
	})

	r := chi.NewMux()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(cfg.Server.Timeout))
	r.Mount("/", mainRouter)

	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger(mode string) *slog.Logger {
	if mode == "development" || mode == "" {
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		return slog.New(tint.NewHandler(os.Stdout, tintOpts))
	}

	jsonOpts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
}
