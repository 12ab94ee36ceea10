package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"talentscan/cv-screener/internal/config"
	"talentscan/cv-screener/internal/handlers"
	"talentscan/cv-screener/internal/logger"
	"talentscan/cv-screener/internal/repositories"
	"talentscan/cv-screener/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.LogJSON, cfg.Server.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		return err
	}

	runRepo := repositories.NewRunRepository(db)
	docRepo := repositories.NewDocumentRepository(db)
	candidateRepo := repositories.NewCandidateRepository(db)

	storage, err := services.NewStorageService(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}

	extractor := services.NewTextExtractor(cfg.Screening.PageLimit)

	gemini, err := services.NewGeminiService(ctx, cfg.Gemini, cfg.Screening.LogPreviewLength, log)
	if err != nil {
		return err
	}

	pool := services.NewDisabledTalentPool()
	if cfg.Qdrant.Enabled() {
		store, err := services.NewQdrantStore(cfg.Qdrant, log)
		if err != nil {
			return err
		}
		if err := store.EnsureCollection(ctx); err != nil {
			return err
		}
		chunker := services.NewTextChunker(services.DefaultChunkSize, services.DefaultChunkOverlap)
		pool = services.NewTalentPool(store, gemini, chunker, log)
		log.Info("talent pool enabled", zap.String("collection", cfg.Qdrant.Collection))
	} else {
		log.Info("talent pool disabled, QDRANT_URL not set")
	}

	notifier, err := services.NewRunNotifier(cfg.Broker, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			log.Warn("failed to close notifier", zap.Error(err))
		}
	}()

	var drive services.DriveImporter
	if importer, err := services.NewDriveImporter(ctx, cfg.Drive, log); err != nil {
		log.Warn("google drive import disabled", zap.Error(err))
	} else {
		drive = importer
	}

	screener := services.NewScreenerService(
		runRepo,
		docRepo,
		candidateRepo,
		storage,
		extractor,
		gemini,
		pool,
		notifier,
		services.ScreenerOptions{
			RequestDelay:     cfg.Screening.RequestDelay,
			RateLimitBackoff: cfg.Screening.RateLimitBackoff,
		},
		log,
	)

	worker := services.NewWorker(runRepo, screener, services.WorkerOptions{
		Concurrency:  cfg.Worker.Concurrency,
		PollInterval: cfg.Worker.PollInterval,
		QueueSize:    cfg.Worker.QueueSize,
	}, log)
	worker.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      "TalentScan CV Screener API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		// A run uploads several résumés in one request.
		BodyLimit:    int(cfg.Storage.MaxFileSize) * 20,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.RegisterRoutes(app, handlers.Handlers{
		Screening: handlers.NewScreeningHandler(
			runRepo,
			docRepo,
			candidateRepo,
			storage,
			worker,
			drive,
			cfg.Storage.MaxFileSize,
			cfg.Screening.ShortlistSize,
			log,
		),
		Candidate: handlers.NewCandidateHandler(candidateRepo, pool, log),
		Analytics: handlers.NewAnalyticsHandler(services.NewAnalyticsService(candidateRepo)),
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down server")
		worker.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Server.Env))

	if err := app.Listen(addr); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
