package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"talentscan/cv-screener/internal/config"
	"talentscan/cv-screener/internal/logger"
	"talentscan/cv-screener/internal/repositories"
	"talentscan/cv-screener/internal/services"
)

// Rebuilds the Qdrant talent pool from every evaluated résumé in Postgres and storage.
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

	if !cfg.Qdrant.Enabled() {
		log.Fatal("QDRANT_URL is not set, nothing to reindex")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	storage, err := services.NewStorageService(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}

	gemini, err := services.NewGeminiService(ctx, cfg.Gemini, cfg.Screening.LogPreviewLength, log)
	if err != nil {
		log.Fatal("failed to initialize gemini", zap.Error(err))
	}

	store, err := services.NewQdrantStore(cfg.Qdrant, log)
	if err != nil {
		log.Fatal("failed to initialize qdrant", zap.Error(err))
	}
	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatal("failed to initialize collection", zap.Error(err))
	}

	pool := services.NewTalentPool(
		store,
		gemini,
		services.NewTextChunker(services.DefaultChunkSize, services.DefaultChunkOverlap),
		log,
	)

	stats, err := services.ReindexTalentPool(
		ctx,
		repositories.NewDocumentRepository(db),
		repositories.NewCandidateRepository(db),
		storage,
		services.NewTextExtractor(cfg.Screening.PageLimit),
		pool,
		log,
	)
	if err != nil {
		log.Fatal("reindex aborted", zap.Error(err))
	}

	fmt.Printf("Indexed: %d, skipped: %d, failed: %d\n", stats.Indexed, stats.Skipped, stats.Failed)
}
