package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"talentscan/cv-screener/internal/logger"
	"talentscan/cv-screener/internal/models"
	"talentscan/cv-screener/internal/repositories"
)

// ReindexStats summarizes one talent pool rebuild.
type ReindexStats struct {
	Indexed int
	Skipped int
	Failed  int
}

// ReindexTalentPool re-embeds every evaluated résumé, replacing the candidate's existing points.
func ReindexTalentPool(
	ctx context.Context,
	docRepo repositories.DocumentRepository,
	candidateRepo repositories.CandidateRepository,
	storage StorageService,
	extractor TextExtractor,
	pool TalentPool,
	log *zap.Logger,
) (ReindexStats, error) {
	log = logger.Component(log, "reindex")
	var stats ReindexStats

	docs, err := docRepo.FindEvaluated()
	if err != nil {
		return stats, fmt.Errorf("failed to load evaluated documents: %w", err)
	}

	byRun := make(map[uuid.UUID]map[uuid.UUID]models.CandidateLog)
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		docLog := log.With(zap.String(logger.FieldRunID, doc.RunID.String()), zap.String(logger.FieldFile, doc.OriginalFileName))

		candidates, ok := byRun[doc.RunID]
		if !ok {
			candidates, err = candidatesByDocument(candidateRepo, doc.RunID)
			if err != nil {
				return stats, err
			}
			byRun[doc.RunID] = candidates
		}

		candidate, ok := candidates[doc.ID]
		if !ok {
			docLog.Warn("no candidate recorded for document")
			stats.Skipped++
			continue
		}

		data, err := storage.Open(ctx, doc.StorageKey)
		if err != nil {
			docLog.Warn("stored résumé unavailable", zap.Error(err))
			stats.Skipped++
			continue
		}

		resume, err := extractor.ExtractText(data, doc.OriginalFileName)
		if err != nil {
			docLog.Warn("text extraction failed", zap.Error(err))
			stats.Failed++
			continue
		}

		if err := pool.Remove(ctx, candidate.ID.String()); err != nil {
			docLog.Warn("failed to clear previous points", zap.Error(err))
		}
		if err := pool.Index(ctx, &candidate, resume.Text); err != nil {
			docLog.Error("indexing failed", zap.Error(err))
			stats.Failed++
			continue
		}

		stats.Indexed++
	}

	log.Info("talent pool reindexed",
		zap.Int("indexed", stats.Indexed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

func candidatesByDocument(candidateRepo repositories.CandidateRepository, runID uuid.UUID) (map[uuid.UUID]models.CandidateLog, error) {
	candidates, err := candidateRepo.List(repositories.CandidateFilter{RunID: &runID})
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates for run %s: %w", runID, err)
	}

	out := make(map[uuid.UUID]models.CandidateLog, len(candidates))
	for _, c := range candidates {
		if c.DocumentID != nil {
			out[*c.DocumentID] = c
		}
	}
	return out, nil
}
