package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"talentscan/cv-screener/internal/logger"
	"talentscan/cv-screener/internal/models"
	"talentscan/cv-screener/internal/repositories"
)

// Upload is one résumé handed to the screener without going through storage.
type Upload struct {
	Name string
	Data []byte
}

// ScreenResult reports the outcome for one résumé of a batch.
type ScreenResult struct {
	SourceFile string
	Candidate  *models.CandidateLog
	Err        error
}

type ScreenerService interface {
	ScreenRun(ctx context.Context, runID uuid.UUID) error
	ScreenDocuments(ctx context.Context, jobTitle, jobDescription string, uploads []Upload, onResult func(ScreenResult)) ([]models.CandidateLog, error)
}

type ScreenerOptions struct {
	// RequestDelay is slept after every model call.
	RequestDelay time.Duration
	// RateLimitBackoff replaces RequestDelay after a throttled call.
	RateLimitBackoff time.Duration
}

type screenerService struct {
	runRepo       repositories.RunRepository
	docRepo       repositories.DocumentRepository
	candidateRepo repositories.CandidateRepository
	storage       StorageService
	extractor     TextExtractor
	gemini        GeminiService
	pool          TalentPool
	notifier      RunNotifier
	promptBuilder *PromptBuilder
	opts          ScreenerOptions
	log           *zap.Logger
}

func NewScreenerService(
	runRepo repositories.RunRepository,
	docRepo repositories.DocumentRepository,
	candidateRepo repositories.CandidateRepository,
	storage StorageService,
	extractor TextExtractor,
	gemini GeminiService,
	pool TalentPool,
	notifier RunNotifier,
	opts ScreenerOptions,
	log *zap.Logger,
) ScreenerService {
	if pool == nil {
		pool = NewDisabledTalentPool()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &screenerService{
		runRepo:       runRepo,
		docRepo:       docRepo,
		candidateRepo: candidateRepo,
		storage:       storage,
		extractor:     extractor,
		gemini:        gemini,
		pool:          pool,
		notifier:      notifier,
		promptBuilder: NewPromptBuilder(),
		opts:          opts,
		log:           logger.Component(log, "screener"),
	}
}

// ScreenRun screens every pending document of a run, one at a time, persisting progress after each.
func (s *screenerService) ScreenRun(ctx context.Context, runID uuid.UUID) error {
	log := s.log.With(zap.String(logger.FieldRunID, runID.String()))

	run, err := s.runRepo.FindByID(runID)
	if err != nil {
		return fmt.Errorf("failed to get screening run: %w", err)
	}
	if run.Status == models.RunCompleted || run.Status == models.RunFailed {
		log.Debug("run already finished", zap.String("status", string(run.Status)))
		return nil
	}

	docs, err := s.docRepo.FindByRun(runID)
	if err != nil {
		s.fail(runID, fmt.Sprintf("failed to load documents: %v", err))
		return fmt.Errorf("failed to load documents: %w", err)
	}

	if err := s.runRepo.UpdateStatus(runID, models.RunProcessing); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	total := len(docs)
	processed, failed := 0, 0
	var pending []models.ResumeDocument
	for _, doc := range docs {
		switch doc.Status {
		case models.DocumentEvaluated:
			processed++
		case models.DocumentFailed:
			processed++
			failed++
		default:
			pending = append(pending, doc)
		}
	}

	log.Info("screening run started",
		zap.String("job_title", run.JobTitle),
		zap.Int("total", total),
		zap.Int("pending", len(pending)),
	)
	s.publish(ctx, RunUpdate{RunID: runID.String(), Status: models.RunProcessing, Total: total, Processed: processed, Failed: failed})

	for _, doc := range pending {
		if err := ctx.Err(); err != nil {
			s.requeue(runID, log)
			return err
		}

		docLog := log.With(zap.String(logger.FieldFile, doc.OriginalFileName))
		update := RunUpdate{RunID: runID.String(), Status: models.RunProcessing, Total: total}

		candidate, err := s.screenDocument(ctx, run, doc, docLog)
		if err != nil && ctx.Err() != nil {
			// Interrupted mid-call: the document stays pending for the next attempt.
			docLog.Info("screening interrupted", zap.Error(err))
			s.requeue(runID, log)
			return ctx.Err()
		}
		processed++
		if err != nil {
			failed++
			docLog.Warn("résumé skipped", zap.Error(err))
			if merr := s.docRepo.MarkFailed(doc.ID, err.Error()); merr != nil {
				docLog.Error("failed to mark document failed", zap.Error(merr))
			}
			update.Error = err.Error()
		} else {
			update.CandidateName = candidate.CandidateName
			score := candidate.Score
			update.Score = &score
		}

		if err := s.runRepo.UpdateProgress(runID, processed, failed); err != nil {
			docLog.Error("failed to persist progress", zap.Error(err))
		}
		update.Processed, update.Failed = processed, failed
		s.publish(ctx, update)
	}

	status, message := models.RunCompleted, ""
	if total > 0 && failed == total {
		status = models.RunFailed
		message = fmt.Sprintf("all %d résumés failed to screen", total)
	}
	if err := s.runRepo.Complete(runID, status, message); err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	log.Info("screening run finished",
		zap.String("status", string(status)),
		zap.Int("processed", processed),
		zap.Int("failed", failed),
	)
	s.publish(ctx, RunUpdate{RunID: runID.String(), Status: status, Total: total, Processed: processed, Failed: failed, Error: message})

	return nil
}

func (s *screenerService) screenDocument(ctx context.Context, run *models.ScreeningRun, doc models.ResumeDocument, log *zap.Logger) (*models.CandidateLog, error) {
	data, err := s.storage.Open(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to open stored résumé: %w", err)
	}

	candidate, text, err := s.evaluate(ctx, run.JobTitle, run.JobDescription, doc.OriginalFileName, data, log)
	if err != nil {
		return nil, err
	}

	docID := doc.ID
	candidate.RunID = run.ID
	candidate.DocumentID = &docID

	if err := s.candidateRepo.Create(candidate); err != nil {
		return nil, fmt.Errorf("failed to save candidate: %w", err)
	}
	if err := s.docRepo.MarkEvaluated(doc.ID); err != nil {
		log.Error("failed to mark document evaluated", zap.Error(err))
	}

	if err := s.pool.Index(ctx, candidate, text); err != nil {
		log.Warn("talent pool indexing failed", zap.Error(err))
	}

	log.Info("candidate scored", zap.String("candidate", candidate.CandidateName), zap.Int("score", candidate.Score))
	return candidate, nil
}

// ScreenDocuments runs the same pipeline over in-memory uploads without touching the database.
func (s *screenerService) ScreenDocuments(ctx context.Context, jobTitle, jobDescription string, uploads []Upload, onResult func(ScreenResult)) ([]models.CandidateLog, error) {
	batchID := uuid.New()
	log := s.log.With(zap.String(logger.FieldRunID, batchID.String()))

	candidates := make([]models.CandidateLog, 0, len(uploads))
	for _, upload := range uploads {
		if err := ctx.Err(); err != nil {
			return candidates, err
		}

		docLog := log.With(zap.String(logger.FieldFile, upload.Name))
		candidate, _, err := s.evaluate(ctx, jobTitle, jobDescription, upload.Name, upload.Data, docLog)
		if err != nil {
			docLog.Warn("résumé skipped", zap.Error(err))
		} else {
			candidate.ID = uuid.New()
			candidate.RunID = batchID
			candidate.CreatedAt = time.Now()
			candidates = append(candidates, *candidate)
		}

		if onResult != nil {
			onResult(ScreenResult{SourceFile: upload.Name, Candidate: candidate, Err: err})
		}
	}

	return candidates, nil
}

// evaluate extracts, prompts, calls the model and normalizes one résumé, then observes the pacing delay.
func (s *screenerService) evaluate(ctx context.Context, jobTitle, jobDescription, fileName string, data []byte, log *zap.Logger) (*models.CandidateLog, string, error) {
	resume, err := s.extractor.ExtractText(data, fileName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to extract text: %w", err)
	}
	log.Debug("text extracted", zap.Int("pages_read", resume.PagesRead), zap.Int("chars", len(resume.Text)))

	prompt := s.promptBuilder.BuildScreeningPrompt(jobTitle, jobDescription, resume.Text)

	raw, err := s.gemini.GenerateJSON(ctx, prompt)
	s.pace(ctx, err, log)
	if err != nil {
		return nil, "", fmt.Errorf("model call failed: %w", err)
	}

	eval, err := ParseEvaluation(raw, fileName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse model response: %w", err)
	}

	return eval.ToCandidateLog(uuid.Nil, jobTitle, fileName), resume.Text, nil
}

func (s *screenerService) pace(ctx context.Context, callErr error, log *zap.Logger) {
	delay := s.opts.RequestDelay
	if IsRateLimitError(callErr) {
		delay = s.opts.RateLimitBackoff
		log.Warn("rate limited, backing off", zap.Duration("backoff", delay))
	}
	if err := waitFor(ctx, delay); err != nil && !errors.Is(err, context.Canceled) {
		log.Debug("pacing interrupted", zap.Error(err))
	}
}

// requeue hands an interrupted run back to the poller so it resumes on the next start.
func (s *screenerService) requeue(runID uuid.UUID, log *zap.Logger) {
	if err := s.runRepo.UpdateStatus(runID, models.RunQueued); err != nil {
		log.Warn("failed to requeue interrupted run", zap.Error(err))
	}
}

func (s *screenerService) fail(runID uuid.UUID, message string) {
	if err := s.runRepo.Complete(runID, models.RunFailed, message); err != nil {
		s.log.Error("failed to mark run failed", zap.String(logger.FieldRunID, runID.String()), zap.Error(err))
	}
}

func (s *screenerService) publish(ctx context.Context, update RunUpdate) {
	if err := s.notifier.Publish(ctx, update); err != nil {
		s.log.Warn("failed to publish run update", zap.String(logger.FieldRunID, update.RunID), zap.Error(err))
	}
}
