package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"talentscan/cv-screener/internal/logger"
	"talentscan/cv-screener/internal/models"
	"talentscan/cv-screener/internal/repositories"
	"talentscan/cv-screener/internal/services"
)

const missingInputMessage = "Please fill in Job Title, JD, and upload CVs."

type ScreeningHandler struct {
	runRepo       repositories.RunRepository
	docRepo       repositories.DocumentRepository
	candidateRepo repositories.CandidateRepository
	storage       services.StorageService
	worker        services.Worker
	drive         services.DriveImporter
	maxFileSize   int64
	shortlistSize int
	log           *zap.Logger
}

func NewScreeningHandler(
	runRepo repositories.RunRepository,
	docRepo repositories.DocumentRepository,
	candidateRepo repositories.CandidateRepository,
	storage services.StorageService,
	worker services.Worker,
	drive services.DriveImporter,
	maxFileSize int64,
	shortlistSize int,
	log *zap.Logger,
) *ScreeningHandler {
	return &ScreeningHandler{
		runRepo:       runRepo,
		docRepo:       docRepo,
		candidateRepo: candidateRepo,
		storage:       storage,
		worker:        worker,
		drive:         drive,
		maxFileSize:   maxFileSize,
		shortlistSize: shortlistSize,
		log:           logger.Component(log, "screening_handler"),
	}
}

// incomingFile is a résumé accepted for a run but not yet stored.
type incomingFile struct {
	name string
	size int64
	open func() (io.ReadCloser, error)
}

// HandleCreate handles POST /screenings
func (h *ScreeningHandler) HandleCreate(c *fiber.Ctx) error {
	jobTitle := strings.TrimSpace(c.FormValue("job_title"))
	jobDescription := strings.TrimSpace(c.FormValue("job_description"))

	form, err := c.MultipartForm()
	if err != nil || jobTitle == "" || jobDescription == "" || len(form.File["files"]) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": missingInputMessage,
		})
	}

	var incoming []incomingFile
	for _, fh := range form.File["files"] {
		fh := fh
		incoming = append(incoming, incomingFile{
			name: fh.Filename,
			size: fh.Size,
			open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	return h.createRun(c, jobTitle, jobDescription, incoming)
}

// HandleCreateFromDrive handles POST /screenings/drive
func (h *ScreeningHandler) HandleCreateFromDrive(c *fiber.Ctx) error {
	if h.drive == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Google Drive import is not configured",
		})
	}

	var req models.DriveScreeningRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	req.JobTitle = strings.TrimSpace(req.JobTitle)
	req.JobDescription = strings.TrimSpace(req.JobDescription)
	if req.JobTitle == "" || req.JobDescription == "" || strings.TrimSpace(req.FolderID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": missingInputMessage,
		})
	}

	files, err := h.drive.ListResumes(c.UserContext(), req.FolderID)
	if err != nil {
		h.log.Error("drive listing failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to list Google Drive folder",
		})
	}

	var incoming []incomingFile
	for _, f := range files {
		data, err := h.drive.Download(c.UserContext(), f.ID)
		if err != nil {
			h.log.Warn("drive download failed", zap.String(logger.FieldFile, f.Name), zap.Error(err))
			continue
		}
		incoming = append(incoming, incomingFile{
			name: f.Name,
			size: int64(len(data)),
			open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
		})
	}

	if len(incoming) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No résumés found in the Google Drive folder",
		})
	}

	return h.createRun(c, req.JobTitle, req.JobDescription, incoming)
}

func (h *ScreeningHandler) createRun(c *fiber.Ctx, jobTitle, jobDescription string, incoming []incomingFile) error {
	ctx := c.UserContext()
	runID := uuid.New()

	seen := make(map[string]bool, len(incoming))
	var skipped []string
	var docs []models.ResumeDocument

	for _, f := range incoming {
		if seen[f.name] {
			skipped = append(skipped, fmt.Sprintf("%s: duplicate file name", f.name))
			continue
		}
		seen[f.name] = true

		if h.maxFileSize > 0 && f.size > h.maxFileSize {
			skipped = append(skipped, fmt.Sprintf("%s: file too large, max size %d bytes", f.name, h.maxFileSize))
			continue
		}

		mimeType, err := services.MimeTypeFor(f.name)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", f.name, err))
			continue
		}

		key, err := h.store(ctx, f)
		if err != nil {
			h.log.Error("failed to store résumé", zap.String(logger.FieldFile, f.name), zap.Error(err))
			h.cleanup(c, docs)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": fmt.Sprintf("failed to save file %s", f.name),
			})
		}

		docs = append(docs, models.ResumeDocument{
			ID:               uuid.New(),
			RunID:            runID,
			OriginalFileName: f.name,
			StorageKey:       key,
			MimeType:         mimeType,
			SizeBytes:        f.size,
			Status:           models.DocumentPending,
		})
	}

	if len(docs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "No supported résumé files were uploaded",
			"skipped": skipped,
		})
	}

	run := &models.ScreeningRun{
		ID:             runID,
		JobTitle:       jobTitle,
		JobDescription: jobDescription,
		Status:         models.RunQueued,
		Total:          len(docs),
	}

	if err := h.runRepo.Create(run); err != nil {
		h.log.Error("failed to create run", zap.Error(err))
		h.cleanup(c, docs)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create screening run",
		})
	}

	if err := h.docRepo.CreateBatch(docs); err != nil {
		h.log.Error("failed to create documents", zap.String(logger.FieldRunID, runID.String()), zap.Error(err))
		h.cleanup(c, docs)
		if cerr := h.runRepo.Complete(runID, models.RunFailed, "failed to register documents"); cerr != nil {
			h.log.Error("failed to mark run failed", zap.Error(cerr))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to register uploaded documents",
		})
	}

	h.worker.EnqueueRun(runID)

	h.log.Info("screening run queued",
		zap.String(logger.FieldRunID, runID.String()),
		zap.Int("documents", len(docs)),
		zap.Int("skipped", len(skipped)),
	)

	return c.Status(fiber.StatusAccepted).JSON(models.CreateScreeningResponse{
		ID:        runID.String(),
		Status:    string(models.RunQueued),
		Documents: len(docs),
		Skipped:   skipped,
	})
}

func (h *ScreeningHandler) store(ctx context.Context, f incomingFile) (string, error) {
	src, err := f.open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	return h.storage.Save(ctx, f.name, src)
}

func (h *ScreeningHandler) cleanup(c *fiber.Ctx, docs []models.ResumeDocument) {
	for _, doc := range docs {
		if err := h.storage.Delete(c.UserContext(), doc.StorageKey); err != nil {
			h.log.Warn("failed to remove stored résumé", zap.String("key", doc.StorageKey), zap.Error(err))
		}
	}
}

// HandleGet handles GET /screenings/:id
func (h *ScreeningHandler) HandleGet(c *fiber.Ctx) error {
	run, ok, err := h.findRun(c)
	if !ok {
		return err
	}

	limit := h.shortlistSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a non-negative integer",
			})
		}
		limit = n
	}

	ranked, err := h.rankedForRun(run.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load candidates",
		})
	}

	return c.JSON(models.ScreeningResponse{
		ID:           run.ID.String(),
		JobTitle:     run.JobTitle,
		Status:       string(run.Status),
		Total:        run.Total,
		Processed:    run.Processed,
		Failed:       run.Failed,
		ErrorMessage: run.ErrorMessage,
		Shortlist:    services.Shortlist(ranked, limit),
	})
}

// HandleExport handles GET /screenings/:id/export
func (h *ScreeningHandler) HandleExport(c *fiber.Ctx) error {
	format, err := services.ParseExportFormat(c.Query("format"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	run, ok, err := h.findRun(c)
	if !ok {
		return err
	}

	ranked, err := h.rankedForRun(run.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load candidates",
		})
	}

	var buf bytes.Buffer
	if err := services.Export(&buf, format, run.JobTitle, ranked); err != nil {
		h.log.Error("export failed", zap.String(logger.FieldRunID, run.ID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build export",
		})
	}

	c.Attachment(fmt.Sprintf("screening_%s.%s", run.ID, format))
	c.Set(fiber.HeaderContentType, format.ContentType())
	return c.Send(buf.Bytes())
}

// findRun resolves :id; when ok is false the response has already been written and err must be returned.
func (h *ScreeningHandler) findRun(c *fiber.Ctx) (*models.ScreeningRun, bool, error) {
	runID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid screening ID format",
		})
	}

	run, err := h.runRepo.FindByID(runID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, false, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Screening run not found",
			})
		}
		return nil, false, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load screening run",
		})
	}

	return run, true, nil
}

func (h *ScreeningHandler) rankedForRun(runID uuid.UUID) ([]models.RankedCandidate, error) {
	candidates, err := h.candidateRepo.List(repositories.CandidateFilter{RunID: &runID})
	if err != nil {
		return nil, err
	}
	return services.RankCandidates(candidates), nil
}
