package handlers

import (
	"errors"
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

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

type CandidateHandler struct {
	candidateRepo repositories.CandidateRepository
	pool          services.TalentPool
	log           *zap.Logger
}

func NewCandidateHandler(candidateRepo repositories.CandidateRepository, pool services.TalentPool, log *zap.Logger) *CandidateHandler {
	if pool == nil {
		pool = services.NewDisabledTalentPool()
	}
	return &CandidateHandler{
		candidateRepo: candidateRepo,
		pool:          pool,
		log:           logger.Component(log, "candidate_handler"),
	}
}

// HandleList handles GET /candidates
func (h *CandidateHandler) HandleList(c *fiber.Ctx) error {
	filter := repositories.CandidateFilter{JobTitle: strings.TrimSpace(c.Query("job_title"))}

	if raw := c.Query("stage"); raw != "" {
		stage, ok := models.ParseStage(raw)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown stage",
			})
		}
		filter.Stage = stage
	}

	candidates, err := h.candidateRepo.List(filter)
	if err != nil {
		h.log.Error("failed to list candidates", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load candidates",
		})
	}
	if candidates == nil {
		candidates = []models.CandidateLog{}
	}

	return c.JSON(candidates)
}

// HandleGet handles GET /candidates/:id
func (h *CandidateHandler) HandleGet(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid candidate ID format",
		})
	}

	candidate, err := h.candidateRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Candidate not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load candidate",
		})
	}

	return c.JSON(candidate)
}

// HandleUpdateStage handles PATCH /candidates/:id/stage
func (h *CandidateHandler) HandleUpdateStage(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid candidate ID format",
		})
	}

	var req models.UpdateStageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	stage, ok := models.ParseStage(req.Stage)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown stage",
		})
	}

	if err := h.candidateRepo.UpdateStage(id, stage); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Candidate not found",
			})
		}
		h.log.Error("failed to update stage", zap.String("candidate_id", id.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update stage",
		})
	}

	candidate, err := h.candidateRepo.FindByID(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load candidate",
		})
	}

	return c.JSON(candidate)
}

// HandleSearch handles GET /candidates/search
func (h *CandidateHandler) HandleSearch(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "q is required",
		})
	}

	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a positive integer",
			})
		}
		limit = min(n, maxSearchLimit)
	}

	hits, err := h.pool.Search(c.UserContext(), query, strings.TrimSpace(c.Query("job_title")), limit)
	if err != nil {
		if errors.Is(err, services.ErrTalentPoolDisabled) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		h.log.Error("talent pool search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Search failed",
		})
	}

	ids := make([]uuid.UUID, 0, len(hits))
	for _, hit := range hits {
		if id, err := uuid.Parse(hit.CandidateID); err == nil {
			ids = append(ids, id)
		}
	}

	candidates, err := h.candidateRepo.FindByIDs(ids)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load candidates",
		})
	}
	byID := make(map[string]models.CandidateLog, len(candidates))
	for _, cand := range candidates {
		byID[cand.ID.String()] = cand
	}

	results := make([]models.SearchHit, 0, len(hits))
	for _, hit := range hits {
		result := models.SearchHit{CandidateID: hit.CandidateID, Score: hit.Score, Snippet: hit.Snippet}
		if cand, ok := byID[hit.CandidateID]; ok {
			result.Candidate = &cand
		}
		results = append(results, result)
	}

	return c.JSON(results)
}

// HandleRoles handles GET /roles
func (h *CandidateHandler) HandleRoles(c *fiber.Ctx) error {
	titles, err := h.candidateRepo.JobTitles()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load job titles",
		})
	}
	if titles == nil {
		titles = []string{}
	}
	return c.JSON(titles)
}
