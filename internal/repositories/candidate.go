package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"talentscan/cv-screener/internal/models"
)

type CandidateFilter struct {
	JobTitle string
	RunID    *uuid.UUID
	Stage    models.Stage
}

type CandidateRepository interface {
	Create(candidate *models.CandidateLog) error
	FindByID(id uuid.UUID) (*models.CandidateLog, error)
	FindByIDs(ids []uuid.UUID) ([]models.CandidateLog, error)
	List(filter CandidateFilter) ([]models.CandidateLog, error)
	UpdateStage(id uuid.UUID, stage models.Stage) error
	JobTitles() ([]string, error)
	StageCounts() ([]models.StageCount, error)
	AverageScoreByJobTitle() ([]models.RoleAverage, error)
	RecentScores(limit int) ([]models.CandidateLog, error)
}

type candidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

func (r *candidateRepository) Create(candidate *models.CandidateLog) error {
	if candidate.Stage == "" {
		candidate.Stage = models.StageNew
	}
	if err := r.db.Create(candidate).Error; err != nil {
		return fmt.Errorf("failed to create candidate log: %w", err)
	}
	return nil
}

func (r *candidateRepository) FindByID(id uuid.UUID) (*models.CandidateLog, error) {
	var candidate models.CandidateLog
	if err := r.db.Where("id = ?", id).First(&candidate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("candidate %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find candidate: %w", err)
	}
	return &candidate, nil
}

func (r *candidateRepository) FindByIDs(ids []uuid.UUID) ([]models.CandidateLog, error) {
	var candidates []models.CandidateLog
	if len(ids) == 0 {
		return candidates, nil
	}
	if err := r.db.Where("id IN ?", ids).Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to find candidates: %w", err)
	}
	return candidates, nil
}

func (r *candidateRepository) List(filter CandidateFilter) ([]models.CandidateLog, error) {
	query := r.db.Model(&models.CandidateLog{})

	if filter.JobTitle != "" {
		query = query.Where("job_title = ?", filter.JobTitle)
	}
	if filter.RunID != nil {
		query = query.Where("run_id = ?", *filter.RunID)
	}
	if filter.Stage != "" {
		query = query.Where("stage = ?", filter.Stage)
	}

	var candidates []models.CandidateLog
	if err := query.Order("created_at DESC").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return candidates, nil
}

func (r *candidateRepository) UpdateStage(id uuid.UUID, stage models.Stage) error {
	if _, ok := models.ParseStage(string(stage)); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}

	result := r.db.Model(&models.CandidateLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stage":      stage,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update stage: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("candidate %s: %w", id, ErrNotFound)
	}

	return nil
}

func (r *candidateRepository) JobTitles() ([]string, error) {
	var titles []string
	err := r.db.Model(&models.CandidateLog{}).
		Distinct("job_title").
		Order("job_title ASC").
		Pluck("job_title", &titles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list job titles: %w", err)
	}
	return titles, nil
}

func (r *candidateRepository) StageCounts() ([]models.StageCount, error) {
	var counts []models.StageCount
	err := r.db.Model(&models.CandidateLog{}).
		Select("stage, COUNT(*) AS count").
		Group("stage").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count stages: %w", err)
	}
	return counts, nil
}

func (r *candidateRepository) AverageScoreByJobTitle() ([]models.RoleAverage, error) {
	var averages []models.RoleAverage
	err := r.db.Model(&models.CandidateLog{}).
		Select("job_title, AVG(score) AS average_score, COUNT(*) AS candidates").
		Group("job_title").
		Order("job_title ASC").
		Scan(&averages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to average scores: %w", err)
	}
	return averages, nil
}

func (r *candidateRepository) RecentScores(limit int) ([]models.CandidateLog, error) {
	var candidates []models.CandidateLog
	err := r.db.Select("id", "candidate_name", "score", "created_at").
		Order("created_at DESC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent scores: %w", err)
	}
	return candidates, nil
}
