package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"talentscan/cv-screener/internal/models"
)

type RunRepository interface {
	Create(run *models.ScreeningRun) error
	FindByID(id uuid.UUID) (*models.ScreeningRun, error)
	UpdateStatus(id uuid.UUID, status models.RunStatus) error
	UpdateProgress(id uuid.UUID, processed, failed int) error
	Complete(id uuid.UUID, status models.RunStatus, errorMsg string) error
	FindQueued(limit int) ([]models.ScreeningRun, error)
	// RequeueInterrupted moves runs left in processing by a crashed process back to queued.
	RequeueInterrupted() (int64, error)
}

type runRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Create(run *models.ScreeningRun) error {
	if err := r.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to create screening run: %w", err)
	}
	return nil
}

func (r *runRepository) FindByID(id uuid.UUID) (*models.ScreeningRun, error) {
	var run models.ScreeningRun
	if err := r.db.Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("screening run %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find screening run: %w", err)
	}
	return &run, nil
}

func (r *runRepository) UpdateStatus(id uuid.UUID, status models.RunStatus) error {
	return r.update(id, map[string]interface{}{
		"status": status,
	})
}

func (r *runRepository) UpdateProgress(id uuid.UUID, processed, failed int) error {
	return r.update(id, map[string]interface{}{
		"processed": processed,
		"failed":    failed,
	})
}

func (r *runRepository) Complete(id uuid.UUID, status models.RunStatus, errorMsg string) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if errorMsg != "" {
		updates["error_message"] = errorMsg
	}
	return r.update(id, updates)
}

func (r *runRepository) FindQueued(limit int) ([]models.ScreeningRun, error) {
	var runs []models.ScreeningRun
	err := r.db.
		Where("status = ?", models.RunQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&runs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find queued runs: %w", err)
	}

	return runs, nil
}

func (r *runRepository) RequeueInterrupted() (int64, error) {
	result := r.db.Model(&models.ScreeningRun{}).
		Where("status = ?", models.RunProcessing).
		Updates(map[string]interface{}{
			"status":     models.RunQueued,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to requeue interrupted runs: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (r *runRepository) update(id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result := r.db.Model(&models.ScreeningRun{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update screening run: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("screening run %s: %w", id, ErrNotFound)
	}

	return nil
}
