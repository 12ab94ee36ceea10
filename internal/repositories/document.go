package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"talentscan/cv-screener/internal/models"
)

type DocumentRepository interface {
	CreateBatch(documents []models.ResumeDocument) error
	FindByRun(runID uuid.UUID) ([]models.ResumeDocument, error)
	FindEvaluated() ([]models.ResumeDocument, error)
	MarkEvaluated(id uuid.UUID) error
	MarkFailed(id uuid.UUID, errorMsg string) error
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (d *documentRepository) CreateBatch(documents []models.ResumeDocument) error {
	if len(documents) == 0 {
		return nil
	}
	if err := d.db.Create(&documents).Error; err != nil {
		return fmt.Errorf("failed to create documents: %w", err)
	}
	return nil
}

func (d *documentRepository) FindByRun(runID uuid.UUID) ([]models.ResumeDocument, error) {
	var docs []models.ResumeDocument
	if err := d.db.Where("run_id = ?", runID).Order("created_at ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to find documents: %w", err)
	}
	return docs, nil
}

func (d *documentRepository) FindEvaluated() ([]models.ResumeDocument, error) {
	var docs []models.ResumeDocument
	if err := d.db.Where("status = ?", models.DocumentEvaluated).Order("created_at ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to find documents: %w", err)
	}
	return docs, nil
}

func (d *documentRepository) MarkEvaluated(id uuid.UUID) error {
	return d.setStatus(id, map[string]interface{}{
		"status": models.DocumentEvaluated,
	})
}

func (d *documentRepository) MarkFailed(id uuid.UUID, errorMsg string) error {
	return d.setStatus(id, map[string]interface{}{
		"status":        models.DocumentFailed,
		"error_message": errorMsg,
	})
}

func (d *documentRepository) setStatus(id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result := d.db.Model(&models.ResumeDocument{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}
