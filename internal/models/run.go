package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunQueued     RunStatus = "queued"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// ScreeningRun is one batch of résumés screened against one job description.
type ScreeningRun struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	JobTitle       string    `gorm:"type:text;not null" json:"job_title"`
	JobDescription string    `gorm:"type:text;not null" json:"job_description"`
	Status         RunStatus `gorm:"type:text;not null;default:'queued'" json:"status"`
	Total          int       `gorm:"not null;default:0" json:"total"`
	Processed      int       `gorm:"not null;default:0" json:"processed"`
	Failed         int       `gorm:"not null;default:0" json:"failed"`
	ErrorMessage   *string   `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	Documents []ResumeDocument `gorm:"foreignKey:RunID" json:"-"`
}

func (ScreeningRun) TableName() string {
	return "screening_runs"
}
