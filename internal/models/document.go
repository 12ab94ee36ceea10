package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentPending   DocumentStatus = "pending"
	DocumentEvaluated DocumentStatus = "evaluated"
	DocumentFailed    DocumentStatus = "failed"
)

type ResumeDocument struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RunID            uuid.UUID      `gorm:"type:uuid;index;not null" json:"run_id"`
	OriginalFileName string         `gorm:"type:text" json:"original_filename"`
	StorageKey       string         `gorm:"type:text" json:"storage_key"`
	MimeType         string         `gorm:"type:text" json:"mime_type"`
	SizeBytes        int64          `json:"size_bytes"`
	Status           DocumentStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	ErrorMessage     *string        `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time      `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (ResumeDocument) TableName() string {
	return "resume_documents"
}
