package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Stage string

const (
	StageNew       Stage = "New"
	StageScreened  Stage = "Screened"
	StageInterview Stage = "Interview"
	StageOffer     Stage = "Offer"
	StageRejected  Stage = "Rejected"
)

// Stages lists the pipeline stages in board order.
var Stages = []Stage{StageNew, StageScreened, StageInterview, StageOffer, StageRejected}

// ParseStage matches a stage name case-insensitively.
func ParseStage(s string) (Stage, bool) {
	s = strings.TrimSpace(s)
	for _, stage := range Stages {
		if strings.EqualFold(string(stage), s) {
			return stage, true
		}
	}
	return "", false
}

// CandidateLog is one scored candidate from one screening run.
type CandidateLog struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RunID         uuid.UUID  `gorm:"type:uuid;index" json:"run_id"`
	DocumentID    *uuid.UUID `gorm:"type:uuid" json:"document_id,omitempty"`
	CandidateName string     `gorm:"type:text" json:"candidate_name"`
	Score         int        `gorm:"not null;default:0" json:"score"`
	TechFit       *int       `json:"tech_fit,omitempty"`
	ExpFit        *int       `json:"exp_fit,omitempty"`
	EduFit        *int       `json:"edu_fit,omitempty"`
	Verdict       string     `gorm:"type:text" json:"verdict"`
	Strengths     []string   `gorm:"type:text;serializer:json" json:"strengths"`
	Gaps          []string   `gorm:"type:text;serializer:json" json:"gaps"`
	Notes         string     `gorm:"type:text" json:"notes"`
	JobTitle      string     `gorm:"type:text;index" json:"job_title"`
	Stage         Stage      `gorm:"type:text;not null;default:'New'" json:"stage"`
	SourceFile    string     `gorm:"type:text" json:"source_file"`
	CreatedAt     time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CandidateLog) TableName() string {
	return "candidate_logs"
}

// StrengthsNote renders the notes column the way recruiters read it in the history table.
func StrengthsNote(strengths []string) string {
	return "Strengths: " + strings.Join(strengths, ", ")
}
