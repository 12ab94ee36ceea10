package services

import (
	"fmt"
	"math"
	"time"

	"talentscan/cv-screener/internal/models"
	"talentscan/cv-screener/internal/repositories"
)

const DefaultTrendSize = 50

type AnalyticsService interface {
	Overview(trendSize int) (*models.AnalyticsResponse, error)
}

type analyticsService struct {
	candidateRepo repositories.CandidateRepository
}

func NewAnalyticsService(candidateRepo repositories.CandidateRepository) AnalyticsService {
	return &analyticsService{candidateRepo: candidateRepo}
}

// Overview returns the pipeline board, per-role averages and the most recent scores oldest first.
func (a *analyticsService) Overview(trendSize int) (*models.AnalyticsResponse, error) {
	if trendSize <= 0 {
		trendSize = DefaultTrendSize
	}

	counts, err := a.candidateRepo.StageCounts()
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline: %w", err)
	}

	averages, err := a.candidateRepo.AverageScoreByJobTitle()
	if err != nil {
		return nil, fmt.Errorf("failed to load role averages: %w", err)
	}
	for i := range averages {
		averages[i].AverageScore = math.Round(averages[i].AverageScore*100) / 100
	}

	recent, err := a.candidateRepo.RecentScores(trendSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load score trend: %w", err)
	}

	trend := make([]models.ScorePoint, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		trend = append(trend, models.ScorePoint{
			CandidateName: recent[i].CandidateName,
			Score:         recent[i].Score,
			CreatedAt:     recent[i].CreatedAt.Format(time.RFC3339),
		})
	}

	if averages == nil {
		averages = []models.RoleAverage{}
	}

	return &models.AnalyticsResponse{
		Pipeline:      pipelineBoard(counts),
		AverageByRole: averages,
		ScoreTrend:    trend,
	}, nil
}

// pipelineBoard lists every stage in board order, zero-filled, followed by any unknown stage found in storage.
func pipelineBoard(counts []models.StageCount) []models.StageCount {
	byStage := make(map[models.Stage]int64, len(counts))
	for _, c := range counts {
		byStage[c.Stage] += c.Count
	}

	board := make([]models.StageCount, 0, len(models.Stages))
	for _, stage := range models.Stages {
		board = append(board, models.StageCount{Stage: stage, Count: byStage[stage]})
		delete(byStage, stage)
	}
	for _, c := range counts {
		if n, ok := byStage[c.Stage]; ok {
			board = append(board, models.StageCount{Stage: c.Stage, Count: n})
			delete(byStage, c.Stage)
		}
	}
	return board
}
