package models

type CreateScreeningResponse struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Documents int      `json:"documents"`
	Skipped   []string `json:"skipped,omitempty"`
}

type DriveScreeningRequest struct {
	JobTitle       string `json:"job_title"`
	JobDescription string `json:"job_description"`
	FolderID       string `json:"folder_id"`
}

type RankedCandidate struct {
	Rank int `json:"rank"`
	CandidateLog
}

type ScreeningResponse struct {
	ID           string            `json:"id"`
	JobTitle     string            `json:"job_title"`
	Status       string            `json:"status"`
	Total        int               `json:"total"`
	Processed    int               `json:"processed"`
	Failed       int               `json:"failed"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	Shortlist    []RankedCandidate `json:"shortlist"`
}

type UpdateStageRequest struct {
	Stage string `json:"stage"`
}

type SearchHit struct {
	CandidateID string        `json:"candidate_id"`
	Score       float32       `json:"score"`
	Snippet     string        `json:"snippet"`
	Candidate   *CandidateLog `json:"candidate,omitempty"`
}

type StageCount struct {
	Stage Stage `json:"stage"`
	Count int64 `json:"count"`
}

type RoleAverage struct {
	JobTitle     string  `json:"job_title"`
	AverageScore float64 `json:"average_score"`
	Candidates   int64   `json:"candidates"`
}

type ScorePoint struct {
	CandidateName string `json:"candidate_name"`
	Score         int    `json:"score"`
	CreatedAt     string `json:"created_at"`
}

type AnalyticsResponse struct {
	Pipeline      []StageCount  `json:"pipeline"`
	AverageByRole []RoleAverage `json:"average_by_role"`
	ScoreTrend    []ScorePoint  `json:"score_trend"`
}
