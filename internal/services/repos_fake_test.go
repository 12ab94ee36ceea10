package services

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"talentscan/cv-screener/internal/models"
	"talentscan/cv-screener/internal/repositories"
)

type memoryRunRepo struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*models.ScreeningRun
	// statuses records every status transition in order.
	statuses []models.RunStatus
}

func newMemoryRunRepo(runs ...*models.ScreeningRun) *memoryRunRepo {
	r := &memoryRunRepo{runs: map[uuid.UUID]*models.ScreeningRun{}}
	for _, run := range runs {
		r.runs[run.ID] = run
	}
	return r
}

func (r *memoryRunRepo) Create(run *models.ScreeningRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	r.runs[run.ID] = run
	return nil
}

func (r *memoryRunRepo) FindByID(id uuid.UUID) (*models.ScreeningRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (r *memoryRunRepo) UpdateStatus(id uuid.UUID, status models.RunStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return repositories.ErrNotFound
	}
	run.Status = status
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *memoryRunRepo) UpdateProgress(id uuid.UUID, processed, failed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return repositories.ErrNotFound
	}
	run.Processed, run.Failed = processed, failed
	return nil
}

func (r *memoryRunRepo) Complete(id uuid.UUID, status models.RunStatus, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return repositories.ErrNotFound
	}
	run.Status = status
	r.statuses = append(r.statuses, status)
	if errorMsg != "" {
		run.ErrorMessage = &errorMsg
	}
	return nil
}

func (r *memoryRunRepo) FindQueued(limit int) ([]models.ScreeningRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ScreeningRun
	for _, run := range r.runs {
		if run.Status == models.RunQueued && len(out) < limit {
			out = append(out, *run)
		}
	}
	return out, nil
}

func (r *memoryRunRepo) RequeueInterrupted() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, run := range r.runs {
		if run.Status == models.RunProcessing {
			run.Status = models.RunQueued
			n++
		}
	}
	return n, nil
}

func (r *memoryRunRepo) get(id uuid.UUID) models.ScreeningRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.runs[id]
}

type memoryDocRepo struct {
	mu   sync.Mutex
	docs []models.ResumeDocument
}

func (d *memoryDocRepo) CreateBatch(documents []models.ResumeDocument) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range documents {
		if documents[i].ID == uuid.Nil {
			documents[i].ID = uuid.New()
		}
		if documents[i].Status == "" {
			documents[i].Status = models.DocumentPending
		}
	}
	d.docs = append(d.docs, documents...)
	return nil
}

func (d *memoryDocRepo) FindByRun(runID uuid.UUID) ([]models.ResumeDocument, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.ResumeDocument
	for _, doc := range d.docs {
		if doc.RunID == runID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d *memoryDocRepo) FindEvaluated() ([]models.ResumeDocument, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.ResumeDocument
	for _, doc := range d.docs {
		if doc.Status == models.DocumentEvaluated {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d *memoryDocRepo) MarkEvaluated(id uuid.UUID) error {
	return d.set(id, models.DocumentEvaluated, nil)
}

func (d *memoryDocRepo) MarkFailed(id uuid.UUID, errorMsg string) error {
	return d.set(id, models.DocumentFailed, &errorMsg)
}

func (d *memoryDocRepo) set(id uuid.UUID, status models.DocumentStatus, msg *string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.docs {
		if d.docs[i].ID == id {
			d.docs[i].Status = status
			d.docs[i].ErrorMessage = msg
			return nil
		}
	}
	return repositories.ErrNotFound
}

type memoryCandidateRepo struct {
	mu         sync.Mutex
	candidates []models.CandidateLog
}

func (c *memoryCandidateRepo) Create(candidate *models.CandidateLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if candidate.ID == uuid.Nil {
		candidate.ID = uuid.New()
	}
	if candidate.Stage == "" {
		candidate.Stage = models.StageNew
	}
	c.candidates = append(c.candidates, *candidate)
	return nil
}

func (c *memoryCandidateRepo) FindByID(id uuid.UUID) (*models.CandidateLog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cand := range c.candidates {
		if cand.ID == id {
			cp := cand
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (c *memoryCandidateRepo) FindByIDs(ids []uuid.UUID) ([]models.CandidateLog, error) {
	var out []models.CandidateLog
	for _, id := range ids {
		if cand, err := c.FindByID(id); err == nil {
			out = append(out, *cand)
		}
	}
	return out, nil
}

func (c *memoryCandidateRepo) List(filter repositories.CandidateFilter) ([]models.CandidateLog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.CandidateLog
	for _, cand := range c.candidates {
		if filter.JobTitle != "" && cand.JobTitle != filter.JobTitle {
			continue
		}
		if filter.RunID != nil && cand.RunID != *filter.RunID {
			continue
		}
		if filter.Stage != "" && cand.Stage != filter.Stage {
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}

func (c *memoryCandidateRepo) UpdateStage(id uuid.UUID, stage models.Stage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.candidates {
		if c.candidates[i].ID == id {
			c.candidates[i].Stage = stage
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (c *memoryCandidateRepo) JobTitles() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := map[string]bool{}
	var titles []string
	for _, cand := range c.candidates {
		if !seen[cand.JobTitle] {
			seen[cand.JobTitle] = true
			titles = append(titles, cand.JobTitle)
		}
	}
	sort.Strings(titles)
	return titles, nil
}

func (c *memoryCandidateRepo) StageCounts() ([]models.StageCount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := map[models.Stage]int64{}
	for _, cand := range c.candidates {
		counts[cand.Stage]++
	}
	var out []models.StageCount
	for stage, n := range counts {
		out = append(out, models.StageCount{Stage: stage, Count: n})
	}
	return out, nil
}

func (c *memoryCandidateRepo) AverageScoreByJobTitle() ([]models.RoleAverage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sums := map[string]int{}
	counts := map[string]int64{}
	var titles []string
	for _, cand := range c.candidates {
		if counts[cand.JobTitle] == 0 {
			titles = append(titles, cand.JobTitle)
		}
		sums[cand.JobTitle] += cand.Score
		counts[cand.JobTitle]++
	}
	sort.Strings(titles)
	var out []models.RoleAverage
	for _, title := range titles {
		out = append(out, models.RoleAverage{
			JobTitle:     title,
			AverageScore: float64(sums[title]) / float64(counts[title]),
			Candidates:   counts[title],
		})
	}
	return out, nil
}

func (c *memoryCandidateRepo) RecentScores(limit int) ([]models.CandidateLog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sorted := append([]models.CandidateLog(nil), c.candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (c *memoryCandidateRepo) all() []models.CandidateLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.CandidateLog(nil), c.candidates...)
}
