package handlers

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"talentscan/cv-screener/internal/models"
	"talentscan/cv-screener/internal/repositories"
	"talentscan/cv-screener/internal/services"
)

type stubRunRepo struct {
	runs      map[uuid.UUID]*models.ScreeningRun
	createErr error
}

func newStubRunRepo() *stubRunRepo {
	return &stubRunRepo{runs: map[uuid.UUID]*models.ScreeningRun{}}
}

func (r *stubRunRepo) Create(run *models.ScreeningRun) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.runs[run.ID] = run
	return nil
}

func (r *stubRunRepo) FindByID(id uuid.UUID) (*models.ScreeningRun, error) {
	run, ok := r.runs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return run, nil
}

func (r *stubRunRepo) UpdateStatus(id uuid.UUID, status models.RunStatus) error {
	r.runs[id].Status = status
	return nil
}

func (r *stubRunRepo) UpdateProgress(id uuid.UUID, processed, failed int) error {
	r.runs[id].Processed, r.runs[id].Failed = processed, failed
	return nil
}

func (r *stubRunRepo) Complete(id uuid.UUID, status models.RunStatus, errorMsg string) error {
	if run, ok := r.runs[id]; ok {
		run.Status = status
	}
	return nil
}

func (r *stubRunRepo) FindQueued(int) ([]models.ScreeningRun, error) { return nil, nil }
func (r *stubRunRepo) RequeueInterrupted() (int64, error)            { return 0, nil }

type stubDocRepo struct {
	docs []models.ResumeDocument
}

func (d *stubDocRepo) CreateBatch(documents []models.ResumeDocument) error {
	d.docs = append(d.docs, documents...)
	return nil
}

func (d *stubDocRepo) FindByRun(runID uuid.UUID) ([]models.ResumeDocument, error) {
	var out []models.ResumeDocument
	for _, doc := range d.docs {
		if doc.RunID == runID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d *stubDocRepo) FindEvaluated() ([]models.ResumeDocument, error) { return nil, nil }
func (d *stubDocRepo) MarkEvaluated(uuid.UUID) error                   { return nil }
func (d *stubDocRepo) MarkFailed(uuid.UUID, string) error              { return nil }

type stubCandidateRepo struct {
	candidates []models.CandidateLog
	listed     repositories.CandidateFilter
}

func (s *stubCandidateRepo) Create(candidate *models.CandidateLog) error {
	s.candidates = append(s.candidates, *candidate)
	return nil
}

func (s *stubCandidateRepo) FindByID(id uuid.UUID) (*models.CandidateLog, error) {
	for i := range s.candidates {
		if s.candidates[i].ID == id {
			cp := s.candidates[i]
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *stubCandidateRepo) FindByIDs(ids []uuid.UUID) ([]models.CandidateLog, error) {
	var out []models.CandidateLog
	for _, id := range ids {
		if c, err := s.FindByID(id); err == nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *stubCandidateRepo) List(filter repositories.CandidateFilter) ([]models.CandidateLog, error) {
	s.listed = filter
	var out []models.CandidateLog
	for _, c := range s.candidates {
		if filter.RunID != nil && c.RunID != *filter.RunID {
			continue
		}
		if filter.JobTitle != "" && c.JobTitle != filter.JobTitle {
			continue
		}
		if filter.Stage != "" && c.Stage != filter.Stage {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *stubCandidateRepo) UpdateStage(id uuid.UUID, stage models.Stage) error {
	for i := range s.candidates {
		if s.candidates[i].ID == id {
			s.candidates[i].Stage = stage
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (s *stubCandidateRepo) JobTitles() ([]string, error) {
	var titles []string
	seen := map[string]bool{}
	for _, c := range s.candidates {
		if !seen[c.JobTitle] {
			seen[c.JobTitle] = true
			titles = append(titles, c.JobTitle)
		}
	}
	return titles, nil
}

func (s *stubCandidateRepo) StageCounts() ([]models.StageCount, error) {
	counts := map[models.Stage]int64{}
	for _, c := range s.candidates {
		counts[c.Stage]++
	}
	var out []models.StageCount
	for _, stage := range models.Stages {
		if n := counts[stage]; n > 0 {
			out = append(out, models.StageCount{Stage: stage, Count: n})
		}
	}
	return out, nil
}

func (s *stubCandidateRepo) AverageScoreByJobTitle() ([]models.RoleAverage, error) {
	return nil, nil
}

func (s *stubCandidateRepo) RecentScores(int) ([]models.CandidateLog, error) { return nil, nil }

type recordingWorker struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
}

func (w *recordingWorker) Start(context.Context) {}
func (w *recordingWorker) Stop()                 {}

func (w *recordingWorker) EnqueueRun(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enqueued = append(w.enqueued, id)
}

type stubPool struct {
	hits []services.PoolHit
	err  error
}

func (p *stubPool) Index(context.Context, *models.CandidateLog, string) error { return nil }

func (p *stubPool) Search(context.Context, string, string, int) ([]services.PoolHit, error) {
	return p.hits, p.err
}

func (p *stubPool) Remove(context.Context, string) error { return nil }

type stubDrive struct {
	files []services.DriveFile
	data  map[string][]byte
}

func (d *stubDrive) ListResumes(context.Context, string) ([]services.DriveFile, error) {
	return d.files, nil
}

func (d *stubDrive) Download(_ context.Context, id string) ([]byte, error) {
	data, ok := d.data[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}
