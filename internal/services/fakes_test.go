package services

import (
	"context"
	"fmt"
	"io"
	"sync"

	"talentscan/cv-screener/internal/models"
)

type fakeGemini struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
	embedded  []string
	embedErr  error
	// onCall runs before each GenerateJSON reply.
	onCall func()
}

func (f *fakeGemini) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if f.onCall != nil {
		f.onCall()
	}

	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return `{"total": 0}`, nil
}

func (f *fakeGemini) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.embedErr != nil {
		return nil, f.embedErr
	}
	f.embedded = append(f.embedded, text)
	return []float32{float32(len(text)), 1}, nil
}

type fakeVectorStore struct {
	points  []VectorPoint
	matches []VectorMatch
	deleted []string
	limit   int
	title   string
}

func (f *fakeVectorStore) EnsureCollection(context.Context) error { return nil }

func (f *fakeVectorStore) Upsert(_ context.Context, points []VectorPoint) error {
	f.points = append(f.points, points...)
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, jobTitle string, limit int) ([]VectorMatch, error) {
	f.limit = limit
	f.title = jobTitle
	return f.matches, nil
}

func (f *fakeVectorStore) DeleteCandidate(_ context.Context, candidateID string) error {
	f.deleted = append(f.deleted, candidateID)
	return nil
}

type memoryStorage struct {
	files map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: map[string][]byte{}}
}

func (m *memoryStorage) put(key, content string) {
	m.files[key] = []byte(content)
}

func (m *memoryStorage) Save(_ context.Context, originalName string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := "key_" + originalName
	m.files[key] = data
	return key, nil
}

func (m *memoryStorage) Open(_ context.Context, key string) ([]byte, error) {
	data, ok := m.files[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	return data, nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	delete(m.files, key)
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []RunUpdate
}

func (r *recordingNotifier) Publish(_ context.Context, update RunUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
	return nil
}

func (r *recordingNotifier) Close() error { return nil }

func (r *recordingNotifier) last() RunUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[len(r.updates)-1]
}

type recordingPool struct {
	indexed []string
	removed []string
	err     error
}

func (r *recordingPool) Index(_ context.Context, candidate *models.CandidateLog, _ string) error {
	if r.err != nil {
		return r.err
	}
	r.indexed = append(r.indexed, candidate.CandidateName)
	return nil
}

func (r *recordingPool) Search(context.Context, string, string, int) ([]PoolHit, error) {
	return nil, nil
}

func (r *recordingPool) Remove(_ context.Context, candidateID string) error {
	r.removed = append(r.removed, candidateID)
	return nil
}
