package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"talentscan/cv-screener/internal/logger"
	"talentscan/cv-screener/internal/models"
)

var ErrTalentPoolDisabled = errors.New("talent pool search is not configured")

// searchOverfetch pulls extra chunks so dedup by candidate still fills the requested limit.
const searchOverfetch = 4

// PoolHit is the best matching chunk for one candidate.
type PoolHit struct {
	CandidateID string
	Score       float32
	Snippet     string
}

type TalentPool interface {
	Index(ctx context.Context, candidate *models.CandidateLog, resumeText string) error
	Search(ctx context.Context, query, jobTitle string, limit int) ([]PoolHit, error)
	Remove(ctx context.Context, candidateID string) error
}

type talentPool struct {
	store   VectorStore
	gemini  GeminiService
	chunker TextChunker
	prompts *PromptBuilder
	log     *zap.Logger
}

func NewTalentPool(store VectorStore, gemini GeminiService, chunker TextChunker, log *zap.Logger) TalentPool {
	return &talentPool{
		store:   store,
		gemini:  gemini,
		chunker: chunker,
		prompts: NewPromptBuilder(),
		log:     logger.Component(log, "talent_pool"),
	}
}

func (p *talentPool) Index(ctx context.Context, candidate *models.CandidateLog, resumeText string) error {
	chunks := p.chunker.Chunk(resumeText)
	if len(chunks) == 0 {
		return nil
	}

	points := make([]VectorPoint, 0, len(chunks))
	for i, chunk := range chunks {
		vector, err := p.gemini.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		points = append(points, VectorPoint{
			CandidateID: candidate.ID.String(),
			RunID:       candidate.RunID.String(),
			JobTitle:    candidate.JobTitle,
			ChunkIndex:  i,
			Text:        chunk,
			Vector:      vector,
		})
	}

	if err := p.store.Upsert(ctx, points); err != nil {
		return err
	}

	p.log.Debug("candidate indexed",
		zap.String("candidate_id", candidate.ID.String()),
		zap.Int("chunks", len(points)),
	)
	return nil
}

func (p *talentPool) Search(ctx context.Context, query, jobTitle string, limit int) ([]PoolHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []PoolHit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	vector, err := p.gemini.GenerateEmbedding(ctx, p.prompts.BuildSearchQuery(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := p.store.Search(ctx, vector, jobTitle, limit*searchOverfetch)
	if err != nil {
		return nil, err
	}

	return bestPerCandidate(matches, limit), nil
}

func (p *talentPool) Remove(ctx context.Context, candidateID string) error {
	return p.store.DeleteCandidate(ctx, candidateID)
}

func bestPerCandidate(matches []VectorMatch, limit int) []PoolHit {
	best := make(map[string]PoolHit)
	for _, m := range matches {
		if m.CandidateID == "" {
			continue
		}
		if hit, ok := best[m.CandidateID]; ok && hit.Score >= m.Score {
			continue
		}
		best[m.CandidateID] = PoolHit{CandidateID: m.CandidateID, Score: m.Score, Snippet: m.Text}
	}

	hits := make([]PoolHit, 0, len(best))
	for _, hit := range best {
		hits = append(hits, hit)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].CandidateID < hits[j].CandidateID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

type disabledTalentPool struct{}

// NewDisabledTalentPool is used when no vector store is configured; indexing is skipped and search reports ErrTalentPoolDisabled.
func NewDisabledTalentPool() TalentPool {
	return disabledTalentPool{}
}

func (disabledTalentPool) Index(context.Context, *models.CandidateLog, string) error { return nil }

func (disabledTalentPool) Search(context.Context, string, string, int) ([]PoolHit, error) {
	return nil, ErrTalentPoolDisabled
}

func (disabledTalentPool) Remove(context.Context, string) error { return nil }
