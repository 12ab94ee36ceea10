package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"talentscan/cv-screener/internal/config"
	"talentscan/cv-screener/internal/logger"
)

// VectorPoint is one embedded résumé chunk.
type VectorPoint struct {
	CandidateID string
	RunID       string
	JobTitle    string
	ChunkIndex  int
	Text        string
	Vector      []float32
}

type VectorMatch struct {
	CandidateID string
	JobTitle    string
	Text        string
	Score       float32
}

type VectorStore interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, points []VectorPoint) error
	Search(ctx context.Context, vector []float32, jobTitle string, limit int) ([]VectorMatch, error)
	DeleteCandidate(ctx context.Context, candidateID string) error
}

type qdrantStore struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	log            *zap.Logger
}

func NewQdrantStore(cfg config.QdrantConfig, log *zap.Logger) (VectorStore, error) {
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantStore{
		client:         client,
		collectionName: cfg.Collection,
		vectorSize:     cfg.VectorSize,
		log:            logger.Component(log, "qdrant"),
	}, nil
}

func (q *qdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.log.Debug("collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.log.Info("collection created", zap.String("collection", q.collectionName), zap.Uint64("vector_size", q.vectorSize))
	return nil
}

func (q *qdrantStore) Upsert(ctx context.Context, points []VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(pointID(p.CandidateID, p.ChunkIndex)),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"candidate_id": p.CandidateID,
				"run_id":       p.RunID,
				"job_title":    p.JobTitle,
				"chunk_index":  strconv.Itoa(p.ChunkIndex),
				"text":         p.Text,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

func (q *qdrantStore) Search(ctx context.Context, vector []float32, jobTitle string, limit int) ([]VectorMatch, error) {
	var filter *qdrant.Filter
	if jobTitle != "" {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("job_title", jobTitle),
			},
		}
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	matches := make([]VectorMatch, 0, len(points))
	for _, point := range points {
		payload := point.Payload
		matches = append(matches, VectorMatch{
			CandidateID: payloadString(payload, "candidate_id"),
			JobTitle:    payloadString(payload, "job_title"),
			Text:        payloadString(payload, "text"),
			Score:       point.Score,
		})
	}

	return matches, nil
}

func (q *qdrantStore) DeleteCandidate(ctx context.Context, candidateID string) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("candidate_id", candidateID),
		},
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: filter,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete candidate points: %w", err)
	}

	return nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if val, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
			return val.StringValue
		}
	}
	return ""
}

// pointID is stable per candidate chunk so re-indexing overwrites instead of duplicating.
func pointID(candidateID string, chunk int) uint64 {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(candidateID+"#"+strconv.Itoa(chunk)))
	return binary.BigEndian.Uint64(id[:8])
}
