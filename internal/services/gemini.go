package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"talentscan/cv-screener/internal/config"
	"talentscan/cv-screener/internal/logger"
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// maxEmbeddingChars keeps embedding requests under the model's input limit.
const maxEmbeddingChars = 40000

type GeminiService interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type geminiService struct {
	client      *genai.Client
	modelName   string
	embedModel  string
	temperature float32
	previewLen  int
	log         *zap.Logger
}

func NewGeminiService(ctx context.Context, cfg config.GeminiConfig, previewLen int, log *zap.Logger) (GeminiService, error) {
	clientCfg := &genai.ClientConfig{}

	switch cfg.Backend {
	case "vertex":
		clientCfg.Backend = genai.BackendVertexAI
		clientCfg.Project = cfg.Project
		clientCfg.Location = cfg.Location
	default:
		clientCfg.Backend = genai.BackendGeminiAPI
		clientCfg.APIKey = cfg.APIKey
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	log = logger.Component(log, "gemini")
	log.Info("gemini client ready",
		zap.String("backend", cfg.Backend),
		zap.String("model", cfg.Model),
		zap.String("embed_model", cfg.EmbedModel),
	)

	return &geminiService{
		client:      client,
		modelName:   cfg.Model,
		embedModel:  cfg.EmbedModel,
		temperature: cfg.Temperature,
		previewLen:  previewLen,
		log:         log,
	}, nil
}

// GenerateJSON sends one prompt and asks the model for a JSON body.
func (g *geminiService) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	temperature := g.temperature
	genCfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}

	g.log.Debug("sending prompt",
		zap.Int("prompt_chars", len(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, g.previewLen)),
	)

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}

	g.log.Debug("model response",
		zap.Int("response_chars", len(text)),
		zap.String("response_preview", logger.TruncateForLog(text, g.previewLen)),
	)

	return text, nil
}

func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbeddingChars {
		text = text[:maxEmbeddingChars]
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}
