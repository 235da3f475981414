package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/promptlab/modelrouter/internal/domain/repository"
)

var (
	ErrDimensionMismatch = errors.New("vector dimensions do not match")
	ErrZeroVector        = errors.New("cannot compare a zero vector")
)

// CosineSimilarity returns the cosine of the angle between a and b.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, ErrZeroVector
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// SimilarityResult is the comparison of two texts.
type SimilarityResult struct {
	Text1      string  `json:"text1"`
	Text2      string  `json:"text2"`
	Similarity float64 `json:"similarity"`
	Percentage string  `json:"similarityPercentage"`
	Dimensions int     `json:"dimensions"`
}

// Service embeds texts and compares them.
type Service struct {
	client  repository.EmbeddingClient
	batcher *Batcher
}

func NewService(client repository.EmbeddingClient, batchSize int) *Service {
	return &Service{client: client, batcher: NewBatcher(client, batchSize)}
}

// Embed embeds a single text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.client.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts through the batcher, preserving order.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return s.batcher.EmbedBatched(ctx, texts)
}

// Similarity embeds both texts in one request and returns their cosine similarity.
func (s *Service) Similarity(ctx context.Context, text1, text2 string) (*SimilarityResult, error) {
	vecs, err := s.batcher.EmbedBatched(ctx, []string{text1, text2})
	if err != nil {
		return nil, err
	}

	sim, err := CosineSimilarity(vecs[0], vecs[1])
	if err != nil {
		return nil, err
	}
	return &SimilarityResult{
		Text1:      text1,
		Text2:      text2,
		Similarity: sim,
		Percentage: fmt.Sprintf("%.2f%%", sim*100),
		Dimensions: len(vecs[0]),
	}, nil
}

// Name reports the underlying embedding client.
func (s *Service) Name() string {
	return s.client.Name()
}
