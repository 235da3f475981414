package embedding

import (
	"context"
	"fmt"
	"log"

	"github.com/promptlab/modelrouter/internal/domain/repository"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize keeps a single embed request to a size every provider accepts.
const DefaultBatchSize = 100

// maxInFlight bounds concurrent batch requests against the provider.
const maxInFlight = 4

// Batcher splits large embedding requests into batches and runs them concurrently.
type Batcher struct {
	client    repository.EmbeddingClient
	batchSize int
}

// NewBatcher creates a new embedding batcher. A non-positive batchSize uses DefaultBatchSize.
func NewBatcher(client repository.EmbeddingClient, batchSize int) *Batcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Batcher{
		client:    client,
		batchSize: batchSize,
	}
}

// EmbedBatched returns one vector per text, in input order.
// The first failing batch cancels the rest.
func (b *Batcher) EmbedBatched(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	totalItems := len(texts)
	numBatches := (totalItems + b.batchSize - 1) / b.batchSize

	log.Printf("[Embedding Batcher] Splitting %d texts into %d batches (max %d/batch)", totalItems, numBatches, b.batchSize)

	results := make([][]float32, totalItems)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)

	for i := 0; i < numBatches; i++ {
		start := i * b.batchSize
		end := min(start+b.batchSize, totalItems)

		g.Go(func() error {
			vecs, err := b.client.Embed(gctx, texts[start:end])
			if err != nil {
				log.Printf("[Embedding Batcher] Batch %d failed: %v", i, err)
				return fmt.Errorf("batch %d failed: %w", i, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("batch %d: expected %d vectors, got %d", i, end-start, len(vecs))
			}
			// Each batch owns a disjoint range of results.
			copy(results[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
