package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
	"github.com/custodia-labs/meetsight/internal/logger"
)

// Retriever finds the transcript chunks most relevant to a query,
// strictly within one meeting.
type Retriever struct {
	embedder    driven.EmbeddingService
	store       driven.VectorStore
	retry       RetryPolicy
	maxDistance float64
}

// NewRetriever creates a new retriever. maxDistance drops hits farther
// than the given cosine distance; zero keeps every hit.
func NewRetriever(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	retry RetryPolicy,
	maxDistance float64,
) *Retriever {
	return &Retriever{
		embedder:    embedder,
		store:       store,
		retry:       retry,
		maxDistance: maxDistance,
	}
}

// Retrieve returns up to topK chunk texts for meetingID, most relevant
// first. topK <= 0 uses domain.DefaultTopK. An unknown meeting or an empty
// store yields an empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, meetingID domain.MeetingID, topK int) ([]string, error) {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	q := domain.Query{Text: query, MeetingID: meetingID, TopK: topK}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	logger.Debug("Retrieve %q from meeting %s (topK=%d)", q.Text, q.MeetingID, q.TopK)

	var embedding []float32
	err := r.retry.Do(ctx, "embed query", func(ctx context.Context) error {
		var err error
		embedding, err = r.embedder.Embed(ctx, q.Text)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	var hits []domain.ScoredChunk
	err = r.retry.Do(ctx, "query store", func(ctx context.Context) error {
		var err error
		hits, err = r.store.Query(ctx, embedding, q.TopK, domain.Filter{MeetingID: q.MeetingID})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	texts := make([]string, 0, len(hits))
	for _, hit := range hits {
		// Stores enforce the filter; this guards against a misbehaving backend.
		if hit.Chunk.MeetingID != q.MeetingID {
			logger.Warn("store returned chunk %s from meeting %s for meeting %s", hit.Chunk.ID, hit.Chunk.MeetingID, q.MeetingID)
			continue
		}
		if r.maxDistance > 0 && hit.Distance > r.maxDistance {
			logger.Debug("Dropping chunk %s (distance %.3f)", hit.Chunk.ID, hit.Distance)
			continue
		}
		texts = append(texts, hit.Chunk.Text)
	}

	logger.Debug("Retrieved %d chunk(s)", len(texts))
	return texts, nil
}
