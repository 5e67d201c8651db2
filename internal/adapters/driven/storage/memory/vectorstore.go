// Package memory provides an in-process vector store.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/meetsight/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// Queries are brute-force cosine over the meeting's chunks.
type VectorStore struct {
	mu         sync.RWMutex
	chunks     map[string]domain.Chunk
	dimensions int
}

// NewVectorStore creates a new in-memory vector store. dimensions may be
// zero, in which case the first upsert fixes it.
func NewVectorStore(dimensions int) *VectorStore {
	return &VectorStore{
		chunks:     make(map[string]domain.Chunk),
		dimensions: dimensions,
	}
}

// Upsert stores or replaces chunks. The batch is validated before any
// chunk is written.
func (s *VectorStore) Upsert(ctx context.Context, chunks ...domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dims := s.dimensions
	for _, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("%w: chunk id is required", domain.ErrStore)
		}
		if err := vecmath.CheckDimensions(c.Embedding, dims); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		dims = len(c.Embedding)
	}

	for _, c := range chunks {
		c.Embedding = slices.Clone(c.Embedding)
		c.Metadata = maps.Clone(c.Metadata)
		s.chunks[c.ID] = c
	}
	s.dimensions = dims
	return nil
}

// Query returns the topK chunks of the filtered meeting closest to embedding.
func (s *VectorStore) Query(
	ctx context.Context, embedding []float32, topK int, filter domain.Filter,
) ([]domain.ScoredChunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := vecmath.CheckDimensions(embedding, s.dimensions); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	hits := []domain.ScoredChunk{}
	for _, c := range s.chunks {
		if !filter.Matches(c.Metadata) {
			continue
		}
		hits = append(hits, domain.ScoredChunk{Chunk: c, Distance: vecmath.CosineDistance(embedding, c.Embedding)})
	}
	return vecmath.TopK(hits, topK), nil
}

// DeleteMeeting removes every chunk of a meeting.
func (s *VectorStore) DeleteMeeting(_ context.Context, meetingID domain.MeetingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.chunks {
		if c.MeetingID == meetingID {
			delete(s.chunks, id)
		}
	}
	return nil
}

// Count returns the number of chunks matching filter. An empty filter
// counts every chunk.
func (s *VectorStore) Count(_ context.Context, filter domain.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if filter.MeetingID == "" {
		return len(s.chunks), nil
	}
	n := 0
	for _, c := range s.chunks {
		if filter.Matches(c.Metadata) {
			n++
		}
	}
	return n, nil
}

// Ping always succeeds.
func (s *VectorStore) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *VectorStore) Close() error {
	return nil
}
