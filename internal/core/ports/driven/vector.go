package driven

import (
	"context"

	"github.com/custodia-labs/meetsight/internal/core/domain"
)

// VectorStore stores transcript chunks and answers similarity queries.
//
// Meetings share one physical index; the metadata filter is the only
// isolation mechanism, so every Query must carry a meeting id.
type VectorStore interface {
	// Upsert inserts or replaces chunks keyed by ID. Re-upserting an id
	// overwrites it. Backends with transactions apply a batch atomically.
	// Failures wrap domain.ErrStore.
	Upsert(ctx context.Context, chunks ...domain.Chunk) error

	// Query returns up to topK chunks matching filter, closest first.
	// No match yields an empty slice and a nil error. A filter without
	// a meeting id is rejected with domain.ErrInvalidInput.
	Query(ctx context.Context, embedding []float32, topK int, filter domain.Filter) ([]domain.ScoredChunk, error)

	// DeleteMeeting removes every chunk belonging to a meeting.
	DeleteMeeting(ctx context.Context, meetingID domain.MeetingID) error

	// Count returns the number of chunks matching filter.
	Count(ctx context.Context, filter domain.Filter) (int, error)

	// Ping validates the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
