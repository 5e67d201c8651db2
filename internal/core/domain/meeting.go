package domain

import (
	"fmt"
	"strings"
)

// MeetingID identifies one meeting's transcript corpus.
// It is assigned once at ingestion and partitions all storage and retrieval.
type MeetingID string

// String returns the identifier as a plain string.
func (id MeetingID) String() string {
	return string(id)
}

// Validate checks the identifier is usable as a partition key.
func (id MeetingID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return fmt.Errorf("%w: meeting id is required", ErrInvalidInput)
	}
	return nil
}

// MetaMeetingID is the metadata key every chunk carries.
const MetaMeetingID = "meeting_id"

// Chunk is a unit of indexed transcript text.
type Chunk struct {
	// ID is unique within the store. Equal to the meeting id for
	// whole-transcript chunking, "<meetingId>:<n>" otherwise.
	ID string `json:"id"`

	// MeetingID is the meeting this chunk belongs to.
	MeetingID MeetingID `json:"meeting_id"`

	// Text is the chunk content. Never empty.
	Text string `json:"text"`

	// Position is the chunk's zero-based index within the transcript.
	Position int `json:"position"`

	// Embedding is the vector representation of Text.
	Embedding []float32 `json:"-"`

	// Metadata holds string attributes used for filtering.
	// Always contains MetaMeetingID.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ChunkID derives the store id for the n-th chunk of a meeting.
func ChunkID(meetingID MeetingID, n int) string {
	return fmt.Sprintf("%s:%d", meetingID, n)
}

// Filter restricts a vector store query. MeetingID is mandatory; stores
// reject a filter without it so that meetings never leak into each other.
type Filter struct {
	MeetingID MeetingID
}

// Validate ensures the filter carries a meeting id.
func (f Filter) Validate() error {
	if err := f.MeetingID.Validate(); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	return nil
}

// Matches reports whether metadata satisfies the filter exactly.
func (f Filter) Matches(metadata map[string]string) bool {
	return metadata[MetaMeetingID] == string(f.MeetingID)
}

// ScoredChunk is a chunk returned from a similarity query.
type ScoredChunk struct {
	Chunk Chunk

	// Distance is the cosine distance to the query (0 = identical).
	Distance float64
}

// DefaultTopK is the number of chunks retrieved when none is given.
const DefaultTopK = 3

// Query is a retrieval request scoped to one meeting. Not persisted.
type Query struct {
	Text      string
	MeetingID MeetingID
	TopK      int
}

// Normalize fills defaults.
func (q Query) Normalize() Query {
	if q.TopK == 0 {
		q.TopK = DefaultTopK
	}
	return q
}

// Validate checks the query can be executed.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: query text is required", ErrInvalidInput)
	}
	if q.TopK < 0 {
		return fmt.Errorf("%w: topK must be positive, got %d", ErrInvalidInput, q.TopK)
	}
	return q.MeetingID.Validate()
}

// IndexStatusSuccess is the only status an IndexResult reports;
// failures are returned as errors.
const IndexStatusSuccess = "success"

// IndexResult reports a successful indexing run.
type IndexResult struct {
	Status    string    `json:"status"`
	MeetingID MeetingID `json:"meetingId"`
	Chunks    int       `json:"chunks"`
}
