package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/meetsight/internal/core/domain"
)

// MeetingService runs the two end-to-end pipeline operations.
type MeetingService interface {
	// IngestTranscript indexes a transcript under a fresh meeting id and
	// extracts the summary insights. Indexing failure aborts the operation;
	// a failed insight kind is reported in its outcome.
	IngestTranscript(ctx context.Context, transcript string) (*domain.Summary, error)

	// IngestAudio transcribes audio and then behaves like IngestTranscript.
	IngestAudio(ctx context.Context, filename string, audio io.Reader) (*domain.Summary, error)

	// Ask answers a question about one meeting. Returns domain.ErrNotFound
	// when the meeting has no relevant context.
	Ask(ctx context.Context, meetingID domain.MeetingID, question string) (*domain.Insight, error)
}
