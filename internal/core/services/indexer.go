package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
	"github.com/custodia-labs/meetsight/internal/logger"
)

// rollbackTimeout bounds cleanup of a failed indexing run. Cleanup runs
// even when the caller's context is already cancelled.
const rollbackTimeout = 15 * time.Second

// Splitter segments a transcript into chunks tagged with the meeting id.
type Splitter interface {
	Split(meetingID domain.MeetingID, text string) []domain.Chunk
}

// Indexer stores a meeting transcript as embedded chunks.
type Indexer struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	splitter Splitter
	retry    RetryPolicy
}

// NewIndexer creates a new indexer.
func NewIndexer(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	splitter Splitter,
	retry RetryPolicy,
) *Indexer {
	return &Indexer{
		embedder: embedder,
		store:    store,
		splitter: splitter,
		retry:    retry,
	}
}

// Index splits, embeds and stores text under meetingID.
//
// Every chunk is embedded before anything is written, and all chunks are
// written in one Upsert. If the write fails or is cancelled, the meeting's
// chunks are deleted so no meeting is left partially indexed. Errors wrap
// domain.ErrIndexing together with the underlying cause.
func (i *Indexer) Index(ctx context.Context, meetingID domain.MeetingID, text string) (domain.IndexResult, error) {
	logger.Section("Indexing")

	if err := meetingID.Validate(); err != nil {
		return domain.IndexResult{}, fmt.Errorf("%w: %w", domain.ErrIndexing, err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.IndexResult{}, fmt.Errorf("%w: %w: transcript is empty", domain.ErrIndexing, domain.ErrInvalidInput)
	}

	// 1. Segment
	chunks := i.splitter.Split(meetingID, text)
	logger.Debug("Meeting %s: %d chunk(s)", meetingID, len(chunks))

	// 2. Embed everything up front
	if err := i.embedChunks(ctx, chunks); err != nil {
		return domain.IndexResult{}, fmt.Errorf("%w: meeting %s: %w", domain.ErrIndexing, meetingID, err)
	}

	// 3. Store in one batch
	err := i.retry.Do(ctx, "upsert", func(ctx context.Context) error {
		return i.store.Upsert(ctx, chunks...)
	})
	if err != nil {
		i.rollback(ctx, meetingID)
		return domain.IndexResult{}, fmt.Errorf("%w: meeting %s: %w", domain.ErrIndexing, meetingID, err)
	}

	logger.Info("Indexed meeting %s (%d chunks)", meetingID, len(chunks))
	return domain.IndexResult{
		Status:    domain.IndexStatusSuccess,
		MeetingID: meetingID,
		Chunks:    len(chunks),
	}, nil
}

func (i *Indexer) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for n := range chunks {
		texts[n] = chunks[n].Text
	}

	var vectors [][]float32
	err := i.retry.Do(ctx, "embed", func(ctx context.Context) error {
		var err error
		vectors, err = i.embedder.EmbedBatch(ctx, texts)
		return err
	})
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d embeddings for %d chunks", domain.ErrEmbedding, len(vectors), len(chunks))
	}

	dims := len(vectors[0])
	for n, v := range vectors {
		if len(v) == 0 || len(v) != dims {
			return fmt.Errorf("%w: embedding %d has %d dimensions, expected %d", domain.ErrEmbedding, n, len(v), dims)
		}
		chunks[n].Embedding = v
	}
	return nil
}

func (i *Indexer) rollback(ctx context.Context, meetingID domain.MeetingID) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	if err := i.store.DeleteMeeting(cleanupCtx, meetingID); err != nil {
		logger.Error("rollback of meeting %s failed: %v", meetingID, err)
		return
	}
	logger.Warn("Rolled back partially indexed meeting %s", meetingID)
}
