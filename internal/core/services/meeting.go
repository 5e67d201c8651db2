package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
	"github.com/custodia-labs/meetsight/internal/core/ports/driving"
	"github.com/custodia-labs/meetsight/internal/logger"
)

// Ensure MeetingService implements the interface.
var _ driving.MeetingService = (*MeetingService)(nil)

// summaryQuery is the retrieval query used to build context for the
// ingestion-time insights.
const summaryQuery = "meeting summary"

// MeetingService orchestrates Indexer → Retriever → Extractor.
type MeetingService struct {
	indexer     *Indexer
	retriever   *Retriever
	extractor   *Extractor
	transcriber driven.Transcriber
	topK        int
	newID       func() domain.MeetingID
}

// MeetingOption configures a MeetingService.
type MeetingOption func(*MeetingService)

// WithTopK sets the number of chunks retrieved per query.
func WithTopK(k int) MeetingOption {
	return func(s *MeetingService) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithIDGenerator replaces UUID meeting ids, for tests.
func WithIDGenerator(fn func() domain.MeetingID) MeetingOption {
	return func(s *MeetingService) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewMeetingService creates the pipeline orchestrator.
// transcriber may be nil; IngestAudio then fails with domain.ErrNotConfigured.
func NewMeetingService(
	indexer *Indexer,
	retriever *Retriever,
	extractor *Extractor,
	transcriber driven.Transcriber,
	opts ...MeetingOption,
) *MeetingService {
	s := &MeetingService{
		indexer:     indexer,
		retriever:   retriever,
		extractor:   extractor,
		transcriber: transcriber,
		topK:        domain.DefaultTopK,
		newID: func() domain.MeetingID {
			return domain.MeetingID(uuid.New().String())
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestTranscript indexes a transcript under a new meeting id and
// extracts action items, decisions and participant interactions in parallel.
func (s *MeetingService) IngestTranscript(ctx context.Context, transcript string) (*domain.Summary, error) {
	text := strings.TrimSpace(transcript)
	if text == "" {
		return nil, fmt.Errorf("ingest: %w: transcript is empty", domain.ErrInvalidInput)
	}

	meetingID := s.newID()
	logger.Section("Ingest " + meetingID.String())
	start := time.Now()

	if _, err := s.indexer.Index(ctx, meetingID, text); err != nil {
		return nil, err
	}

	summary := &domain.Summary{
		MeetingID:     meetingID,
		Transcription: transcript,
		Insights:      make(map[domain.InsightKind]domain.InsightOutcome, len(domain.SummaryKinds)),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, kind := range domain.SummaryKinds {
		wg.Add(1)
		go func(kind domain.InsightKind) {
			defer wg.Done()
			outcome := s.summarize(ctx, meetingID, text, kind)
			mu.Lock()
			summary.Insights[kind] = outcome
			mu.Unlock()
		}(kind)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingest %s: %w", meetingID, err)
	}

	logger.Info("Ingested meeting %s in %s", meetingID, time.Since(start).Round(time.Millisecond))
	return summary, nil
}

// summarize produces one insight kind. Failures are recorded in the
// outcome rather than returned so the other kinds still complete.
func (s *MeetingService) summarize(
	ctx context.Context, meetingID domain.MeetingID, transcript string, kind domain.InsightKind,
) domain.InsightOutcome {
	outcome := domain.InsightOutcome{Kind: kind}

	contextText := transcript
	chunks, err := s.retriever.Retrieve(ctx, summaryQuery, meetingID, s.topK)
	switch {
	case err != nil:
		logger.Warn("Retrieval for %s failed, using full transcript: %v", kind, err)
	case len(chunks) == 0:
		logger.Debug("No chunks retrieved for %s, using full transcript", kind)
	default:
		contextText = strings.Join(chunks, "\n\n")
	}

	extraction, err := s.extractor.Extract(ctx, domain.InsightRequest{
		Kind:        kind,
		Context:     contextText,
		Instruction: kind.Instruction(),
	})
	if err != nil {
		logger.Error("Extracting %s for meeting %s: %v", kind, meetingID, err)
		outcome.Error = PublicMessage(err)
		return outcome
	}
	if !extraction.OK() {
		outcome.Error = PublicMessage(extraction.Err())
		return outcome
	}

	outcome.Insight = extraction.Insight
	return outcome
}

// IngestAudio spools audio to a temporary file, transcribes it and ingests
// the transcript. The temporary file is always removed.
func (s *MeetingService) IngestAudio(ctx context.Context, filename string, audio io.Reader) (*domain.Summary, error) {
	if s.transcriber == nil {
		return nil, fmt.Errorf("ingest audio: transcriber %w", domain.ErrNotConfigured)
	}

	tmp, err := os.CreateTemp("", "meetsight-*"+filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, audio); err != nil {
		tmp.Close() //nolint:errcheck
		return nil, fmt.Errorf("spool audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("spool audio: %w", err)
	}

	logger.Section("Transcribe " + filename)
	text, err := s.transcriber.Transcribe(ctx, tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("ingest audio: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("ingest audio: %w: no speech detected", domain.ErrTranscription)
	}
	logger.Debug("Transcript: %d characters", len(text))

	return s.IngestTranscript(ctx, text)
}

// Ask answers a question about one meeting from its most relevant chunks.
func (s *MeetingService) Ask(ctx context.Context, meetingID domain.MeetingID, question string) (*domain.Insight, error) {
	logger.Section("Ask")
	if err := meetingID.Validate(); err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("ask: %w: question is required", domain.ErrInvalidInput)
	}

	chunks, err := s.retriever.Retrieve(ctx, question, meetingID, s.topK)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no context for meeting %s", domain.ErrNotFound, meetingID)
	}

	extraction, err := s.extractor.Extract(ctx, domain.InsightRequest{
		Kind:        domain.KindAnswer,
		Context:     strings.Join(chunks, "\n\n"),
		Instruction: question,
	})
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}
	if !extraction.OK() {
		return nil, fmt.Errorf("ask: %w", extraction.Err())
	}
	return extraction.Insight, nil
}

// PublicMessage maps an error to a message safe to show end users.
// Raw collaborator output never appears in it.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrNotFound):
		return "no relevant context found for this meeting"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid request: " + err.Error()
	case errors.Is(err, domain.ErrInsightParse):
		return "the model's answer did not match the expected format"
	case errors.Is(err, domain.ErrUnexpectedResponse):
		return "the language model returned an unexpected response"
	case errors.Is(err, domain.ErrGeneration):
		return "the language model failed to generate an answer"
	case errors.Is(err, domain.ErrIndexing):
		return "the transcript could not be indexed"
	case errors.Is(err, domain.ErrEmbedding):
		return "the embedding service failed"
	case errors.Is(err, domain.ErrStore):
		return "the vector store failed"
	case errors.Is(err, domain.ErrTranscription):
		return "the audio could not be transcribed"
	case errors.Is(err, domain.ErrNotConfigured):
		return "this feature is not configured"
	case errors.Is(err, context.DeadlineExceeded):
		return "the request timed out"
	case errors.Is(err, context.Canceled):
		return "the request was cancelled"
	default:
		return "internal error"
	}
}
