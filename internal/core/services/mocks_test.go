package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
)

// =============================================================================
// Embedding
// =============================================================================

const fakeDims = 64

// fakeEmbedder is a deterministic bag-of-words embedder: texts sharing
// words end up close in cosine space.
type fakeEmbedder struct {
	mu       sync.Mutex
	errs     []error // returned in order, one per call, before succeeding
	embedErr error   // returned on every call
	calls    int
}

func (f *fakeEmbedder) next() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.embedErr != nil {
		return f.embedErr
	}
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.next(); err != nil {
		return nil, err
	}
	return bagOfWords(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.next(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bagOfWords(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int              { return fakeDims }
func (f *fakeEmbedder) ModelName() string            { return "fake-bow" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (f *fakeEmbedder) Close() error                 { return nil }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func bagOfWords(text string) []float32 {
	v := make([]float32, fakeDims)
	v[fakeDims-1] = 0.1 // keeps punctuation-only text off the zero vector
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	}) {
		h := fnv.New32a()
		h.Write([]byte(w)) //nolint:errcheck
		v[h.Sum32()%(fakeDims-1)]++
	}
	return v
}

// =============================================================================
// Vector store
// =============================================================================

type mockVectorStore struct {
	mu        sync.Mutex
	chunks    map[string]domain.Chunk
	upsertErr error
	queryErr  error
	deleted   []domain.MeetingID
	// leak returns chunks from every meeting, ignoring the filter.
	leak bool
}

func newMockVectorStore() *mockVectorStore {
	return &mockVectorStore{chunks: make(map[string]domain.Chunk)}
}

func (m *mockVectorStore) Upsert(ctx context.Context, chunks ...domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		// Simulate a backend that wrote part of the batch before failing.
		if len(chunks) > 0 {
			m.chunks[chunks[0].ID] = chunks[0]
		}
		return m.upsertErr
	}
	for _, c := range chunks {
		m.chunks[c.ID] = c
	}
	return nil
}

func (m *mockVectorStore) Query(
	ctx context.Context, embedding []float32, topK int, filter domain.Filter,
) ([]domain.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	hits := []domain.ScoredChunk{}
	for _, c := range m.chunks {
		if !m.leak && !filter.Matches(c.Metadata) {
			continue
		}
		hits = append(hits, domain.ScoredChunk{Chunk: c, Distance: 1 - cosine(embedding, c.Embedding)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *mockVectorStore) DeleteMeeting(_ context.Context, meetingID domain.MeetingID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, meetingID)
	for id, c := range m.chunks {
		if c.MeetingID == meetingID {
			delete(m.chunks, id)
		}
	}
	return nil
}

func (m *mockVectorStore) Count(_ context.Context, filter domain.Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.chunks {
		if filter.Matches(c.Metadata) {
			n++
		}
	}
	return n, nil
}

func (m *mockVectorStore) Ping(_ context.Context) error { return nil }
func (m *mockVectorStore) Close() error                 { return nil }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// =============================================================================
// LLM
// =============================================================================

type mockLLMService struct {
	mu       sync.Mutex
	respond  func(prompt string) (string, error)
	prompts  []string
	response string
	err      error
}

func (m *mockLLMService) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.respond != nil {
		return m.respond(prompt)
	}
	return m.response, m.err
}

func (m *mockLLMService) ModelName() string            { return "mock" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                 { return nil }

func (m *mockLLMService) promptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// meetingAnalyst answers extraction prompts from the transcript context
// embedded in them, the way a well-behaved model would.
func meetingAnalyst(prompt string) (string, error) {
	sentences := splitSentences(promptContext(prompt))

	switch {
	case strings.Contains(prompt, domain.KindActionItems.Instruction()):
		return recordsJSON("action_items", actionItems(sentences)), nil
	case strings.Contains(prompt, domain.KindDecisions.Instruction()):
		var recs []map[string]string
		for _, s := range sentences {
			if strings.Contains(s, "approved") || strings.Contains(s, "decided") {
				recs = append(recs, map[string]string{"description": s, "made_by": firstWord(s)})
			}
		}
		return recordsJSON("decisions", recs), nil
	case strings.Contains(prompt, domain.KindParticipantInteractions.Instruction()):
		var recs []map[string]string
		for _, s := range sentences {
			recs = append(recs, map[string]string{"participant": firstWord(s), "description": s})
		}
		return recordsJSON("participant_interactions", recs), nil
	default:
		items := actionItems(sentences)
		return fmt.Sprintf(`{"answer": "There are %d action items.", "action_items": %s}`, len(items), mustJSON(items)), nil
	}
}

func actionItems(sentences []string) []map[string]string {
	var recs []map[string]string
	for _, s := range sentences {
		if strings.Contains(s, " will ") {
			recs = append(recs, map[string]string{"description": s, "owner": firstWord(s)})
		}
	}
	return recs
}

func promptContext(prompt string) string {
	const start, end = "## Transcript context\n", "\n\n## Instruction"
	i := strings.Index(prompt, start)
	j := strings.Index(prompt, end)
	if i < 0 || j < i {
		return ""
	}
	return prompt[i+len(start) : j]
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range strings.SplitAfter(strings.ReplaceAll(text, "\n", " "), ".") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

func recordsJSON(key string, recs []map[string]string) string {
	return fmt.Sprintf(`{%q: %s}`, key, mustJSON(recs))
}

func mustJSON(recs []map[string]string) string {
	if len(recs) == 0 {
		return "[]"
	}
	parts := make([]string, len(recs))
	for i, r := range recs {
		keys := make([]string, 0, len(r))
		for k := range r {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]string, len(keys))
		for n, k := range keys {
			fields[n] = fmt.Sprintf("%q: %q", k, r[k])
		}
		parts[i] = "{" + strings.Join(fields, ", ") + "}"
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// =============================================================================
// Transcriber, prompt store, config store
// =============================================================================

type mockTranscriber struct {
	text     string
	err      error
	lastPath string
	existed  bool
}

func (m *mockTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	m.lastPath = path
	_, statErr := os.Stat(path)
	m.existed = statErr == nil
	return m.text, m.err
}

func (m *mockTranscriber) Ping(_ context.Context) error { return nil }

type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("prompt not found")
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

type mockConfigStore struct {
	values map[string]any
	setErr error
}

func newMockConfigStore(values map[string]any) *mockConfigStore {
	if values == nil {
		values = make(map[string]any)
	}
	return &mockConfigStore{values: values}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	s, _ := m.values[key].(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func (m *mockConfigStore) GetBool(key string) bool {
	b, _ := m.values[key].(bool)
	return b
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	switch v := m.values[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func (m *mockConfigStore) GetDuration(key string) time.Duration {
	if s, ok := m.values[key].(string); ok {
		d, _ := time.ParseDuration(s)
		return d
	}
	return 0
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	s, _ := m.values[key].([]string)
	return s
}

func (m *mockConfigStore) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error  { return nil }
func (m *mockConfigStore) Load() error  { return nil }
func (m *mockConfigStore) Path() string { return "/tmp/config.toml" }

// =============================================================================
// Helpers
// =============================================================================

var transientErr = fmt.Errorf("%w: %w: connection refused", domain.ErrEmbedding, domain.ErrUnavailable)

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

// pipeline wires real services over the fakes.
type pipeline struct {
	embedder  *fakeEmbedder
	store     *mockVectorStore
	llm       *mockLLMService
	indexer   *Indexer
	retriever *Retriever
	extractor *Extractor
	service   *MeetingService
}

func newPipeline(splitter Splitter, llm *mockLLMService, opts ...MeetingOption) *pipeline {
	p := &pipeline{
		embedder: &fakeEmbedder{},
		store:    newMockVectorStore(),
		llm:      llm,
	}
	p.indexer = NewIndexer(p.embedder, p.store, splitter, fastRetry(3))
	p.retriever = NewRetriever(p.embedder, p.store, fastRetry(3), 0)
	p.extractor = NewExtractor(p.llm, nil, fastRetry(3), driven.GenerateOptions{})
	p.service = NewMeetingService(p.indexer, p.retriever, p.extractor, nil, opts...)
	return p
}
