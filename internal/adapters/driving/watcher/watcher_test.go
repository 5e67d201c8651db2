package watcher

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/normalisers"
)

type mockMeetingService struct {
	mu          sync.Mutex
	transcripts []string
	audio       []string
	err         error
}

func (m *mockMeetingService) IngestTranscript(_ context.Context, transcript string) (*domain.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcripts = append(m.transcripts, transcript)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Summary{MeetingID: "m-text", Transcription: transcript}, nil
}

func (m *mockMeetingService) IngestAudio(_ context.Context, filename string, audio io.Reader) (*domain.Summary, error) {
	data, _ := io.ReadAll(audio)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audio = append(m.audio, filename+":"+string(data))
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Summary{MeetingID: "m-audio"}, nil
}

func (m *mockMeetingService) Ask(_ context.Context, _ domain.MeetingID, _ string) (*domain.Insight, error) {
	return nil, errors.New("not implemented")
}

// startWatcher runs a watcher on dir and returns its results channel.
func startWatcher(t *testing.T, dir string, svc *mockMeetingService, opts ...Option) <-chan Result {
	t.Helper()
	results := make(chan Result, 16)
	opts = append([]Option{
		WithSettleDelay(20 * time.Millisecond),
		WithResultHandler(func(r Result) { results <- r }),
	}, opts...)

	w, err := New(dir, svc, opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	// Give fsnotify a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	return results
}

func waitResult(t *testing.T, results <-chan Result) Result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for ingestion")
		return Result{}
	}
}

func TestNew(t *testing.T) {
	t.Run("requires meeting service", func(t *testing.T) {
		w, err := New(t.TempDir(), nil)
		assert.ErrorIs(t, err, ErrMissingMeetingService)
		assert.Nil(t, w)
	})

	t.Run("missing directory", func(t *testing.T) {
		w, err := New(filepath.Join(t.TempDir(), "nope"), &mockMeetingService{})
		assert.Error(t, err)
		assert.Nil(t, w)
	})

	t.Run("file instead of directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		w, err := New(path, &mockMeetingService{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Nil(t, w)
	})

	t.Run("defaults", func(t *testing.T) {
		w, err := New(t.TempDir(), &mockMeetingService{}, WithResultHandler(nil), WithSettleDelay(0))
		require.NoError(t, err)
		assert.Equal(t, DefaultSettleDelay, w.settle)
		assert.NotNil(t, w.onResult)
	})
}

func TestSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/in/standup.txt", true},
		{"/in/call.wav", true},
		{"/in/notes.md", true},
		{"/in/.standup.txt", false},
		{"/in/standup.txt~", false},
		{"/in/photo.jpg", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Supported(tt.path))
		})
	}
}

func TestWatcher_IngestsNewTranscript(t *testing.T) {
	dir := t.TempDir()
	svc := &mockMeetingService{}
	results := startWatcher(t, dir, svc)

	path := filepath.Join(dir, "standup.txt")
	require.NoError(t, os.WriteFile(path, []byte("Alice: ship Friday"), 0o644))

	r := waitResult(t, results)
	require.NoError(t, r.Err)
	assert.Equal(t, path, r.Path)
	assert.Equal(t, domain.MeetingID("m-text"), r.Summary.MeetingID)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, []string{"Alice: ship Friday"}, svc.transcripts)
}

func TestWatcher_IngestsAudio(t *testing.T) {
	dir := t.TempDir()
	svc := &mockMeetingService{}
	results := startWatcher(t, dir, svc)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "call.wav"), []byte("RIFF"), 0o644))

	r := waitResult(t, results)
	require.NoError(t, r.Err)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, []string{"call.wav:RIFF"}, svc.audio)
}

func TestWatcher_IgnoresUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	svc := &mockMeetingService{}
	results := startWatcher(t, dir, svc)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.jpg"), []byte("jpg"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "later.txt"), []byte("text"), 0o644))

	r := waitResult(t, results)
	assert.Equal(t, "later.txt", filepath.Base(r.Path))

	select {
	case extra := <-results:
		t.Fatalf("unexpected ingestion of %s", extra.Path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_ReportsErrors(t *testing.T) {
	dir := t.TempDir()
	svc := &mockMeetingService{err: domain.ErrIndexing}
	results := startWatcher(t, dir, svc)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("text"), 0o644))

	r := waitResult(t, results)
	assert.ErrorIs(t, r.Err, domain.ErrIndexing)
	assert.Nil(t, r.Summary)
}

func TestWatcher_ExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.txt"), []byte("old meeting"), 0o644))

	svc := &mockMeetingService{}
	results := startWatcher(t, dir, svc, WithExisting(true))

	r := waitResult(t, results)
	require.NoError(t, r.Err)
	assert.Equal(t, "old.txt", filepath.Base(r.Path))
}

func TestWatcher_SkipsUnchangedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "once.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	svc := &mockMeetingService{}
	w, err := New(dir, svc)
	require.NoError(t, err)

	ctx := context.Background()
	w.ingestFile(ctx, path)
	w.ingestFile(ctx, path)

	svc.mu.Lock()
	assert.Len(t, svc.transcripts, 1)
	svc.mu.Unlock()

	// A rewrite with different content is a new version.
	require.NoError(t, os.WriteFile(path, []byte("new content"), 0o644))
	w.ingestFile(ctx, path)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Len(t, svc.transcripts, 2)
}

func TestWatcher_NormalisesTranscriptFormats(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "call.srt")
	require.NoError(t, os.WriteFile(path, []byte("1\n00:00:01,000 --> 00:00:02,000\nAna: ship Friday\n"), 0o644))

	svc := &mockMeetingService{}
	var got Result
	w, err := New(dir, svc,
		WithNormaliser(normalisers.Default()),
		WithResultHandler(func(r Result) { got = r }),
	)
	require.NoError(t, err)

	w.ingestFile(context.Background(), path)

	require.NoError(t, got.Err)
	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, []string{"Ana: ship Friday"}, svc.transcripts)
}

func TestWatcher_NormaliseErrorReported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.docx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	svc := &mockMeetingService{}
	var got Result
	w, err := New(dir, svc,
		WithNormaliser(normalisers.Default()),
		WithResultHandler(func(r Result) { got = r }),
	)
	require.NoError(t, err)

	w.ingestFile(context.Background(), path)

	assert.ErrorIs(t, got.Err, domain.ErrInvalidInput)
	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Empty(t, svc.transcripts)
}
