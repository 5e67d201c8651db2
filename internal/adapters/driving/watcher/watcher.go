// Package watcher ingests transcripts and recordings dropped into a directory.
// It is a driving adapter: filesystem events drive MeetingService.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
	"github.com/custodia-labs/meetsight/internal/core/ports/driving"
	"github.com/custodia-labs/meetsight/internal/logger"
)

// DefaultSettleDelay is how long a file must stay unchanged before it is ingested.
const DefaultSettleDelay = 2 * time.Second

// ErrMissingMeetingService is returned when the meeting service is not provided.
var ErrMissingMeetingService = errors.New("watcher: meeting service is required")

// Result reports the ingestion of one file.
type Result struct {
	Path    string
	Summary *domain.Summary
	Err     error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettleDelay sets how long a file must be quiet before ingestion.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithResultHandler receives every ingestion result. It is called from
// the single ingestion goroutine.
func WithResultHandler(fn func(Result)) Option {
	return func(w *Watcher) {
		w.onResult = fn
	}
}

// WithNormaliser converts transcript files to plain text before ingestion.
func WithNormaliser(r driven.NormaliserRegistry) Option {
	return func(w *Watcher) {
		w.formats = r
	}
}

// WithExisting also ingests supported files already in the directory at start.
func WithExisting(enabled bool) Option {
	return func(w *Watcher) {
		w.existing = enabled
	}
}

// Watcher ingests new transcript and audio files from one directory.
// Files are processed one at a time in the order they settle.
type Watcher struct {
	dir      string
	meetings driving.MeetingService
	settle   time.Duration
	existing bool
	formats  driven.NormaliserRegistry
	onResult func(Result)

	mu      sync.Mutex
	pending map[string]*time.Timer
	done    map[string]fileStamp
}

// fileStamp identifies a version of a file so rewrites are ingested again.
type fileStamp struct {
	size    int64
	modTime time.Time
}

// New creates a watcher for dir.
func New(dir string, meetings driving.MeetingService, opts ...Option) (*Watcher, error) {
	if meetings == nil {
		return nil, ErrMissingMeetingService
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: %w: not a directory", dir, domain.ErrInvalidInput)
	}

	w := &Watcher{
		dir:      dir,
		meetings: meetings,
		settle:   DefaultSettleDelay,
		onResult: func(Result) {},
		pending:  make(map[string]*time.Timer),
		done:     make(map[string]fileStamp),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.onResult == nil {
		w.onResult = func(Result) {}
	}
	return w, nil
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close() //nolint:errcheck

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Info("Watching %s for transcripts and recordings", w.dir)

	ready := make(chan string, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.ingestLoop(ctx, ready)
	}()

	if w.existing {
		w.scanExisting(ready)
	}

	defer func() {
		w.stopTimers()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.schedule(event.Name, ready)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// Supported reports whether path is a transcript or audio file the watcher ingests.
// Hidden and temporary files are skipped.
func Supported(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return domain.MediaTypeOf(base) != domain.MediaUnknown
}

func (w *Watcher) scanExisting(ready chan<- string) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Warn("Listing %s: %v", w.dir, err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.schedule(filepath.Join(w.dir, e.Name()), ready)
		}
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(path string, ready chan<- string) {
	if !Supported(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case ready <- path:
		default:
			logger.Warn("Ingest queue full, skipping %s", path)
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingestLoop(ctx context.Context, ready <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-ready:
			w.ingestFile(ctx, path)
		}
	}
}

// ingestFile ingests path unless this version was already processed.
func (w *Watcher) ingestFile(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	stamp := fileStamp{size: info.Size(), modTime: info.ModTime()}

	w.mu.Lock()
	prev, seen := w.done[path]
	w.mu.Unlock()
	if seen && prev == stamp {
		logger.Debug("Skipping unchanged %s", path)
		return
	}

	summary, err := w.ingest(ctx, path)
	if err == nil {
		w.mu.Lock()
		w.done[path] = stamp
		w.mu.Unlock()
		logger.Info("Ingested %s as meeting %s", filepath.Base(path), summary.MeetingID)
	} else {
		logger.Error("Ingesting %s: %v", path, err)
	}
	w.onResult(Result{Path: path, Summary: summary, Err: err})
}

func (w *Watcher) ingest(ctx context.Context, path string) (*domain.Summary, error) {
	switch domain.MediaTypeOf(path) {
	case domain.MediaTranscript:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		text := string(data)
		if w.formats != nil {
			if text, err = w.formats.Normalise(ctx, path, data); err != nil {
				return nil, fmt.Errorf("normalise %s: %w", path, err)
			}
		}
		return w.meetings.IngestTranscript(ctx, text)
	case domain.MediaAudio:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close() //nolint:errcheck
		return w.meetings.IngestAudio(ctx, filepath.Base(path), f)
	default:
		return nil, fmt.Errorf("%w: unsupported file %s", domain.ErrInvalidInput, path)
	}
}
