// Package ai builds the application runtime: the collaborator adapters
// selected by settings, the vector store and the pipeline services.
package ai

import (
	"context"
	"errors"
	"fmt"

	filecfg "github.com/custodia-labs/meetsight/internal/adapters/driven/config/file"
	ollamaembed "github.com/custodia-labs/meetsight/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/meetsight/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/meetsight/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/meetsight/internal/adapters/driven/storage/chroma"
	"github.com/custodia-labs/meetsight/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/meetsight/internal/adapters/driven/storage/pgvector"
	"github.com/custodia-labs/meetsight/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/meetsight/internal/adapters/driven/transcribe/whisper"
	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
	"github.com/custodia-labs/meetsight/internal/core/services"
	"github.com/custodia-labs/meetsight/internal/logger"
	"github.com/custodia-labs/meetsight/internal/normalisers"
	"github.com/custodia-labs/meetsight/internal/postprocessors/chunker"
)

// Runtime holds every collaborator handle and the services built on them.
// It is created once at startup and closed at shutdown.
type Runtime struct {
	Settings    domain.AppSettings
	Embedder    driven.EmbeddingService
	LLM         driven.LLMService
	Transcriber driven.Transcriber
	Store       driven.VectorStore
	Prompts     driven.PromptStore
	Normalisers driven.NormaliserRegistry
	Meetings    *services.MeetingService
}

type runtimeOptions struct {
	promptDir   string
	embedder    driven.EmbeddingService
	llm         driven.LLMService
	transcriber driven.Transcriber
	store       driven.VectorStore
}

// Option customises runtime construction.
type Option func(*runtimeOptions)

// WithPromptDir loads prompt templates from dir instead of ~/.meetsight/prompts.
func WithPromptDir(dir string) Option {
	return func(o *runtimeOptions) { o.promptDir = dir }
}

// WithEmbedder uses the given embedder instead of building one from settings.
func WithEmbedder(e driven.EmbeddingService) Option {
	return func(o *runtimeOptions) { o.embedder = e }
}

// WithLLM uses the given generative model instead of building one from settings.
func WithLLM(l driven.LLMService) Option {
	return func(o *runtimeOptions) { o.llm = l }
}

// WithTranscriber uses the given transcriber instead of building one from settings.
func WithTranscriber(t driven.Transcriber) Option {
	return func(o *runtimeOptions) { o.transcriber = t }
}

// WithStore uses the given vector store instead of opening one from settings.
func WithStore(s driven.VectorStore) Option {
	return func(o *runtimeOptions) { o.store = s }
}

// NewRuntime builds the runtime from settings. Nothing is pinged here;
// use CheckHealth to probe the collaborators.
func NewRuntime(ctx context.Context, settings *domain.AppSettings, opts ...Option) (*Runtime, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: settings are required", domain.ErrInvalidInput)
	}
	var o runtimeOptions
	for _, opt := range opts {
		opt(&o)
	}

	rt := &Runtime{Settings: *settings}

	rt.Embedder = o.embedder
	if rt.Embedder == nil {
		embedder, err := CreateEmbeddingService(settings.Embedding)
		if err != nil {
			return nil, err
		}
		rt.Embedder = embedder
	}

	rt.LLM = o.llm
	if rt.LLM == nil {
		rt.LLM = CreateLLMService(settings.LLM)
	}

	rt.Transcriber = o.transcriber
	if rt.Transcriber == nil {
		rt.Transcriber = CreateTranscriber(settings.Transcription)
	}

	rt.Store = o.store
	if rt.Store == nil {
		dimensions := settings.Embedding.Dimensions
		if dimensions == 0 {
			dimensions = rt.Embedder.Dimensions()
		}
		store, err := CreateVectorStore(ctx, settings.Store, dimensions)
		if err != nil {
			rt.Close() //nolint:errcheck
			return nil, err
		}
		rt.Store = store
	}

	prompts, err := filecfg.NewPromptStore(o.promptDir, services.DefaultPrompts())
	if err != nil {
		logger.Warn("Prompt store unavailable, using built-in prompts: %v", err)
	} else {
		rt.Prompts = prompts
	}

	rt.Normalisers = normalisers.Default()

	retry := services.RetryPolicyFromSettings(settings.Retry)
	splitter := CreateChunker(settings.Chunking)

	indexer := services.NewIndexer(rt.Embedder, rt.Store, splitter, retry)
	retriever := services.NewRetriever(rt.Embedder, rt.Store, retry, settings.Retrieval.MaxDistance)
	extractor := services.NewExtractor(rt.LLM, rt.Prompts, retry, driven.GenerateOptions{
		Temperature: settings.LLM.Temperature,
		JSON:        settings.LLM.JSONMode,
	})
	rt.Meetings = services.NewMeetingService(indexer, retriever, extractor, rt.Transcriber,
		services.WithTopK(settings.Retrieval.TopK))

	logger.Debug("Runtime: embedder=%s llm=%s store=%s chunking=%s",
		rt.Embedder.ModelName(), rt.LLM.ModelName(), settings.Store.Backend, splitter.Policy())
	return rt, nil
}

// Close releases every handle the runtime holds.
func (r *Runtime) Close() error {
	var errs []error
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if r.Embedder != nil {
		if err := r.Embedder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close embedder: %w", err))
		}
	}
	if r.LLM != nil {
		if err := r.LLM.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close llm: %w", err))
		}
	}
	return errors.Join(errs...)
}

// CreateEmbeddingService creates the embedding service selected by settings.
func CreateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Timeout:    settings.Timeout,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Timeout:    settings.Timeout,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embeddings: %w", err)
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", domain.ErrInvalidInput, settings.Provider)
	}
}

// CreateLLMService creates the Ollama generative model client.
func CreateLLMService(settings domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Timeout:           settings.Timeout,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}

// CreateTranscriber creates the whisper transcription client.
func CreateTranscriber(settings domain.TranscriptionSettings) driven.Transcriber {
	return whisper.New(whisper.Config{
		BaseURL:  settings.BaseURL,
		Model:    settings.Model,
		APIKey:   settings.APIKey,
		Language: settings.Language,
		Timeout:  settings.Timeout,
	})
}

// CreateVectorStore opens the configured backend. dimensions may be zero
// for every backend except pgvector, which needs it for its column type.
func CreateVectorStore(ctx context.Context, settings domain.StoreSettings, dimensions int) (driven.VectorStore, error) {
	switch settings.Backend {
	case domain.StoreMemory:
		return memory.NewVectorStore(dimensions), nil

	case domain.StoreSQLite:
		store, err := sqlite.NewStore(settings.Path, dimensions)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil

	case domain.StorePGVector:
		store, err := pgvector.New(ctx, pgvector.Config{
			DSN:        settings.DSN,
			Table:      settings.Collection,
			Dimensions: dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("open pgvector store: %w", err)
		}
		return store, nil

	case domain.StoreChroma:
		return chroma.New(chroma.Config{
			URL:        settings.URL,
			Collection: settings.Collection,
			Dimensions: dimensions,
			Timeout:    settings.Timeout,
		}), nil

	default:
		return nil, fmt.Errorf("%w: unsupported store backend %q", domain.ErrInvalidInput, settings.Backend)
	}
}

// CreateChunker creates the transcript splitter selected by settings.
func CreateChunker(settings domain.ChunkingSettings) *chunker.Processor {
	return chunker.New(
		chunker.WithPolicy(settings.Policy),
		chunker.WithMaxChars(settings.MaxChars),
		chunker.WithOverlap(settings.Overlap),
	)
}
