package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API (embeddings only).
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// AllEmbeddingProviders returns the providers that can serve embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// StoreBackend selects the vector store implementation.
type StoreBackend string

// Available vector store backends.
const (
	// StoreMemory keeps chunks in process memory. Lost on exit.
	StoreMemory StoreBackend = "memory"

	// StoreSQLite persists chunks in a local SQLite database.
	StoreSQLite StoreBackend = "sqlite"

	// StorePGVector uses PostgreSQL with the pgvector extension.
	StorePGVector StoreBackend = "pgvector"

	// StoreChroma talks to a Chroma server over REST.
	StoreChroma StoreBackend = "chroma"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreMemory, StoreSQLite, StorePGVector, StoreChroma:
		return true
	default:
		return false
	}
}

// AllStoreBackends returns every vector store backend.
func AllStoreBackends() []StoreBackend {
	return []StoreBackend{StoreSQLite, StoreMemory, StorePGVector, StoreChroma}
}

// String returns the string representation.
func (b StoreBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StoreBackend) Description() string {
	switch b {
	case StoreMemory:
		return "In-memory (ephemeral)"
	case StoreSQLite:
		return "SQLite (local file)"
	case StorePGVector:
		return "PostgreSQL + pgvector"
	case StoreChroma:
		return "Chroma server"
	default:
		return unknownDescription
	}
}

// ChunkingPolicy selects how transcripts are segmented before indexing.
type ChunkingPolicy string

// Available chunking policies.
const (
	// ChunkingWhole stores the entire transcript as a single chunk.
	ChunkingWhole ChunkingPolicy = "whole"

	// ChunkingSentence groups sentences into bounded, overlapping windows.
	ChunkingSentence ChunkingPolicy = "sentence"
)

// IsValid returns true if the policy is recognised.
func (c ChunkingPolicy) IsValid() bool {
	return c == ChunkingWhole || c == ChunkingSentence
}

// String returns the string representation.
func (c ChunkingPolicy) String() string {
	return string(c)
}

// ServerSettings holds HTTP API configuration.
type ServerSettings struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string

	// CORSOrigins are the origins allowed to call the API.
	CORSOrigins []string

	// MaxUploadMB caps the size of uploaded audio.
	MaxUploadMB int

	// RequestTimeout bounds a whole request, including all collaborator calls.
	RequestTimeout time.Duration
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the expected vector size. Zero means learn it from
	// the first response.
	Dimensions int

	// Timeout bounds a single embedding request.
	Timeout time.Duration
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generative model configuration.
type LLMSettings struct {
	// Model is the Ollama model name.
	Model string

	// BaseURL is the Ollama endpoint.
	BaseURL string

	// Timeout bounds a single generation request.
	Timeout time.Duration

	// Temperature is passed through to the model. Zero keeps output as
	// stable as the model allows.
	Temperature float64

	// JSONMode asks Ollama to constrain output to JSON.
	JSONMode bool

	// RequestsPerSecond throttles generation calls. Zero disables it.
	RequestsPerSecond float64
}

// TranscriptionSettings holds speech-to-text configuration.
type TranscriptionSettings struct {
	// BaseURL is an OpenAI-compatible transcription server.
	BaseURL string

	// Model is the whisper model name.
	Model string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Language is an optional ISO-639-1 hint.
	Language string

	// Timeout bounds a single transcription request.
	Timeout time.Duration
}

// StoreSettings holds vector store configuration.
type StoreSettings struct {
	// Backend selects the implementation.
	Backend StoreBackend

	// Collection is the logical collection/table name.
	Collection string

	// Path is the SQLite data directory (default: ~/.meetsight/data).
	Path string

	// DSN is the PostgreSQL connection string.
	DSN string

	// URL is the Chroma server address.
	URL string

	// Timeout bounds a single store request (remote backends).
	Timeout time.Duration
}

// ChunkingSettings holds transcript segmentation configuration.
type ChunkingSettings struct {
	Policy ChunkingPolicy

	// MaxChars bounds a sentence window.
	MaxChars int

	// Overlap is the number of sentences repeated between windows.
	Overlap int
}

// RetrievalSettings holds retrieval configuration.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per query.
	TopK int

	// MaxDistance drops hits farther than this cosine distance. Zero disables it.
	MaxDistance float64
}

// RetrySettings bounds retries of transient collaborator failures.
type RetrySettings struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	Server        ServerSettings
	Embedding     EmbeddingSettings
	LLM           LLMSettings
	Transcription TranscriptionSettings
	Store         StoreSettings
	Chunking      ChunkingSettings
	Retrieval     RetrievalSettings
	Retry         RetrySettings
}

// DefaultAppSettings returns settings matching a local Ollama + whisper setup.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Server: ServerSettings{
			Addr:           ":8000",
			CORSOrigins:    []string{"http://localhost:3000"},
			MaxUploadMB:    100,
			RequestTimeout: 10 * time.Minute,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOllama,
			Model:      "all-minilm",
			BaseURL:    "http://localhost:11434",
			Dimensions: 384,
			Timeout:    30 * time.Second,
		},
		LLM: LLMSettings{
			Model:   "llama3:latest",
			BaseURL: "http://localhost:11434",
			Timeout: 120 * time.Second,
		},
		Transcription: TranscriptionSettings{
			BaseURL: "http://localhost:9000",
			Model:   "base",
			Timeout: 5 * time.Minute,
		},
		Store: StoreSettings{
			Backend:    StoreSQLite,
			Collection: "meetings",
			URL:        "http://localhost:8001",
			Timeout:    30 * time.Second,
		},
		Chunking: ChunkingSettings{
			Policy:   ChunkingSentence,
			MaxChars: 800,
			Overlap:  1,
		},
		Retrieval: RetrievalSettings{
			TopK: DefaultTopK,
		},
		Retry: RetrySettings{
			MaxAttempts:     3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			MaxElapsed:      30 * time.Second,
		},
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"all-minilm":        384,
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
