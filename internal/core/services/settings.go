package services

import (
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
	"github.com/custodia-labs/meetsight/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyServerAddr        = "server.addr"
	keyServerCORS        = "server.cors_origins"
	keyServerMaxUploadMB = "server.max_upload_mb"
	keyServerTimeout     = "server.request_timeout"

	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyEmbedDims     = "embedding.dimensions"
	keyEmbedTimeout  = "embedding.timeout"

	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMTimeout     = "llm.timeout"
	keyLLMTemperature = "llm.temperature"
	keyLLMJSONMode    = "llm.json_mode"
	keyLLMRPS         = "llm.requests_per_second"

	keyWhisperBaseURL  = "transcription.base_url"
	keyWhisperModel    = "transcription.model"
	keyWhisperAPIKey   = "transcription.api_key"
	keyWhisperLanguage = "transcription.language"
	keyWhisperTimeout  = "transcription.timeout"

	keyStoreBackend    = "store.backend"
	keyStoreCollection = "store.collection"
	keyStorePath       = "store.path"
	keyStoreDSN        = "store.dsn"
	keyStoreURL        = "store.url"
	keyStoreTimeout    = "store.timeout"

	keyChunkPolicy   = "chunking.policy"
	keyChunkMaxChars = "chunking.max_chars"
	keyChunkOverlap  = "chunking.overlap"

	keyRetrievalTopK        = "retrieval.top_k"
	keyRetrievalMaxDistance = "retrieval.max_distance"

	keyRetryMaxAttempts = "retry.max_attempts"
	keyRetryInitial     = "retry.initial_interval"
	keyRetryMax         = "retry.max_interval"
	keyRetryMaxElapsed  = "retry.max_elapsed"
)

// Environment variables that override the config file.
const (
	EnvOllamaURL    = "MEETSIGHT_OLLAMA_URL"
	EnvLLMModel     = "MEETSIGHT_LLM_MODEL"
	EnvEmbedModel   = "MEETSIGHT_EMBED_MODEL"
	EnvStoreBackend = "MEETSIGHT_STORE_BACKEND"
	EnvPGDSN        = "MEETSIGHT_PG_DSN"
	EnvChromaURL    = "MEETSIGHT_CHROMA_URL"
	EnvWhisperURL   = "MEETSIGHT_WHISPER_URL"
	EnvOpenAIKey    = "OPENAI_API_KEY" //nolint:gosec // variable name, not a credential
)

// SettingsService resolves application settings from defaults, the config
// store and the environment, in that order of increasing precedence.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get retrieves the effective application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Server: domain.ServerSettings{
			Addr:           s.getString(keyServerAddr, d.Server.Addr),
			CORSOrigins:    s.getStrings(keyServerCORS, d.Server.CORSOrigins),
			MaxUploadMB:    s.getInt(keyServerMaxUploadMB, d.Server.MaxUploadMB),
			RequestTimeout: s.getDuration(keyServerTimeout, d.Server.RequestTimeout),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: domain.AIProvider(s.getString(keyEmbedProvider, d.Embedding.Provider.String())),
			Model:    s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:  s.getString(keyEmbedBaseURL, ""),
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
			Timeout:  s.getDuration(keyEmbedTimeout, d.Embedding.Timeout),
		},
		LLM: domain.LLMSettings{
			Model:             s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:           s.getString(keyLLMBaseURL, d.LLM.BaseURL),
			Timeout:           s.getDuration(keyLLMTimeout, d.LLM.Timeout),
			Temperature:       s.configStore.GetFloat(keyLLMTemperature),
			JSONMode:          s.configStore.GetBool(keyLLMJSONMode),
			RequestsPerSecond: s.configStore.GetFloat(keyLLMRPS),
		},
		Transcription: domain.TranscriptionSettings{
			BaseURL:  s.getString(keyWhisperBaseURL, d.Transcription.BaseURL),
			Model:    s.getString(keyWhisperModel, d.Transcription.Model),
			APIKey:   s.configStore.GetString(keyWhisperAPIKey),
			Language: s.configStore.GetString(keyWhisperLanguage),
			Timeout:  s.getDuration(keyWhisperTimeout, d.Transcription.Timeout),
		},
		Store: domain.StoreSettings{
			Backend:    domain.StoreBackend(s.getString(keyStoreBackend, d.Store.Backend.String())),
			Collection: s.getString(keyStoreCollection, d.Store.Collection),
			Path:       s.getString(keyStorePath, ""),
			DSN:        s.configStore.GetString(keyStoreDSN),
			URL:        s.getString(keyStoreURL, d.Store.URL),
			Timeout:    s.getDuration(keyStoreTimeout, d.Store.Timeout),
		},
		Chunking: domain.ChunkingSettings{
			Policy:   domain.ChunkingPolicy(s.getString(keyChunkPolicy, d.Chunking.Policy.String())),
			MaxChars: s.getInt(keyChunkMaxChars, d.Chunking.MaxChars),
			Overlap:  s.getIntAllowZero(keyChunkOverlap, d.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:        s.getInt(keyRetrievalTopK, d.Retrieval.TopK),
			MaxDistance: s.configStore.GetFloat(keyRetrievalMaxDistance),
		},
		Retry: domain.RetrySettings{
			MaxAttempts:     s.getIntAllowZero(keyRetryMaxAttempts, d.Retry.MaxAttempts),
			InitialInterval: s.getDuration(keyRetryInitial, d.Retry.InitialInterval),
			MaxInterval:     s.getDuration(keyRetryMax, d.Retry.MaxInterval),
			MaxElapsed:      s.getDuration(keyRetryMaxElapsed, d.Retry.MaxElapsed),
		},
	}

	s.applyEnv(settings)

	// Embedding dimensions follow the model unless explicitly configured.
	settings.Embedding.Dimensions = s.configStore.GetInt(keyEmbedDims)
	if settings.Embedding.Dimensions == 0 {
		settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]
	}
	if settings.Embedding.BaseURL == "" && settings.Embedding.Provider == domain.AIProviderOllama {
		settings.Embedding.BaseURL = settings.LLM.BaseURL
	}

	if !settings.Embedding.Provider.IsValid() {
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, settings.Embedding.Provider)
	}
	if !settings.Store.Backend.IsValid() {
		return nil, fmt.Errorf("%w: unknown store backend %q", domain.ErrInvalidInput, settings.Store.Backend)
	}
	if !settings.Chunking.Policy.IsValid() {
		return nil, fmt.Errorf("%w: unknown chunking policy %q", domain.ErrInvalidInput, settings.Chunking.Policy)
	}

	return settings, nil
}

func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if v := s.getenv(EnvOllamaURL); v != "" {
		settings.LLM.BaseURL = v
		if settings.Embedding.Provider == domain.AIProviderOllama {
			settings.Embedding.BaseURL = v
		}
	}
	if v := s.getenv(EnvLLMModel); v != "" {
		settings.LLM.Model = v
	}
	if v := s.getenv(EnvEmbedModel); v != "" {
		settings.Embedding.Model = v
	}
	if v := s.getenv(EnvStoreBackend); v != "" {
		settings.Store.Backend = domain.StoreBackend(v)
	}
	if v := s.getenv(EnvPGDSN); v != "" {
		settings.Store.DSN = v
	}
	if v := s.getenv(EnvChromaURL); v != "" {
		settings.Store.URL = v
	}
	if v := s.getenv(EnvWhisperURL); v != "" {
		settings.Transcription.BaseURL = v
	}
	if v := s.getenv(EnvOpenAIKey); v != "" {
		if settings.Embedding.APIKey == "" {
			settings.Embedding.APIKey = v
		}
		if settings.Transcription.APIKey == "" {
			settings.Transcription.APIKey = v
		}
	}
}

// Save persists application settings. Secrets are only written when set.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyServerAddr, settings.Server.Addr},
		{keyServerCORS, settings.Server.CORSOrigins},
		{keyServerMaxUploadMB, settings.Server.MaxUploadMB},
		{keyServerTimeout, settings.Server.RequestTimeout.String()},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedTimeout, settings.Embedding.Timeout.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTimeout, settings.LLM.Timeout.String()},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMJSONMode, settings.LLM.JSONMode},
		{keyLLMRPS, settings.LLM.RequestsPerSecond},
		{keyWhisperBaseURL, settings.Transcription.BaseURL},
		{keyWhisperModel, settings.Transcription.Model},
		{keyWhisperLanguage, settings.Transcription.Language},
		{keyWhisperTimeout, settings.Transcription.Timeout.String()},
		{keyStoreBackend, settings.Store.Backend.String()},
		{keyStoreCollection, settings.Store.Collection},
		{keyStorePath, settings.Store.Path},
		{keyStoreURL, settings.Store.URL},
		{keyStoreTimeout, settings.Store.Timeout.String()},
		{keyChunkPolicy, settings.Chunking.Policy.String()},
		{keyChunkMaxChars, settings.Chunking.MaxChars},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyRetrievalTopK, settings.Retrieval.TopK},
		{keyRetrievalMaxDistance, settings.Retrieval.MaxDistance},
		{keyRetryMaxAttempts, settings.Retry.MaxAttempts},
		{keyRetryInitial, settings.Retry.InitialInterval.String()},
		{keyRetryMax, settings.Retry.MaxInterval.String()},
		{keyRetryMaxElapsed, settings.Retry.MaxElapsed.String()},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := map[string]string{
		keyEmbedAPIKey:   settings.Embedding.APIKey,
		keyWhisperAPIKey: settings.Transcription.APIKey,
		keyStoreDSN:      settings.Store.DSN,
	}
	for key, value := range secrets {
		if value == "" {
			continue
		}
		if err := s.configStore.Set(key, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if v := s.configStore.GetInt(key); v > 0 {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetInt(key)
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := s.configStore.GetDuration(key); v > 0 {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getStrings(key string, defaultVal []string) []string {
	if v := s.configStore.GetStringSlice(key); len(v) > 0 {
		return v
	}
	return defaultVal
}
