package cli

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/meetsight/internal/core/domain"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func cloudSettings() *domain.AppSettings {
	s := domain.DefaultAppSettings()
	s.Embedding.Provider = domain.AIProviderOpenAI
	s.Embedding.Model = "text-embedding-3-small"
	s.Embedding.APIKey = "sk-1234567890abcdef"
	s.Store.Backend = domain.StorePGVector
	s.Store.DSN = "postgres://user:secret@db/meet"
	return &s
}

func TestSettingsShow_MasksSecrets(t *testing.T) {
	withSettings(t, &mockSettingsService{settings: cloudSettings()})

	out, _, err := execute(t, context.Background(), "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Provider: OpenAI (cloud)")
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.Contains(t, out, "Backend: PostgreSQL + pgvector")
	assert.Contains(t, out, "DSN: post.../meet")
	assert.NotContains(t, out, "1234567890")
	assert.NotContains(t, out, "secret")
}

func TestSettings_DefaultsToShow(t *testing.T) {
	withSettings(t, &mockSettingsService{settings: cloudSettings()})

	out, _, err := execute(t, context.Background(), "settings")

	require.NoError(t, err)
	assert.Contains(t, out, "Current Settings")
}

func TestSettingsShow_JSON(t *testing.T) {
	withSettings(t, &mockSettingsService{settings: cloudSettings()})

	out, _, err := execute(t, context.Background(), "settings", "show", "--json")

	require.NoError(t, err)
	var decoded domain.AppSettings
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "sk-1...cdef", decoded.Embedding.APIKey)
	assert.Equal(t, "post.../meet", decoded.Store.DSN)
}

func TestSettingsShow_GetError(t *testing.T) {
	withSettings(t, &mockSettingsService{getErr: errors.New("bad toml")})

	_, _, err := execute(t, context.Background(), "settings", "show")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad toml")
}

func TestSettingsInit_Saves(t *testing.T) {
	svc := &mockSettingsService{settings: cloudSettings()}
	withSettings(t, svc)

	out, _, err := execute(t, context.Background(), "settings", "init")

	require.NoError(t, err)
	require.NotNil(t, svc.saved)
	assert.Equal(t, "sk-1234567890abcdef", svc.saved.Embedding.APIKey)
	assert.Contains(t, out, "Settings written.")
}

func TestSettingsEmbedding_OpenAI(t *testing.T) {
	defaults := domain.DefaultAppSettings()
	svc := &mockSettingsService{settings: &defaults}
	withSettings(t, svc)

	_, _, err := executeWithInput(t, context.Background(), "2\n\nsk-newkey-0000000\n", "settings", "embedding")

	require.NoError(t, err)
	require.NotNil(t, svc.saved)
	assert.Equal(t, domain.AIProviderOpenAI, svc.saved.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", svc.saved.Embedding.Model)
	assert.Equal(t, "sk-newkey-0000000", svc.saved.Embedding.APIKey)
	assert.Equal(t, 1536, svc.saved.Embedding.Dimensions)
	assert.Empty(t, svc.saved.Embedding.BaseURL)
}

func TestSettingsEmbedding_OllamaCustomModel(t *testing.T) {
	defaults := domain.DefaultAppSettings()
	svc := &mockSettingsService{settings: &defaults}
	withSettings(t, svc)

	_, _, err := executeWithInput(t, context.Background(), "1\nnomic-embed-text\n", "settings", "embedding")

	require.NoError(t, err)
	require.NotNil(t, svc.saved)
	assert.Equal(t, domain.AIProviderOllama, svc.saved.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", svc.saved.Embedding.Model)
	assert.Equal(t, 768, svc.saved.Embedding.Dimensions)
	assert.Equal(t, "http://localhost:11434", svc.saved.Embedding.BaseURL)
}

func TestSettingsEmbedding_MissingAPIKey(t *testing.T) {
	defaults := domain.DefaultAppSettings()
	svc := &mockSettingsService{settings: &defaults}
	withSettings(t, svc)

	_, _, err := executeWithInput(t, context.Background(), "2\n\n\n", "settings", "embedding")

	require.Error(t, err)
	assert.Nil(t, svc.saved)
}

func TestSettingsStore_PGVector(t *testing.T) {
	defaults := domain.DefaultAppSettings()
	svc := &mockSettingsService{settings: &defaults}
	withSettings(t, svc)

	_, _, err := executeWithInput(t, context.Background(), "3\npostgres://u:p@localhost/meet\n", "settings", "store")

	require.NoError(t, err)
	require.NotNil(t, svc.saved)
	assert.Equal(t, domain.StorePGVector, svc.saved.Store.Backend)
	assert.Equal(t, "postgres://u:p@localhost/meet", svc.saved.Store.DSN)
}

func TestSettingsStore_PGVectorRequiresDSN(t *testing.T) {
	defaults := domain.DefaultAppSettings()
	svc := &mockSettingsService{settings: &defaults}
	withSettings(t, svc)

	_, _, err := executeWithInput(t, context.Background(), "3\n\n", "settings", "store")

	require.Error(t, err)
	assert.Nil(t, svc.saved)
}

func TestSettingsStore_ChromaKeepsDefaultURL(t *testing.T) {
	defaults := domain.DefaultAppSettings()
	svc := &mockSettingsService{settings: &defaults}
	withSettings(t, svc)

	_, _, err := executeWithInput(t, context.Background(), "4\n\n", "settings", "store")

	require.NoError(t, err)
	require.NotNil(t, svc.saved)
	assert.Equal(t, domain.StoreChroma, svc.saved.Store.Backend)
	assert.Equal(t, "http://localhost:8001", svc.saved.Store.URL)
}
