// Package whisper provides a speech-to-text adapter for OpenAI-compatible
// transcription servers (faster-whisper-server, whisper.cpp, OpenAI).
package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
)

// Ensure Transcriber implements the interface.
var _ driven.Transcriber = (*Transcriber)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:9000"
	DefaultModel   = "base"
	DefaultTimeout = 5 * time.Minute
)

// Config holds configuration for the transcription client.
type Config struct {
	// BaseURL is the server root; /v1/audio/transcriptions is appended.
	BaseURL string

	// Model is the whisper model name (default: base).
	Model string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Language is an optional ISO-639-1 hint.
	Language string

	// Timeout bounds a whole transcription request (default: 5m).
	Timeout time.Duration
}

// Transcriber uploads audio files and returns their transcript.
type Transcriber struct {
	client   *http.Client
	baseURL  string
	model    string
	apiKey   string
	language string
}

type transcriptionResponse struct {
	Text  *string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// New creates a new transcriber.
func New(cfg Config) *Transcriber {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Transcriber{
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		language: cfg.Language,
	}
}

// Transcribe streams the audio file at path to the server as multipart form data.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open audio: %w", domain.ErrTranscription, err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(t.writeForm(form, f, filepath.Base(path)))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/audio/transcriptions", pr)
	if err != nil {
		pr.Close() //nolint:errcheck
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %w: whisper: send request: %w", domain.ErrTranscription, domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: whisper: read response: %w", domain.ErrTranscription, err)
	}

	var result transcriptionResponse
	decodeErr := json.Unmarshal(body, &result)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if decodeErr == nil && result.Error != nil {
			msg = result.Error.Message
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return "", fmt.Errorf("%w: %w: whisper error (status %d): %s",
				domain.ErrTranscription, domain.ErrUnavailable, resp.StatusCode, msg)
		}
		return "", fmt.Errorf("%w: whisper error (status %d): %s", domain.ErrTranscription, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: whisper: decode response: %w", domain.ErrTranscription, decodeErr)
	}
	if result.Text == nil {
		return "", fmt.Errorf("%w: whisper: response has no text", domain.ErrTranscription)
	}
	return strings.TrimSpace(*result.Text), nil
}

func (t *Transcriber) writeForm(form *multipart.Writer, audio io.Reader, filename string) error {
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return err
	}
	fields := map[string]string{
		"model":           t.model,
		"response_format": "json",
	}
	if t.language != "" {
		fields["language"] = t.language
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return err
		}
	}
	return form.Close()
}

// Ping checks the server answers on /v1/models. Any non-5xx status counts
// as reachable since some servers do not implement the listing.
func (t *Transcriber) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("whisper: failed to create ping request: %w", err)
	}
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: whisper: ping failed: %w", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("whisper: server returned status %d", resp.StatusCode)
	}
	return nil
}
