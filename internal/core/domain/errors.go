package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent pipeline failures.
// Adapters wrap them with collaborator detail; callers match with errors.Is.
var (
	// ErrNotFound indicates no relevant context exists for a query,
	// typically because the meeting was never ingested.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbedding indicates the embedding collaborator was unreachable
	// or returned malformed output.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStore indicates a vector store write or query failure.
	ErrStore = errors.New("vector store failure")

	// ErrIndexing wraps embedding or store failures during ingestion.
	// A meeting that failed indexing has no chunks left in the store.
	ErrIndexing = errors.New("indexing failed")

	// ErrInsightParse indicates generative output failed the JSON contract.
	ErrInsightParse = errors.New("insight parse failed")

	// ErrGeneration indicates the generative collaborator was unreachable
	// or answered with an explicit error field.
	ErrGeneration = errors.New("generation failed")

	// ErrUnexpectedResponse indicates a collaborator violated its wire contract.
	ErrUnexpectedResponse = errors.New("unexpected response")

	// ErrTranscription indicates speech-to-text failed.
	ErrTranscription = errors.New("transcription failed")

	// ErrUnavailable marks a failure as transient (network error, timeout,
	// 5xx, 429). Only errors wrapping it are retried.
	ErrUnavailable = errors.New("collaborator unavailable")

	// ErrNotConfigured indicates a required collaborator is not set up.
	ErrNotConfigured = errors.New("not configured")
)

// InsightParseError carries the raw generative output that could not be
// turned into an Insight. Raw is for logs only; Error() omits it.
type InsightParseError struct {
	Kind   InsightKind
	Reason string
	Raw    string
}

func (e *InsightParseError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInsightParse, e.Kind, e.Reason)
}

// Unwrap lets errors.Is match ErrInsightParse.
func (e *InsightParseError) Unwrap() error {
	return ErrInsightParse
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
