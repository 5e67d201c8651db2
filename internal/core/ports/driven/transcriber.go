package driven

import "context"

// Transcriber converts recorded audio to text.
type Transcriber interface {
	// Transcribe reads the audio file at path and returns its transcript.
	// Failures wrap domain.ErrTranscription.
	Transcribe(ctx context.Context, path string) (string, error)

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error
}
