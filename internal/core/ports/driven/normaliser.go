package driven

import "context"

// Normaliser turns an uploaded transcript file into plain transcript text.
// Each normaliser handles specific file extensions (e.g. .md, .vtt).
type Normaliser interface {
	// Extensions returns the lower-case file extensions this normaliser
	// handles, including the leading dot.
	Extensions() []string

	// Normalise extracts the transcript text from raw file content.
	Normalise(ctx context.Context, raw []byte) (string, error)
}

// NormaliserRegistry selects the normaliser for a transcript file.
type NormaliserRegistry interface {
	// Normalise converts raw using the normaliser registered for
	// filename's extension. Unknown extensions are treated as plain text.
	Normalise(ctx context.Context, filename string, raw []byte) (string, error)

	// Register adds a normaliser. Later registrations win for a shared extension.
	Register(n Normaliser)

	// Extensions returns every extension with a registered normaliser.
	Extensions() []string
}
