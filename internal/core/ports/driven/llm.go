package driven

import "context"

// LLMService generates text from a prompt.
// The output is untrusted; callers validate it.
type LLMService interface {
	// Generate produces a completion for the given prompt.
	// An explicit error from the model wraps domain.ErrGeneration;
	// a response with neither text nor error wraps domain.ErrUnexpectedResponse.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation.
type GenerateOptions struct {
	// Temperature controls randomness (0.0 = most stable).
	Temperature float64

	// MaxTokens limits the response length. Zero uses the model default.
	MaxTokens int

	// JSON asks the model to constrain its output to JSON when supported.
	JSON bool
}
