package driven

import "context"

// Generator produces text from a prompt using a language model.
//
// Implementations include:
//   - Ollama (local models)
//   - OpenAI (GPT-4o and compatible servers)
//   - Anthropic (Claude)
//
// Errors wrap domain.ErrGenerationUnavailable, or domain.ErrGenerationTimeout when
// the call exceeded its deadline.
type Generator interface {
	// Generate produces text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate. Zero uses the provider default.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}
