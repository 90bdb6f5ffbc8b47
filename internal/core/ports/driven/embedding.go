// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// Embedder converts text into a fixed-dimension vector.
// It is deliberately a single-method capability so deterministic fakes can stand in for tests.
//
// Implementations include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Hashing embedder (offline, deterministic)
//
// Errors wrap domain.ErrEmbeddingUnavailable on transport or service failure.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Dimensioned is implemented by embedders that know their vector length up front.
type Dimensioned interface {
	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	Dimensions() int
}

// Pinger is implemented by adapters that can cheaply verify connectivity.
type Pinger interface {
	// Ping validates the service is reachable by making a lightweight request.
	Ping(ctx context.Context) error
}

// ModelEnsurer is implemented by providers that serve locally pulled models.
type ModelEnsurer interface {
	// EnsureModel makes the configured model available, downloading it if needed.
	EnsureModel(ctx context.Context) error
}
