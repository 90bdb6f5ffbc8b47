package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// AIConfigValidator checks that a provider configuration can reach its service.
type AIConfigValidator interface {
	// ValidateEmbedding pings the embedding provider.
	// Returns nil when the provider is reachable or not configured.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM pings the generation provider.
	// Returns nil when the provider is reachable or not configured.
	ValidateLLM(config *domain.LLMSettings) error
}
