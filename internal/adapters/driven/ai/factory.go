// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/cache"
	hashembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/hash"
	ollamaembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/ratelimit"
	anthropicllm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Embedding cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	Embedder  driven.Embedder
	Generator driven.Generator
	Warnings  []string // Non-fatal issues, e.g. a cache that could not be reached.

	closers []func() error
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	for _, closeFn := range r.closers {
		if err := closeFn(); err != nil {
			logger.Warn("ai: close: %v", err)
		}
	}
	r.closers = nil
}

// Initialise builds the embedder and generator described by settings.
// The embedder is wrapped by the rate limiter and then the cache, so cache
// hits never consume rate limit tokens. An unreachable Redis cache falls
// back to no caching with a warning.
func Initialise(ctx context.Context, settings *domain.AppSettings) (*InitResult, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: settings are required", domain.ErrConfiguration)
	}

	embedder, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrConfiguration, settings.Embedding.Provider)
	}

	generator, err := CreateLLMService(&settings.LLM)
	if err != nil {
		return nil, err
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: llm provider %q is not configured",
			domain.ErrConfiguration, settings.LLM.Provider)
	}

	result := &InitResult{Generator: generator}
	result.Embedder = ratelimit.New(embedder, settings.Embedding.RateLimit)

	store, err := createCacheStore(ctx, settings.Embedding.Cache)
	switch {
	case err != nil:
		warning := fmt.Sprintf("embedding cache disabled: %v", err)
		logger.Warn("%s", warning)
		result.Warnings = append(result.Warnings, warning)
	case store != nil:
		result.Embedder = cache.New(result.Embedder, store, settings.Embedding.Model, settings.Embedding.Cache.TTL)
		result.closers = append(result.closers, store.Close)
	}

	return result, nil
}

// createCacheStore returns nil for the "none" backend.
func createCacheStore(ctx context.Context, settings domain.EmbeddingCacheSettings) (cache.Store, error) {
	switch settings.Backend {
	case "", CacheNone:
		return nil, nil
	case CacheMemory:
		return cache.NewMemoryStore(cache.DefaultMemoryEntries), nil
	case CacheRedis:
		if settings.RedisAddr == "" {
			return nil, errors.New("redis cache requires embedding.cache.redis_addr")
		}
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return cache.NewRedisStore(pingCtx, settings.RedisAddr, "", 0)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", settings.Backend)
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.Embedder, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sercha-rag settings set' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(svc); err != nil {
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'sercha-rag settings set' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.Generator, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sercha-rag settings set' to fix",
			domain.ErrGenerationUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ensureModel(svc); err != nil {
		return nil, fmt.Errorf("%w: model unavailable (%w). Run 'sercha-rag settings set' to fix",
			domain.ErrGenerationUnavailable, err)
	}
	if err := ping(svc); err != nil {
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'sercha-rag settings set' to fix",
			domain.ErrGenerationUnavailable, err)
	}
	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	_, err := CreateAndValidateEmbeddingService(settings)
	return err
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	_, err := CreateAndValidateLLMService(settings)
	return err
}

// ensureModel downloads a missing local model. It is not bounded by
// pingTimeout because a download can take minutes.
func ensureModel(svc any) error {
	ensurer, ok := svc.(driven.ModelEnsurer)
	if !ok {
		return nil
	}
	return ensurer.EnsureModel(context.Background())
}

func ping(svc any) error {
	pinger, ok := svc.(driven.Pinger)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return pinger.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.Embedder, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider == domain.AIProviderAnthropic {
		return nil, errors.New("anthropic does not support embeddings, use ollama, openai or hash")
	}
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderHash:
		return hashembed.NewEmbeddingService(hashembed.Config{
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensionsFor(settings, ollamaembed.DefaultDimensions),
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensionsFor(settings, 0),
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// dimensionsFor prefers the configured size, then the known size of the model.
func dimensionsFor(settings *domain.EmbeddingSettings, fallback int) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	if dims := domain.EmbeddingDimensions()[settings.Model]; dims > 0 {
		return dims
	}
	return fallback
}

// CreateLLMService creates the appropriate generator based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.Generator, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
