package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API (or any compatible server).
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API. Generation only.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderHash is the offline deterministic hashing embedder. Embeddings only.
	AIProviderHash AIProvider = "hash"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderHash:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHash
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderHash:
		return "Hashing embedder (offline, deterministic)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies the vector database implementation.
type VectorBackend string

// Available vector backends.
const (
	VectorBackendMemory   VectorBackend = "memory"
	VectorBackendSQLite   VectorBackend = "sqlite"
	VectorBackendQdrant   VectorBackend = "qdrant"
	VectorBackendPGVector VectorBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendSQLite, VectorBackendQdrant, VectorBackendPGVector:
		return true
	default:
		return false
	}
}

// StorageBackend identifies the document metadata store implementation.
type StorageBackend string

// Available storage backends.
const (
	StorageBackendMemory StorageBackend = "memory"
	StorageBackendSQLite StorageBackend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageBackendMemory || b == StorageBackendSQLite
}

// ChunkingSettings controls how documents are split.
type ChunkingSettings struct {
	// Size is the target chunk length in characters.
	Size int

	// Overlap is the number of characters shared by adjacent chunks.
	Overlap int
}

// Validate checks that chunking can make progress.
func (c ChunkingSettings) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfiguration, c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrConfiguration, c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)",
			ErrConfiguration, c.Overlap, c.Size)
	}
	return nil
}

// RetrievalSettings controls similarity search.
type RetrievalSettings struct {
	// TopK is the default number of chunks retrieved per query.
	TopK int

	// MinScore drops hits scoring below it. Calibrated against cosine similarity.
	MinScore float64
}

// PromptSettings controls prompt assembly.
type PromptSettings struct {
	// MaxContextChars caps the rendered context block. Zero means unlimited.
	MaxContextChars int
}

// EmbeddingCacheSettings controls caching of embeddings.
type EmbeddingCacheSettings struct {
	// Backend is "none", "memory" or "redis".
	Backend string

	// RedisAddr is the host:port of the Redis server.
	RedisAddr string

	// TTL is how long cached vectors live. Zero keeps them forever.
	TTL time.Duration
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the fixed vector length of the collection.
	Dimensions int

	// RateLimit caps embedding requests per second. Zero disables limiting.
	RateLimit float64

	// Cache configures the embedding cache.
	Cache EmbeddingCacheSettings
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens caps the generated answer. Zero uses the provider default.
	MaxTokens int

	// Timeout bounds a single generation call.
	Timeout time.Duration
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHash {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings selects and configures the vector database.
type VectorStoreSettings struct {
	// Backend is the vector database implementation.
	Backend VectorBackend

	// Collection is the logical namespace holding this deployment's vectors.
	Collection string

	// URL is the Qdrant endpoint.
	URL string

	// APIKey authenticates against Qdrant Cloud.
	APIKey string

	// DSN is the Postgres connection string for pgvector.
	DSN string
}

// StorageSettings selects the document metadata store.
type StorageSettings struct {
	Backend StorageBackend
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Chunking    ChunkingSettings
	Retrieval   RetrievalSettings
	Prompt      PromptSettings
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	VectorStore VectorStoreSettings
	Storage     StorageSettings
	Metrics     MetricsSettings
}

// Validate checks the settings and returns ErrConfiguration on the first problem.
func (s AppSettings) Validate() error {
	if err := s.Chunking.Validate(); err != nil {
		return err
	}
	if s.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval top_k must be positive, got %d", ErrConfiguration, s.Retrieval.TopK)
	}
	if s.Prompt.MaxContextChars < 0 {
		return fmt.Errorf("%w: prompt max_context_chars must not be negative", ErrConfiguration)
	}
	if !s.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not usable", ErrConfiguration, s.Embedding.Provider)
	}
	if s.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding dimensions must be positive, got %d",
			ErrConfiguration, s.Embedding.Dimensions)
	}
	if !s.LLM.IsConfigured() {
		return fmt.Errorf("%w: llm provider %q is not usable", ErrConfiguration, s.LLM.Provider)
	}
	if !s.VectorStore.Backend.IsValid() {
		return fmt.Errorf("%w: unknown vector store backend %q", ErrConfiguration, s.VectorStore.Backend)
	}
	if s.VectorStore.Collection == "" {
		return fmt.Errorf("%w: vector store collection must be set", ErrConfiguration)
	}
	if !s.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: unknown storage backend %q", ErrConfiguration, s.Storage.Backend)
	}
	return nil
}

// DefaultAppSettings returns settings with sensible defaults.
// Defaults target a local Ollama with the embedded SQLite stores.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking: ChunkingSettings{
			Size:    500,
			Overlap: 50,
		},
		Retrieval: RetrievalSettings{
			TopK: 5,
		},
		Prompt: PromptSettings{
			MaxContextChars: 8000,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOllama,
			Model:      "nomic-embed-text",
			Dimensions: 768, // nomic-embed-text default
			Cache: EmbeddingCacheSettings{
				Backend: "none",
			},
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       "llama3.2",
			Temperature: 0.1,
			Timeout:     180 * time.Second,
		},
		VectorStore: VectorStoreSettings{
			Backend:    VectorBackendSQLite,
			Collection: "documents",
			URL:        "http://localhost:6333",
		},
		Storage: StorageSettings{
			Backend: StorageBackendSQLite,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderHash,
	}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderHash:   "hash-v1",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// SettingValue is one configuration key with its effective value.
type SettingValue struct {
	Key    string
	Value  string
	Origin string // "env", "file" or "default"
	Secret bool
}
