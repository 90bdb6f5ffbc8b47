package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize       = "chunking.size"
	keyChunkOverlap    = "chunking.overlap"
	keyTopK            = "retrieval.top_k"
	keyMinScore        = "retrieval.min_score"
	keyMaxContextChars = "prompt.max_context_chars"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDims       = "embedding.dimensions"
	keyEmbedRateLimit  = "embedding.rate_limit"
	keyCacheBackend    = "embedding.cache.backend"
	keyCacheRedisAddr  = "embedding.cache.redis_addr"
	keyCacheTTL        = "embedding.cache.ttl"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMTemperature  = "llm.temperature"
	keyLLMMaxTokens    = "llm.max_tokens"
	keyLLMTimeout      = "llm.timeout"
	keyVectorBackend   = "vector_store.backend"
	keyVectorColl      = "vector_store.collection"
	keyVectorURL       = "vector_store.url"
	keyVectorAPIKey    = "vector_store.api_key"
	keyVectorDSN       = "vector_store.dsn"
	keyStorageBackend  = "storage.backend"
	keyMetricsAddr     = "metrics.addr"
)

// settingKind controls how a value is parsed and persisted.
type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindDuration
)

// setting binds a config key to a field of domain.AppSettings.
type setting struct {
	key    string
	kind   settingKind
	secret bool
	get    func(*domain.AppSettings) string
	apply  func(*domain.AppSettings, string) error
}

// settingsTable lists every key in display order.
var settingsTable = []setting{
	intSetting(keyChunkSize, func(s *domain.AppSettings) *int { return &s.Chunking.Size }),
	intSetting(keyChunkOverlap, func(s *domain.AppSettings) *int { return &s.Chunking.Overlap }),
	intSetting(keyTopK, func(s *domain.AppSettings) *int { return &s.Retrieval.TopK }),
	floatSetting(keyMinScore, func(s *domain.AppSettings) *float64 { return &s.Retrieval.MinScore }),
	intSetting(keyMaxContextChars, func(s *domain.AppSettings) *int { return &s.Prompt.MaxContextChars }),
	{
		key:  keyEmbedProvider,
		kind: kindString,
		get:  func(s *domain.AppSettings) string { return s.Embedding.Provider.String() },
		apply: func(s *domain.AppSettings, v string) error {
			p := domain.AIProvider(v)
			if !slices.Contains(domain.AllEmbeddingProviders(), p) {
				return fmt.Errorf("%w: %q is not an embedding provider", domain.ErrInvalidInput, v)
			}
			s.Embedding.Provider = p
			return nil
		},
	},
	stringSetting(keyEmbedModel, false, func(s *domain.AppSettings) *string { return &s.Embedding.Model }),
	stringSetting(keyEmbedBaseURL, false, func(s *domain.AppSettings) *string { return &s.Embedding.BaseURL }),
	stringSetting(keyEmbedAPIKey, true, func(s *domain.AppSettings) *string { return &s.Embedding.APIKey }),
	intSetting(keyEmbedDims, func(s *domain.AppSettings) *int { return &s.Embedding.Dimensions }),
	floatSetting(keyEmbedRateLimit, func(s *domain.AppSettings) *float64 { return &s.Embedding.RateLimit }),
	{
		key:  keyCacheBackend,
		kind: kindString,
		get:  func(s *domain.AppSettings) string { return s.Embedding.Cache.Backend },
		apply: func(s *domain.AppSettings, v string) error {
			if !slices.Contains([]string{"none", "memory", "redis"}, v) {
				return fmt.Errorf("%w: cache backend must be none, memory or redis", domain.ErrInvalidInput)
			}
			s.Embedding.Cache.Backend = v
			return nil
		},
	},
	stringSetting(keyCacheRedisAddr, false, func(s *domain.AppSettings) *string { return &s.Embedding.Cache.RedisAddr }),
	durationSetting(keyCacheTTL, func(s *domain.AppSettings) *time.Duration { return &s.Embedding.Cache.TTL }),
	{
		key:  keyLLMProvider,
		kind: kindString,
		get:  func(s *domain.AppSettings) string { return s.LLM.Provider.String() },
		apply: func(s *domain.AppSettings, v string) error {
			p := domain.AIProvider(v)
			if !slices.Contains(domain.AllLLMProviders(), p) {
				return fmt.Errorf("%w: %q is not an llm provider", domain.ErrInvalidInput, v)
			}
			s.LLM.Provider = p
			return nil
		},
	},
	stringSetting(keyLLMModel, false, func(s *domain.AppSettings) *string { return &s.LLM.Model }),
	stringSetting(keyLLMBaseURL, false, func(s *domain.AppSettings) *string { return &s.LLM.BaseURL }),
	stringSetting(keyLLMAPIKey, true, func(s *domain.AppSettings) *string { return &s.LLM.APIKey }),
	floatSetting(keyLLMTemperature, func(s *domain.AppSettings) *float64 { return &s.LLM.Temperature }),
	intSetting(keyLLMMaxTokens, func(s *domain.AppSettings) *int { return &s.LLM.MaxTokens }),
	durationSetting(keyLLMTimeout, func(s *domain.AppSettings) *time.Duration { return &s.LLM.Timeout }),
	{
		key:  keyVectorBackend,
		kind: kindString,
		get:  func(s *domain.AppSettings) string { return string(s.VectorStore.Backend) },
		apply: func(s *domain.AppSettings, v string) error {
			b := domain.VectorBackend(v)
			if !b.IsValid() {
				return fmt.Errorf("%w: unknown vector store backend %q", domain.ErrInvalidInput, v)
			}
			s.VectorStore.Backend = b
			return nil
		},
	},
	stringSetting(keyVectorColl, false, func(s *domain.AppSettings) *string { return &s.VectorStore.Collection }),
	stringSetting(keyVectorURL, false, func(s *domain.AppSettings) *string { return &s.VectorStore.URL }),
	stringSetting(keyVectorAPIKey, true, func(s *domain.AppSettings) *string { return &s.VectorStore.APIKey }),
	stringSetting(keyVectorDSN, true, func(s *domain.AppSettings) *string { return &s.VectorStore.DSN }),
	{
		key:  keyStorageBackend,
		kind: kindString,
		get:  func(s *domain.AppSettings) string { return string(s.Storage.Backend) },
		apply: func(s *domain.AppSettings, v string) error {
			b := domain.StorageBackend(v)
			if !b.IsValid() {
				return fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, v)
			}
			s.Storage.Backend = b
			return nil
		},
	},
	stringSetting(keyMetricsAddr, false, func(s *domain.AppSettings) *string { return &s.Metrics.Addr }),
}

func stringSetting(key string, secret bool, field func(*domain.AppSettings) *string) setting {
	return setting{
		key:    key,
		kind:   kindString,
		secret: secret,
		get:    func(s *domain.AppSettings) string { return *field(s) },
		apply: func(s *domain.AppSettings, v string) error {
			*field(s) = v
			return nil
		},
	}
}

func intSetting(key string, field func(*domain.AppSettings) *int) setting {
	return setting{
		key:  key,
		kind: kindInt,
		get:  func(s *domain.AppSettings) string { return strconv.Itoa(*field(s)) },
		apply: func(s *domain.AppSettings, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrInvalidInput, key, v)
			}
			*field(s) = n
			return nil
		},
	}
}

func floatSetting(key string, field func(*domain.AppSettings) *float64) setting {
	return setting{
		key:  key,
		kind: kindFloat,
		get:  func(s *domain.AppSettings) string { return strconv.FormatFloat(*field(s), 'g', -1, 64) },
		apply: func(s *domain.AppSettings, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %s must be a number, got %q", domain.ErrInvalidInput, key, v)
			}
			*field(s) = f
			return nil
		},
	}
}

func durationSetting(key string, field func(*domain.AppSettings) *time.Duration) setting {
	return setting{
		key:  key,
		kind: kindDuration,
		get:  func(s *domain.AppSettings) string { return field(s).String() },
		apply: func(s *domain.AppSettings, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w: %s must be a duration like 30s, got %q", domain.ErrInvalidInput, key, v)
			}
			*field(s) = d
			return nil
		},
	}
}

func lookupSetting(key string) (setting, bool) {
	for _, s := range settingsTable {
		if s.key == key {
			return s, true
		}
	}
	return setting{}, false
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// SetAIValidator enables the provider connectivity checks.
func (s *SettingsService) SetAIValidator(v driven.AIConfigValidator) {
	s.aiValidator = v
}

// Get retrieves current application settings. Stored values that fail to
// parse fall back to their defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()

	for _, def := range settingsTable {
		raw, ok := s.configStore.Get(def.key)
		if !ok {
			continue
		}
		value := strings.TrimSpace(fmt.Sprint(raw))
		if value == "" {
			continue
		}
		if err := def.apply(&settings, value); err != nil {
			logger.Warn("Ignoring %s: %v", def.key, err)
		}
	}

	// A model switch implies its dimension unless one is set explicitly
	if _, ok := s.configStore.Get(keyEmbedDims); !ok {
		if dims, known := domain.EmbeddingDimensions()[settings.Embedding.Model]; known {
			settings.Embedding.Dimensions = dims
		}
	}

	return &settings, nil
}

// Set parses and persists a single setting.
func (s *SettingsService) Set(key, value string) error {
	def, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	value = strings.TrimSpace(value)
	scratch := domain.DefaultAppSettings()
	if err := def.apply(&scratch, value); err != nil {
		return err
	}

	var stored any = value
	switch def.kind {
	case kindInt:
		n, _ := strconv.Atoi(value)
		stored = n
	case kindFloat:
		f, _ := strconv.ParseFloat(value, 64)
		stored = f
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	if s.configStore.Origin(key) == "env" {
		logger.Warn("%s is overridden by the environment; the saved value has no effect", key)
	}
	return nil
}

// Keys returns every recognised setting key in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingsTable))
	for i, def := range settingsTable {
		keys[i] = def.key
	}
	return keys
}

// Describe returns the effective value and origin of every key.
// Secrets are masked.
func (s *SettingsService) Describe() ([]domain.SettingValue, error) {
	settings, err := s.Get()
	if err != nil {
		return nil, err
	}

	values := make([]domain.SettingValue, 0, len(settingsTable))
	for _, def := range settingsTable {
		value := def.get(settings)
		if def.secret && value != "" {
			value = maskSecret(value)
		}
		origin := s.configStore.Origin(def.key)
		if origin == "" {
			origin = "default"
		}
		values = append(values, domain.SettingValue{
			Key:    def.key,
			Value:  value,
			Origin: origin,
			Secret: def.secret,
		})
	}
	return values, nil
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// maskSecret keeps the last four characters of long secrets.
func maskSecret(v string) string {
	if len(v) <= 8 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

// ValidateEmbeddingConfig pings the configured embedding provider.
// Without a validator it always succeeds.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig pings the configured generation provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}
