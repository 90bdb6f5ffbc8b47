package driving

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Set updates a single setting by dotted key and persists it.
	Set(key, value string) error

	// Keys returns every recognised setting key in display order.
	Keys() []string

	// Describe returns the current value and origin of each key.
	Describe() ([]domain.SettingValue, error)

	// Validate checks the current settings.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig checks the embedding provider is reachable.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig checks the LLM provider is reachable.
	ValidateLLMConfig() error
}
