package file

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// EnvPrefix prefixes every environment override.
// "llm.model" is overridden by SERCHA_RAG_LLM_MODEL.
const EnvPrefix = "SERCHA_RAG_"

// Origins reported by ConfigStore.Origin.
const (
	OriginEnv  = "env"
	OriginFile = "file"
)

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
//
// Values resolve in this order: process environment, the .env file next to
// config.toml, then config.toml itself. Set only ever writes config.toml.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	envPath  string
	data     map[string]any
	dotenv   map[string]string

	lookupEnv func(string) (string, bool)
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.sercha-rag/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".sercha-rag")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath:  filepath.Join(configDir, "config.toml"),
		envPath:   filepath.Join(configDir, ".env"),
		data:      make(map[string]any),
		dotenv:    make(map[string]string),
		lookupEnv: os.LookupEnv,
	}

	if err := s.Load(); err != nil {
		return nil, err
	}

	return s, nil
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	name := strings.NewReplacer(".", "_", "-", "_").Replace(key)
	return EnvPrefix + strings.ToUpper(name)
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	if val, ok := s.envValue(key); ok {
		return val, true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// envValue looks key up in the process environment, then the .env file.
// Empty variables count as unset.
func (s *ConfigStore) envValue(key string) (string, bool) {
	name := EnvName(key)
	if val, ok := s.lookupEnv(name); ok && val != "" {
		return val, true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.dotenv[name]
	return val, ok && val != ""
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	val, ok := s.Get(key)
	if !ok {
		return ""
	}

	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}

// GetInt retrieves an integer configuration value.
// Environment values are parsed.
func (s *ConfigStore) GetInt(key string) int {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	// TOML integers are parsed as int64
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// GetFloat retrieves a floating point configuration value.
// Integers are widened.
func (s *ConfigStore) GetFloat(key string) float64 {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	val, ok := s.Get(key)
	if !ok {
		return false
	}

	switch v := val.(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	default:
		return false
	}
}

// Origin reports where key's value comes from.
func (s *ConfigStore) Origin(key string) string {
	if _, ok := s.envValue(key); ok {
		return OriginEnv
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.data[key]; ok {
		return OriginFile
	}
	return ""
}

// Set stores a configuration value and persists immediately.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.save()
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes configuration to the TOML file (caller must hold lock).
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(s.data)
	if err != nil {
		return err
	}

	// Write with restricted permissions
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads config.toml and the optional .env file.
// Missing files are not an error.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dotenv, err := godotenv.Read(s.envPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		dotenv = make(map[string]string)
	case err != nil:
		return err
	}
	s.dotenv = dotenv

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = make(map[string]any)
			return nil
		}
		return err
	}

	var loaded map[string]any
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return err
	}

	if loaded == nil {
		loaded = make(map[string]any)
	}

	// Flatten nested maps into dot-notation keys for easier access
	s.data = flattenMap(loaded, "")
	return nil
}

// flattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Dir returns the directory holding config.toml.
func (s *ConfigStore) Dir() string {
	return filepath.Dir(s.filePath)
}
