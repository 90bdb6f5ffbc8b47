// Package ollama provides a generation adapter using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure LLMService implements the interfaces.
var (
	_ driven.Generator    = (*LLMService)(nil)
	_ driven.Pinger       = (*LLMService)(nil)
	_ driven.ModelEnsurer = (*LLMService)(nil)
)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 180 * time.Second

	// DefaultPullTimeout bounds a model download when the caller sets no deadline.
	DefaultPullTimeout = 30 * time.Minute
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout is the HTTP client timeout (default: 180s). The caller's
	// context deadline applies as well.
	Timeout time.Duration
}

// LLMService generates answers using Ollama.
type LLMService struct {
	client  *http.Client
	baseURL string
	model   string
}

// tagsResponse is the Ollama /api/tags response format.
type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// pullRequest is the Ollama /api/pull request format.
type pullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

// pullResponse is the final /api/pull status.
type pullResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}
}

// Generate produces a completion for prompt with streaming disabled.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	reqBody := generateRequest{
		Model:  s.model,
		Prompt: prompt,
		Stream: false,
		Options: &options{
			NumPredict:  opts.MaxTokens,
			Temperature: llm.Temperature(opts.Temperature),
			Stop:        opts.StopWords,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", llm.TransportError(ctx, "ollama", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", llm.StatusError("ollama", resp)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", llm.TransportError(ctx, "ollama", fmt.Errorf("decode response: %w", err))
	}
	if genResp.Error != "" {
		return "", fmt.Errorf("%w: ollama: %s", domain.ErrGenerationUnavailable, genResp.Error)
	}

	return strings.TrimSpace(genResp.Response), nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks that Ollama is reachable and has the configured model.
// It lists local models via /api/tags without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	ok, err := s.HasModel(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: ollama: model %q is not pulled, run 'ollama pull %s'",
			domain.ErrGenerationUnavailable, s.model, s.model)
	}
	return nil
}

// HasModel reports whether the configured model is available locally.
// A model configured without a tag matches its ":latest" tag.
func (s *LLMService) HasModel(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return false, fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: ollama: ping failed: %w", domain.ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, llm.StatusError("ollama", resp)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false, llm.TransportError(ctx, "ollama", fmt.Errorf("decode tags: %w", err))
	}
	for _, m := range tags.Models {
		if sameModel(m.Name, s.model) || sameModel(m.Model, s.model) {
			return true, nil
		}
	}
	return false, nil
}

// EnsureModel pulls the configured model when Ollama does not have it yet.
// The pull blocks until the download completes or ctx ends.
func (s *LLMService) EnsureModel(ctx context.Context) error {
	ok, err := s.HasModel(ctx)
	if err != nil || ok {
		return err
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultPullTimeout)
		defer cancel()
	}
	logger.Info("Pulling Ollama model %s", s.model)

	body, err := json.Marshal(pullRequest{Model: s.model, Stream: false})
	if err != nil {
		return fmt.Errorf("marshal pull request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Downloads outlast the generation timeout, so only ctx bounds the pull.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return llm.TransportError(ctx, "ollama", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return llm.StatusError("ollama", resp)
	}

	var pulled pullResponse
	if err := json.NewDecoder(resp.Body).Decode(&pulled); err != nil {
		return llm.TransportError(ctx, "ollama", fmt.Errorf("decode pull response: %w", err))
	}
	if pulled.Error != "" {
		return fmt.Errorf("%w: ollama: pull %s: %s", domain.ErrGenerationUnavailable, s.model, pulled.Error)
	}
	logger.Info("Pulled Ollama model %s", s.model)
	return nil
}

func sameModel(available, want string) bool {
	if available == "" {
		return false
	}
	if available == want {
		return true
	}
	return !strings.Contains(want, ":") && available == want+":latest"
}
