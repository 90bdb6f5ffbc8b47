package tui

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// MockAnswerService implements driving.AnswerService for testing.
type MockAnswerService struct {
	AnswerFunc func(ctx context.Context, question string, opts domain.AnswerOptions) (*domain.Message, error)
}

func (m *MockAnswerService) Answer(
	ctx context.Context, question string, opts domain.AnswerOptions,
) (*domain.Message, error) {
	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, question, opts)
	}
	return &domain.Message{Role: domain.RoleAssistant, Text: "answer", Sources: []string{"a.md"}}, nil
}

// MockIngestionService implements driving.IngestionService for testing.
type MockIngestionService struct {
	Docs []domain.Document
}

func (m *MockIngestionService) Ingest(context.Context, domain.IngestRequest) (*domain.Document, error) {
	return nil, nil
}

func (m *MockIngestionService) IngestFile(context.Context, *domain.RawDocument) (*domain.Document, error) {
	return nil, nil
}

func (m *MockIngestionService) Delete(context.Context, string) error { return nil }

func (m *MockIngestionService) DeleteByFilename(context.Context, string) error { return nil }

func (m *MockIngestionService) Get(_ context.Context, id string) (*domain.Document, error) {
	for i := range m.Docs {
		if m.Docs[i].ID == id {
			doc := m.Docs[i]
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockIngestionService) List(context.Context) ([]domain.Document, error) {
	return m.Docs, nil
}

// MockSettingsService implements driving.SettingsService for testing.
type MockSettingsService struct{}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	s := domain.DefaultAppSettings()
	return &s, nil
}

func (m *MockSettingsService) Set(string, string) error { return nil }

func (m *MockSettingsService) Keys() []string { return []string{"retrieval.top_k"} }

func (m *MockSettingsService) Describe() ([]domain.SettingValue, error) {
	return []domain.SettingValue{{Key: "retrieval.top_k", Value: "5", Origin: "default"}}, nil
}

func (m *MockSettingsService) Validate() error { return nil }

func (m *MockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *MockSettingsService) ValidateEmbeddingConfig() error { return nil }

func (m *MockSettingsService) ValidateLLMConfig() error { return nil }
