package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// MockAnswerService records questions and returns a canned message.
type MockAnswerService struct {
	mu        sync.Mutex
	Questions []string
	Options   []domain.AnswerOptions
	Message   *domain.Message
	Err       error
}

func (m *MockAnswerService) Answer(_ context.Context, query string, opts domain.AnswerOptions) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Questions = append(m.Questions, query)
	m.Options = append(m.Options, opts)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Message != nil {
		msg := *m.Message
		return &msg, nil
	}
	return &domain.Message{Role: domain.RoleAssistant, Text: "answer to " + query}, nil
}

// MockRetrievalService returns fixed results.
type MockRetrievalService struct {
	Results []domain.RetrievalResult
	Err     error
}

func (m *MockRetrievalService) Retrieve(_ context.Context, _ string, _ int) ([]domain.RetrievalResult, error) {
	return m.Results, m.Err
}

// MockIngestionService keeps documents in memory.
type MockIngestionService struct {
	mu        sync.Mutex
	Documents map[string]*domain.Document
	Ingested  []string
	Deleted   []string
	IngestErr error
	ListErr   error
}

func NewMockIngestionService() *MockIngestionService {
	return &MockIngestionService{Documents: make(map[string]*domain.Document)}
}

func (m *MockIngestionService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IngestErr != nil {
		return nil, m.IngestErr
	}
	id := req.ID
	if id == "" {
		id = "doc-" + req.Filename
	}
	doc := &domain.Document{
		ID:         id,
		Filename:   req.Filename,
		ChunkCount: 1,
		Chunks:     []domain.Chunk{{ID: id + "-0", DocumentID: id, Content: req.Text, End: len(req.Text)}},
	}
	m.Documents[id] = doc
	m.Ingested = append(m.Ingested, req.Filename)
	return doc, nil
}

func (m *MockIngestionService) IngestFile(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	return m.Ingest(ctx, domain.IngestRequest{Filename: raw.Filename, Text: string(raw.Content)})
}

func (m *MockIngestionService) Delete(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Documents[documentID]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(m.Documents, documentID)
	m.Deleted = append(m.Deleted, documentID)
	return nil
}

func (m *MockIngestionService) DeleteByFilename(ctx context.Context, filename string) error {
	m.mu.Lock()
	var id string
	for _, d := range m.Documents {
		if d.Filename == filename {
			id = d.ID
		}
	}
	m.mu.Unlock()
	if id == "" {
		return domain.ErrNotFound
	}
	return m.Delete(ctx, id)
}

func (m *MockIngestionService) Get(_ context.Context, documentID string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.Documents[documentID]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (m *MockIngestionService) List(_ context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	docs := make([]domain.Document, 0, len(m.Documents))
	for _, d := range m.Documents {
		docs = append(docs, *d)
	}
	return docs, nil
}

func (m *MockIngestionService) ingested() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Ingested...)
}

func (m *MockIngestionService) deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Deleted...)
}

// MockHealthService returns a fixed report.
type MockHealthService struct {
	Report domain.HealthReport
}

func (m *MockHealthService) Check(_ context.Context) domain.HealthReport {
	return m.Report
}

// MockSettingsService stores values in a map.
type MockSettingsService struct {
	Values      map[string]string
	Secrets     map[string]bool
	SetCalls    []string
	SetErr      error
	ValidateErr error
	PingErr     error
}

func NewMockSettingsService() *MockSettingsService {
	return &MockSettingsService{
		Values: map[string]string{
			"retrieval.top_k":    "5",
			"embedding.provider": "hash",
			"llm.provider":       "ollama",
			"llm.api_key":        "",
		},
		Secrets: map[string]bool{"llm.api_key": true, "embedding.api_key": true},
	}
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	s := domain.DefaultAppSettings()
	return &s, nil
}

func (m *MockSettingsService) Set(key, value string) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.Values[key] = value
	m.SetCalls = append(m.SetCalls, key)
	return nil
}

func (m *MockSettingsService) Keys() []string {
	return []string{"retrieval.top_k", "embedding.provider", "llm.provider", "llm.api_key"}
}

func (m *MockSettingsService) Describe() ([]domain.SettingValue, error) {
	values := make([]domain.SettingValue, 0, len(m.Values))
	for _, k := range m.Keys() {
		values = append(values, domain.SettingValue{
			Key:    k,
			Value:  m.Values[k],
			Origin: "default",
			Secret: m.Secrets[k],
		})
	}
	return values, nil
}

func (m *MockSettingsService) Validate() error {
	return m.ValidateErr
}

func (m *MockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *MockSettingsService) ValidateEmbeddingConfig() error {
	return m.PingErr
}

func (m *MockSettingsService) ValidateLLMConfig() error {
	return m.PingErr
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	answer    *MockAnswerService
	retrieval *MockRetrievalService
	ingestion *MockIngestionService
	health    *MockHealthService
	settings  *MockSettingsService
}

// setupTestServices installs fresh mocks and returns a cleanup that clears
// them again.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		answer:    &MockAnswerService{},
		retrieval: &MockRetrievalService{},
		ingestion: NewMockIngestionService(),
		health:    &MockHealthService{},
		settings:  NewMockSettingsService(),
	}
	SetServices(Services{
		Answer:     ts.answer,
		Retrieval:  ts.retrieval,
		Ingestion:  ts.ingestion,
		Health:     ts.health,
		Settings:   ts.settings,
		Extensions: []string{".txt", ".md"},
	})
	return ts, func() { SetServices(Services{}) }
}

// resetFlags restores every flag variable to its default.
func resetFlags() {
	verbose = false
	askDebug, askTopK, askJSON = false, 0, false
	chatDebug = false
	documentListJSON, deleteFilename = false, ""
	healthJSON = false
	ingestText, ingestName, ingestID = "", "", ""
	watchSkipInitial = false
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	var out, errOut bytes.Buffer
	var in io.Reader = strings.NewReader(stdin)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(in)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags()
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

var errBoom = errors.New("boom")
