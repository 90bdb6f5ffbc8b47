package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	message  *domain.Message
	err      error
	lastOpts domain.AnswerOptions
}

func (m *mockAnswerService) Answer(_ context.Context, _ string, opts domain.AnswerOptions) (*domain.Message, error) {
	m.lastOpts = opts
	return m.message, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results []domain.RetrievalResult
	err     error
	lastK   int
}

func (m *mockRetrievalService) Retrieve(_ context.Context, _ string, k int) ([]domain.RetrievalResult, error) {
	m.lastK = k
	return m.results, m.err
}

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	documents  []domain.Document
	document   *domain.Document
	err        error
	lastReq    domain.IngestRequest
	deletedID  string
	deletedFor string
}

func (m *mockIngestionService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.Document, error) {
	m.lastReq = req
	return m.document, m.err
}

func (m *mockIngestionService) IngestFile(_ context.Context, _ *domain.RawDocument) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockIngestionService) Delete(_ context.Context, id string) error {
	m.deletedID = id
	return m.err
}

func (m *mockIngestionService) DeleteByFilename(_ context.Context, filename string) error {
	m.deletedFor = filename
	return m.err
}

func (m *mockIngestionService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockIngestionService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

// mockHealthService is a mock implementation of driving.HealthService.
type mockHealthService struct {
	report domain.HealthReport
}

func (m *mockHealthService) Check(_ context.Context) domain.HealthReport {
	return m.report
}
