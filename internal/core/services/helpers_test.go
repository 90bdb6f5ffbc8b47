package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	vectormemory "github.com/custodia-labs/sercha-rag/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
)

const (
	testCollection = "documents"
	testDims       = 128
)

var errBoom = errors.New("boom")

// --- Mock implementations ---

// mockEmbedder wraps the hashing embedder with failure injection.
type mockEmbedder struct {
	inner *hash.EmbeddingService

	mu        sync.Mutex
	calls     int
	failAfter int // fail every call after this many successes; <0 never fails
	err       error
	dims      int // overrides the vector length when positive
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{inner: hash.NewEmbeddingService(hash.Config{Dimensions: testDims}), failAfter: -1}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	calls := m.calls
	m.mu.Unlock()

	if m.failAfter >= 0 && calls > m.failAfter {
		return nil, m.err
	}
	if m.dims > 0 {
		return make([]float32, m.dims), nil
	}
	return m.inner.Embed(ctx, text)
}

func (m *mockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockVectorStore wraps the memory vector store with failure injection.
type mockVectorStore struct {
	*vectormemory.Store

	mu        sync.Mutex
	upsertErr error
	deleteErr error
	queryErr  error
	deletes   []domain.VectorFilter

	// ensureGate, when set, blocks the first EnsureCollection call until it
	// is closed or the context ends.
	ensureGate  chan struct{}
	ensureCalls int
}

func newMockVectorStore() *mockVectorStore {
	return &mockVectorStore{Store: vectormemory.New()}
}

func (m *mockVectorStore) EnsureCollection(ctx context.Context, collection string, dimensions int) error {
	m.mu.Lock()
	m.ensureCalls++
	first := m.ensureCalls == 1
	gate := m.ensureGate
	m.mu.Unlock()

	if first && gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.Store.EnsureCollection(ctx, collection, dimensions)
}

func (m *mockVectorStore) Upsert(ctx context.Context, collection string, points []domain.VectorPoint) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	return m.Store.Upsert(ctx, collection, points)
}

func (m *mockVectorStore) Delete(ctx context.Context, collection string, filter domain.VectorFilter) error {
	m.mu.Lock()
	m.deletes = append(m.deletes, filter)
	err := m.deleteErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.Store.Delete(ctx, collection, filter)
}

func (m *mockVectorStore) Query(
	ctx context.Context, collection string, vector []float32, k int, filter domain.VectorFilter,
) ([]domain.VectorHit, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.Store.Query(ctx, collection, vector, k, filter)
}

// mockDocumentStore wraps the memory document store with failure injection.
type mockDocumentStore struct {
	*memory.DocumentStore
	commitErr error
	countErr  error
}

func (m *mockDocumentStore) CommitDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (string, error) {
	if m.commitErr != nil {
		return "", m.commitErr
	}
	return m.DocumentStore.CommitDocument(ctx, doc, chunks)
}

func (m *mockDocumentStore) CountDocuments(ctx context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.DocumentStore.CountDocuments(ctx)
}

// mockGenerator records prompts and returns a canned reply.
type mockGenerator struct {
	mu       sync.Mutex
	prompts  []string
	reply    string
	err      error
	delay    time.Duration
	ctxErrs  []error
	blocking bool // wait for the context to expire
	onCall   func()
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.onCall != nil {
		m.onCall()
	}
	if m.blocking {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// mockMetrics counts recorded outcomes.
type mockMetrics struct {
	mu          sync.Mutex
	ingested    []int
	failures    []string
	answers     []domain.AnswerState
	failedStage []domain.AnswerState
	dropped     int
}

func (m *mockMetrics) DocumentIngested(chunks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested = append(m.ingested, chunks)
}

func (m *mockMetrics) IngestionFailed(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, reason)
}

func (m *mockMetrics) AnswerCompleted(state, failed domain.AnswerState, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, state)
	m.failedStage = append(m.failedStage, failed)
}

func (m *mockMetrics) ChunksDropped(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped += n
}

// mockNormalisers returns the raw bytes as text.
type mockNormalisers struct {
	err error
}

func (m *mockNormalisers) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &driven.NormaliseResult{Text: string(raw.Content), Metadata: map[string]string{"source": "mock"}}, nil
}

func (m *mockNormalisers) SupportedExtensions() []string {
	return []string{".txt"}
}

// --- Fixtures ---

type fixture struct {
	embedder  *mockEmbedder
	vectors   *mockVectorStore
	docs      *mockDocumentStore
	generator *mockGenerator
	metrics   *mockMetrics
	ingestion *IngestionService
	retriever *Retriever
	answers   *AnswerOrchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		embedder:  newMockEmbedder(),
		vectors:   newMockVectorStore(),
		docs:      &mockDocumentStore{DocumentStore: memory.NewDocumentStore()},
		generator: &mockGenerator{reply: "  Paris.  "},
		metrics:   &mockMetrics{},
	}

	chunks, err := chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(20))
	require.NoError(t, err)

	f.ingestion, err = NewIngestionService(chunks, f.embedder, f.vectors, f.docs, IngestionConfig{
		Collection: testCollection,
		Dimensions: testDims,
	})
	require.NoError(t, err)
	f.ingestion.SetMetrics(f.metrics)
	f.ingestion.SetNormalisers(&mockNormalisers{})

	f.retriever, err = NewRetriever(f.embedder, f.vectors, f.docs, RetrieverConfig{
		Collection: testCollection,
		Dimensions: testDims,
		TopK:       3,
	})
	require.NoError(t, err)

	f.answers, err = NewAnswerOrchestrator(f.retriever, NewPromptAssembler(4000), f.generator, f.docs, AnswerConfig{
		TopK:              3,
		GenerationTimeout: time.Second,
	})
	require.NoError(t, err)
	f.answers.SetMetrics(f.metrics)

	return f
}

func (f *fixture) ingest(t *testing.T, filename, text string) *domain.Document {
	t.Helper()
	doc, err := f.ingestion.Ingest(context.Background(), domain.IngestRequest{Filename: filename, Text: text})
	require.NoError(t, err)
	return doc
}
