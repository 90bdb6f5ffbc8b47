package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// compensationTimeout bounds cleanup that must run after the caller gave up.
const compensationTimeout = 30 * time.Second

// IngestionConfig fixes the collection every document is written to.
type IngestionConfig struct {
	// Collection is the vector store namespace.
	Collection string

	// Dimensions is the expected embedding length.
	Dimensions int
}

// IngestionService turns documents into committed, searchable chunks.
//
// Each ingestion run writes its points under a fresh version. The run becomes
// visible only when the document store commits that version; the points of
// the version it replaced are deleted afterwards. No lock is held while the
// embedder or vector store is called.
type IngestionService struct {
	chunker    *chunker.Processor
	embedder   driven.Embedder
	vectors    driven.VectorStore
	docs       driven.DocumentStore
	normalise  driven.NormaliserRegistry
	metrics    driven.Metrics
	collection string
	dimensions int

	locks *keyedMutex

	ensureMu sync.Mutex
	ensured  bool

	now        func() time.Time
	newVersion func() string
}

// NewIngestionService creates an ingestion service.
// Returns domain.ErrConfiguration when a collaborator or setting is missing.
func NewIngestionService(
	chunks *chunker.Processor,
	embedder driven.Embedder,
	vectors driven.VectorStore,
	docs driven.DocumentStore,
	cfg IngestionConfig,
) (*IngestionService, error) {
	if chunks == nil || embedder == nil || vectors == nil || docs == nil {
		return nil, fmt.Errorf("%w: ingestion requires a chunker, embedder, vector store and document store",
			domain.ErrConfiguration)
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: collection must be set", domain.ErrConfiguration)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: embedding dimensions must be positive", domain.ErrConfiguration)
	}

	return &IngestionService{
		chunker:    chunks,
		embedder:   embedder,
		vectors:    vectors,
		docs:       docs,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
		locks:      newKeyedMutex(),
		now:        time.Now,
		newVersion: newVersion,
	}, nil
}

// SetNormalisers enables IngestFile.
func (s *IngestionService) SetNormalisers(registry driven.NormaliserRegistry) {
	s.normalise = registry
}

// SetMetrics enables outcome recording.
func (s *IngestionService) SetMetrics(m driven.Metrics) {
	s.metrics = m
}

// Ingest chunks, embeds and indexes a document.
//
//nolint:gocyclo // Pipeline with necessary sequential steps
func (s *IngestionService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.Document, error) {
	logger.Section("Ingestion")
	defer logger.Timed("ingestion")()

	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		return nil, s.failed("invalid", fmt.Errorf("%w: filename is required", domain.ErrInvalidInput))
	}

	docID := req.ID
	if docID == "" {
		docID = DocumentIDFor(filename)
	}
	version := s.newVersion()
	logger.Debug("Document %s (%s) version %s", docID, filename, version)

	// 1. Chunk
	chunks := s.chunker.Chunks(docID, req.Text)
	if len(chunks) == 0 {
		return nil, s.failed("empty", fmt.Errorf("ingest %s: %w", filename, domain.ErrEmptyDocument))
	}
	logger.Debug("%s: %d chunks (size=%d overlap=%d)", s.chunker.Name(), len(chunks), s.chunker.ChunkSize(), s.chunker.Overlap())

	// 2. Embed every chunk before touching the vector store
	if err := s.ensureCollection(ctx); err != nil {
		return nil, s.failed("store", fmt.Errorf("ingest %s: %w", filename, err))
	}

	uploadedAt := s.now().UTC()
	sequence := uploadedAt.UnixNano()
	outline := parseOutline(req.Metadata[headersMetadataKey])
	points := make([]domain.VectorPoint, len(chunks))
	for i := range chunks {
		chunks[i].Headers = relevantHeaders(chunks[i].Content, outline)
		vec, err := s.embed(ctx, chunks[i].Content)
		if err != nil {
			return nil, s.failed("embedding", fmt.Errorf("ingest %s: embed chunk %d: %w", filename, i, err))
		}
		chunks[i].ID = PointID(docID, version, i)
		chunks[i].Embedding = vec
		points[i] = domain.VectorPoint{
			ID:     chunks[i].ID,
			Vector: vec,
			Payload: domain.ChunkPayload{
				DocumentID: docID,
				Filename:   filename,
				Version:    version,
				ChunkIndex: chunks[i].Index,
				Content:    chunks[i].Content,
				Start:      chunks[i].Start,
				End:        chunks[i].End,
				Headers:    chunks[i].Headers,
				Sequence:   sequence,
			},
		}
	}

	// 3. Write the new version. It stays invisible until committed.
	if err := s.vectors.Upsert(ctx, s.collection, points); err != nil {
		err = fmt.Errorf("ingest %s: upsert vectors: %w", filename, err)
		return nil, s.failed("store", s.rollback(ctx, docID, version, err))
	}

	// 4. Commit metadata, making the new version active
	doc := &domain.Document{
		ID:         docID,
		Filename:   filename,
		Version:    version,
		ChunkCount: len(chunks),
		Metadata:   req.Metadata,
		UploadedAt: uploadedAt,
	}
	unlock := s.locks.Lock(docID)
	previous, err := s.docs.CommitDocument(ctx, doc, chunks)
	unlock()
	if err != nil {
		err = fmt.Errorf("ingest %s: commit metadata: %w", filename, err)
		return nil, s.failed("metadata", s.rollback(ctx, docID, version, err))
	}

	// 5. Drop the superseded version and anything earlier runs failed to
	// clean up. Those points are already filtered out of retrieval, so a
	// failure here is recorded for a later retry instead of failing the run.
	s.retryPending(ctx, docID)
	if previous != "" && previous != version {
		logger.Debug("Replacing version %s", previous)
		if err := s.deleteVersion(ctx, docID, previous); err != nil {
			logger.Warn("Failed to delete superseded vectors of %s version %s: %v", docID, previous, err)
		}
	}

	if s.metrics != nil {
		s.metrics.DocumentIngested(len(chunks))
	}
	logger.Info("Ingested %s: %d chunks", filename, len(chunks))

	doc.Chunks = chunks
	return doc, nil
}

// IngestFile normalises an uploaded file and ingests its text.
func (s *IngestionService) IngestFile(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: no file provided", domain.ErrInvalidInput)
	}
	if s.normalise == nil {
		return nil, fmt.Errorf("%w: no normalisers configured", domain.ErrConfiguration)
	}

	result, err := s.normalise.Normalise(ctx, raw)
	if err != nil {
		return nil, s.failed("normalise", fmt.Errorf("normalise %s: %w", raw.Filename, err))
	}

	return s.Ingest(ctx, domain.IngestRequest{
		Filename: raw.Filename,
		Text:     result.Text,
		Metadata: result.Metadata,
	})
}

// Delete removes a document and its vectors.
// The document disappears from retrieval as soon as its metadata is gone.
// A failed vector delete is recorded and retried later.
func (s *IngestionService) Delete(ctx context.Context, documentID string) error {
	logger.Section("Delete Document")

	unlock := s.locks.Lock(documentID)
	version, err := s.docs.DeleteDocument(ctx, documentID)
	unlock()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.retryPending(ctx, documentID)
		}
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}

	s.retryPending(ctx, documentID)
	if err := s.deleteVersion(ctx, documentID, version); err != nil {
		return fmt.Errorf("delete vectors of %s: %w", documentID, err)
	}

	logger.Info("Deleted document %s (version %s)", documentID, version)
	return nil
}

// Reconcile retries every recorded vector delete and returns how many
// succeeded. Deletes that fail again stay recorded.
func (s *IngestionService) Reconcile(ctx context.Context) (int, error) {
	pending, err := s.docs.PendingDeletes(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list pending deletes: %w", err)
	}

	resolved := 0
	var errs []error
	for _, p := range pending {
		if err := s.resolve(ctx, p); err != nil {
			errs = append(errs, err)
			continue
		}
		resolved++
	}
	if resolved > 0 {
		logger.Info("Removed vectors of %d stale document versions", resolved)
	}
	return resolved, errors.Join(errs...)
}

// DeleteByFilename removes the document stored under filename.
func (s *IngestionService) DeleteByFilename(ctx context.Context, filename string) error {
	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	for i := range docs {
		if docs[i].Filename == filename {
			return s.Delete(ctx, docs[i].ID)
		}
	}
	return fmt.Errorf("delete %s: %w", filename, domain.ErrDocumentNotFound)
}

// Get retrieves a document with its chunks.
func (s *IngestionService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}
	chunks, err := s.docs.GetChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks of %s: %w", documentID, err)
	}
	doc.Chunks = chunks
	return doc, nil
}

// List returns all documents, newest upload first.
func (s *IngestionService) List(ctx context.Context) ([]domain.Document, error) {
	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// embed embeds one text and checks its length against the collection.
func (s *IngestionService) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, asEmbeddingError(err)
	}
	if len(vec) != s.dimensions {
		return nil, fmt.Errorf("%w: got %d, collection expects %d", domain.ErrDimensionMismatch, len(vec), s.dimensions)
	}
	return vec, nil
}

// ensureCollection creates the collection once per service. The store call
// runs outside ensureMu, so a slow backend only delays the callers that
// need it. Concurrent first calls may each issue EnsureCollection, which is
// idempotent.
func (s *IngestionService) ensureCollection(ctx context.Context) error {
	s.ensureMu.Lock()
	done := s.ensured
	s.ensureMu.Unlock()
	if done {
		return nil
	}

	if err := s.vectors.EnsureCollection(ctx, s.collection, s.dimensions); err != nil {
		return fmt.Errorf("ensure collection %s: %w", s.collection, err)
	}

	s.ensureMu.Lock()
	s.ensured = true
	s.ensureMu.Unlock()
	return nil
}

// rollback removes the points written by a failed run. It runs even if ctx
// was cancelled. When cleanup also fails the delete is recorded for a later
// retry and the returned error wraps domain.ErrInconsistentState.
func (s *IngestionService) rollback(ctx context.Context, docID, version string, cause error) error {
	logger.Warn("Rolling back %s version %s: %v", docID, version, cause)

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := s.deleteVersion(cleanupCtx, docID, version); err != nil {
		logger.Error("Rollback of %s version %s failed, vectors orphaned: %v", docID, version, err)
		return fmt.Errorf("%w: document %s version %s: %w (rollback: %w)",
			domain.ErrInconsistentState, docID, version, cause, err)
	}
	return cause
}

// deleteVersion removes the points of one document version. On failure the
// delete is recorded in the document store so a later run can finish it.
func (s *IngestionService) deleteVersion(ctx context.Context, docID, version string) error {
	filter := domain.VectorFilter{DocumentID: docID, Version: version}
	err := s.vectors.Delete(ctx, s.collection, filter)
	if err == nil {
		return nil
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if recErr := s.docs.RecordPendingDelete(recordCtx, docID, version); recErr != nil {
		logger.Error("Could not record pending delete of %s version %s: %v", docID, version, recErr)
	}
	return err
}

// retryPending retries the recorded deletes of one document. Failures are
// logged and stay recorded.
func (s *IngestionService) retryPending(ctx context.Context, docID string) {
	pending, err := s.docs.PendingDeletes(ctx, docID)
	if err != nil {
		logger.Warn("Listing pending deletes of %s: %v", docID, err)
		return
	}
	for _, p := range pending {
		if err := s.resolve(ctx, p); err != nil {
			logger.Warn("%v", err)
		}
	}
}

// resolve deletes the points of a recorded delete and forgets the record.
func (s *IngestionService) resolve(ctx context.Context, p domain.PendingDelete) error {
	filter := domain.VectorFilter{DocumentID: p.DocumentID, Version: p.Version}
	if err := s.vectors.Delete(ctx, s.collection, filter); err != nil {
		return fmt.Errorf("retry delete of %s version %s: %w", p.DocumentID, p.Version, err)
	}
	if err := s.docs.ResolvePendingDelete(ctx, p.DocumentID, p.Version); err != nil {
		return fmt.Errorf("resolve pending delete of %s version %s: %w", p.DocumentID, p.Version, err)
	}
	logger.Debug("Removed stale vectors of %s version %s", p.DocumentID, p.Version)
	return nil
}

func (s *IngestionService) failed(reason string, err error) error {
	if s.metrics != nil {
		if errors.Is(err, domain.ErrInconsistentState) {
			reason = "inconsistent"
		}
		s.metrics.IngestionFailed(reason)
	}
	return err
}

// asEmbeddingError makes sure err carries a domain sentinel.
func asEmbeddingError(err error) error {
	switch {
	case errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrDimensionMismatch),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
}
