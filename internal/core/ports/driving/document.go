package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IngestionService registers and removes documents.
type IngestionService interface {
	// Ingest chunks, embeds and indexes a document, replacing any prior version
	// with the same ID. All-or-nothing: on failure no vectors remain committed.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.Document, error)

	// IngestFile normalises a raw file and ingests its text.
	IngestFile(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)

	// Delete removes a document, its chunks and its vectors.
	// Returns domain.ErrDocumentNotFound if missing.
	Delete(ctx context.Context, documentID string) error

	// DeleteByFilename removes the document ingested under a filename.
	DeleteByFilename(ctx context.Context, filename string) error

	// Get retrieves a document with its chunks.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns document summaries, newest upload first.
	List(ctx context.Context) ([]domain.Document, error)
}
