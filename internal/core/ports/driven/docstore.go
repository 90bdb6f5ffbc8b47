package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentStore persists document and chunk metadata.
// Backed by SQLite or memory. It is the source of truth for which
// version of each document is active.
type DocumentStore interface {
	// CommitDocument atomically replaces the document and its chunks.
	// Returns the version that was active before, or "" for a new document.
	CommitDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (string, error)

	// GetDocument retrieves a document by ID, without chunks.
	// Returns domain.ErrNotFound if missing.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// DeleteDocument removes a document and its chunks.
	// Returns the version that was active, or domain.ErrNotFound.
	DeleteDocument(ctx context.Context, id string) (string, error)

	// ListDocuments returns all documents ordered by upload time, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// ActiveVersions maps each known document ID to its active version.
	// Unknown IDs are omitted.
	ActiveVersions(ctx context.Context, ids []string) (map[string]string, error)

	// CountDocuments returns the number of documents.
	CountDocuments(ctx context.Context) (int, error)

	// RecordPendingDelete remembers that the points of a document version
	// still have to be deleted. Recording the same pair twice is a no-op.
	RecordPendingDelete(ctx context.Context, documentID, version string) error

	// PendingDeletes lists recorded deletes, oldest first. An empty
	// documentID lists them for every document.
	PendingDeletes(ctx context.Context, documentID string) ([]domain.PendingDelete, error)

	// ResolvePendingDelete forgets a recorded delete once it succeeded.
	ResolvePendingDelete(ctx context.Context, documentID, version string) error
}
