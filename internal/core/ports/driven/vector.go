package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// VectorStore is the client for an external vector database.
// Similarity is cosine for every implementation and is fixed per collection.
//
// Errors wrap domain.ErrStoreUnavailable on transport failure and
// domain.ErrDimensionMismatch when a vector does not fit the collection.
type VectorStore interface {
	// EnsureCollection creates the collection if missing, or verifies its dimension.
	EnsureCollection(ctx context.Context, collection string, dimensions int) error

	// Upsert inserts or replaces points by ID.
	Upsert(ctx context.Context, collection string, points []domain.VectorPoint) error

	// Delete removes every point matching the filter.
	Delete(ctx context.Context, collection string, filter domain.VectorFilter) error

	// Query returns up to k nearest points ordered by descending score.
	// An empty collection yields an empty slice, not an error.
	Query(ctx context.Context, collection string, vector []float32, k int, filter domain.VectorFilter) ([]domain.VectorHit, error)

	// Close releases resources.
	Close() error
}
