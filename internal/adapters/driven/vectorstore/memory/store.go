// Package memory provides an in-process vector store for tests and ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

type collection struct {
	dimensions int
	points     map[string]domain.VectorPoint
}

// Store keeps vectors in maps keyed by collection and point ID.
// Queries are brute-force cosine similarity.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	closed      bool
}

// New creates an empty store.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// EnsureCollection creates the collection or verifies its dimension.
func (s *Store) EnsureCollection(_ context.Context, name string, dimensions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: store closed", domain.ErrStoreUnavailable)
	}
	if c, ok := s.collections[name]; ok {
		if c.dimensions != dimensions {
			return fmt.Errorf("%w: collection %q has %d dimensions, want %d",
				domain.ErrDimensionMismatch, name, c.dimensions, dimensions)
		}
		return nil
	}
	s.collections[name] = &collection{dimensions: dimensions, points: make(map[string]domain.VectorPoint)}
	return nil
}

// Upsert inserts or replaces points. The whole batch is rejected on a dimension mismatch.
func (s *Store) Upsert(_ context.Context, name string, points []domain.VectorPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(name)
	if err != nil {
		return err
	}
	for _, p := range points {
		if len(p.Vector) != c.dimensions {
			return fmt.Errorf("%w: point %s has %d dimensions, collection %q has %d",
				domain.ErrDimensionMismatch, p.ID, len(p.Vector), name, c.dimensions)
		}
	}
	for _, p := range points {
		p.Vector = slices.Clone(p.Vector)
		c.points[p.ID] = p
	}
	return nil
}

// Delete removes every point matching the filter.
func (s *Store) Delete(_ context.Context, name string, filter domain.VectorFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: store closed", domain.ErrStoreUnavailable)
	}
	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	for id, p := range c.points {
		if filter.Matches(p.Payload) {
			delete(c.points, id)
		}
	}
	return nil
}

// Query returns the k points most similar to vector.
func (s *Store) Query(
	_ context.Context, name string, vector []float32, k int, filter domain.VectorFilter,
) ([]domain.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("%w: store closed", domain.ErrStoreUnavailable)
	}
	c, ok := s.collections[name]
	if !ok || k <= 0 {
		return []domain.VectorHit{}, nil
	}
	if len(vector) != c.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %q has %d",
			domain.ErrDimensionMismatch, len(vector), name, c.dimensions)
	}

	hits := make([]domain.VectorHit, 0, len(c.points))
	for id, p := range c.points {
		if !filter.Matches(p.Payload) {
			continue
		}
		hits = append(hits, domain.VectorHit{
			ID:      id,
			Score:   vectorstore.Cosine(vector, p.Vector),
			Payload: p.Payload,
		})
	}
	return vectorstore.TopK(hits, k), nil
}

// Count returns the number of points in a collection.
func (s *Store) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.points)
	}
	return 0
}

// Close marks the store unusable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// collection returns the named collection. Caller must hold the lock.
func (s *Store) collection(name string) (*collection, error) {
	if s.closed {
		return nil, fmt.Errorf("%w: store closed", domain.ErrStoreUnavailable)
	}
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	return c, nil
}
