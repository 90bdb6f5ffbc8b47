package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
	pending   []domain.PendingDelete
	now       func() time.Time
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
		now:       time.Now,
	}
}

// CommitDocument replaces the document and its chunks in one step.
func (s *DocumentStore) CommitDocument(_ context.Context, doc *domain.Document, chunks []domain.Chunk) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.documents[doc.ID].Version

	stored := *doc
	stored.Chunks = nil
	stored.Metadata = maps.Clone(doc.Metadata)
	s.documents[doc.ID] = stored

	copied := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.Embedding = nil
		c.Headers = slices.Clone(c.Headers)
		copied[i] = c
	}
	s.chunks[doc.ID] = copied

	return previous, nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc.Metadata = maps.Clone(doc.Metadata)
	return &doc, nil
}

// GetChunks retrieves all chunks for a document ordered by index.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks, ok := s.chunks[documentID]
	if !ok {
		return nil, nil
	}
	return slices.Clone(chunks), nil
}

// DeleteDocument removes a document and its chunks and returns its active version.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	return doc.Version, nil
}

// ListDocuments returns all documents, newest upload first.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		doc.Metadata = maps.Clone(doc.Metadata)
		result = append(result, doc)
	}
	slices.SortFunc(result, func(a, b domain.Document) int {
		if c := b.UploadedAt.Compare(a.UploadedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}

// ActiveVersions maps known document IDs to their active version.
func (s *DocumentStore) ActiveVersions(_ context.Context, ids []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := make(map[string]string, len(ids))
	for _, id := range ids {
		if doc, ok := s.documents[id]; ok {
			versions[id] = doc.Version
		}
	}
	return versions, nil
}

// CountDocuments returns the number of documents.
func (s *DocumentStore) CountDocuments(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents), nil
}

// RecordPendingDelete remembers a version whose vectors still need deleting.
func (s *DocumentStore) RecordPendingDelete(_ context.Context, documentID, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pending {
		if p.DocumentID == documentID && p.Version == version {
			return nil
		}
	}
	s.pending = append(s.pending, domain.PendingDelete{
		DocumentID: documentID,
		Version:    version,
		RecordedAt: s.now().UTC(),
	})
	return nil
}

// PendingDeletes lists recorded deletes in the order they were recorded.
func (s *DocumentStore) PendingDeletes(_ context.Context, documentID string) ([]domain.PendingDelete, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []domain.PendingDelete{}
	for _, p := range s.pending {
		if documentID == "" || p.DocumentID == documentID {
			result = append(result, p)
		}
	}
	return result, nil
}

// ResolvePendingDelete forgets a recorded delete.
func (s *DocumentStore) ResolvePendingDelete(_ context.Context, documentID, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = slices.DeleteFunc(s.pending, func(p domain.PendingDelete) bool {
		return p.DocumentID == documentID && p.Version == version
	})
	return nil
}
