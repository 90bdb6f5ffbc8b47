package cache

import (
	"container/list"
	"context"
	"slices"
	"sync"
	"time"
)

// DefaultMemoryEntries bounds the in-memory cache.
const DefaultMemoryEntries = 10000

// Ensure MemoryStore implements the interface.
var _ Store = (*MemoryStore)(nil)

type memoryEntry struct {
	key     string
	vec     []float32
	expires time.Time
}

// MemoryStore is a size-bounded LRU cache with optional expiry.
type MemoryStore struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	entries map[string]*list.Element
	now     func() time.Time
}

// NewMemoryStore creates an LRU store holding at most maxEntries vectors.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	return &MemoryStore{
		maxSize: maxEntries,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		now:     time.Now,
	}
}

// Get returns a copy of the cached vector.
func (s *MemoryStore) Get(_ context.Context, key string) ([]float32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	entry := el.Value.(*memoryEntry)
	if !entry.expires.IsZero() && s.now().After(entry.expires) {
		s.order.Remove(el)
		delete(s.entries, key)
		return nil, false, nil
	}
	s.order.MoveToFront(el)
	return slices.Clone(entry.vec), true, nil
}

// Set stores a copy of vec, evicting the least recently used entry when full.
func (s *MemoryStore) Set(_ context.Context, key string, vec []float32, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = s.now().Add(ttl)
	}

	if el, ok := s.entries[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.vec = slices.Clone(vec)
		entry.expires = expires
		s.order.MoveToFront(el)
		return nil
	}

	s.entries[key] = s.order.PushFront(&memoryEntry{key: key, vec: slices.Clone(vec), expires: expires})
	for s.order.Len() > s.maxSize {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*memoryEntry).key)
	}
	return nil
}

// Len returns the number of cached entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Close drops every entry.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order.Init()
	clear(s.entries)
	return nil
}
