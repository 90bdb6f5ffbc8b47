// Package cache memoises embeddings so unchanged chunks and repeated
// questions skip the embedding service. Entries live in memory or Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Embedder implements the interfaces.
var (
	_ driven.Embedder    = (*Embedder)(nil)
	_ driven.Dimensioned = (*Embedder)(nil)
	_ driven.Pinger      = (*Embedder)(nil)
)

// Store holds cached vectors by key.
type Store interface {
	// Get returns the vector for key. A miss returns (nil, false, nil).
	Get(ctx context.Context, key string) ([]float32, bool, error)

	// Set stores the vector. A zero ttl keeps it until evicted.
	Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error

	// Close releases resources.
	Close() error
}

// Embedder serves vectors from a Store and falls back to the wrapped embedder.
// Cache failures are logged and never fail the call.
type Embedder struct {
	next      driven.Embedder
	store     Store
	namespace string
	ttl       time.Duration
}

// New wraps next. The model name and dimensions are part of every key so
// switching models never returns stale vectors.
func New(next driven.Embedder, store Store, model string, ttl time.Duration) *Embedder {
	dims := 0
	if d, ok := next.(driven.Dimensioned); ok {
		dims = d.Dimensions()
	}
	return &Embedder{
		next:      next,
		store:     store,
		namespace: model + ":" + strconv.Itoa(dims),
		ttl:       ttl,
	}
}

// Embed returns the cached vector for text or computes and stores it.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.key(text)

	vec, ok, err := e.store.Get(ctx, key)
	if err != nil {
		logger.Warn("embedding cache read failed: %v", err)
	}
	if ok {
		return vec, nil
	}

	vec, err = e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.store.Set(ctx, key, vec, e.ttl); err != nil {
		logger.Warn("embedding cache write failed: %v", err)
	}
	return vec, nil
}

func (e *Embedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return e.namespace + ":" + hex.EncodeToString(sum[:])
}

// Dimensions passes through to the wrapped embedder, or 0 if unknown.
func (e *Embedder) Dimensions() int {
	if d, ok := e.next.(driven.Dimensioned); ok {
		return d.Dimensions()
	}
	return 0
}

// Ping checks the wrapped embedder only; the cache is optional.
func (e *Embedder) Ping(ctx context.Context) error {
	if p, ok := e.next.(driven.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the store.
func (e *Embedder) Close() error {
	return e.store.Close()
}
