// Package hash provides an offline embedding service based on feature hashing.
// Texts sharing words get similar vectors, which is enough for local use
// without a model server and for deterministic tests.
package hash

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interfaces.
var (
	_ driven.Embedder    = (*EmbeddingService)(nil)
	_ driven.Dimensioned = (*EmbeddingService)(nil)
	_ driven.Pinger      = (*EmbeddingService)(nil)
)

// Default configuration values.
const (
	DefaultModel      = "hash-v1"
	DefaultDimensions = 256
)

// Config holds configuration for the hashing embedder.
type Config struct {
	// Dimensions is the embedding vector size (default: 256).
	Dimensions int
}

// EmbeddingService maps each word to a signed bucket and L2-normalises the counts.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hashing embedder.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: cfg.Dimensions}
}

// Embed returns the hashed bag-of-words vector of text.
// Text without words yields the zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, s.dimensions)
	for _, word := range Tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(word))
		sum := h.Sum64()

		bucket := sum % uint64(s.dimensions)
		if sum>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, s.dimensions)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return DefaultModel
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Tokenize lower-cases text and splits it into letter/digit runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
