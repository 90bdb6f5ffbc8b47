// Package vectorstore holds the vector database adapters and the brute-force
// cosine ranking shared by the embedded backends.
package vectorstore

import (
	"math"
	"slices"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Zero-length or zero-norm vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK sorts hits by descending score, breaking ties by insertion sequence
// then chunk index, and returns at most k of them.
func TopK(hits []domain.VectorHit, k int) []domain.VectorHit {
	slices.SortStableFunc(hits, func(a, b domain.VectorHit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		case a.Payload.Sequence != b.Payload.Sequence:
			if a.Payload.Sequence < b.Payload.Sequence {
				return -1
			}
			return 1
		default:
			return a.Payload.ChunkIndex - b.Payload.ChunkIndex
		}
	})
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
