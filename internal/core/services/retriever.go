package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

// DefaultTopK is the number of chunks retrieved when none is configured.
const DefaultTopK = 5

// maxFetchLimit caps how many hits a single retrieval inspects.
const maxFetchLimit = 4096

// RetrieverConfig configures similarity search.
type RetrieverConfig struct {
	Collection string
	Dimensions int

	// TopK is used when a request does not pass k.
	TopK int

	// MinScore drops results scoring below it. Zero keeps everything.
	MinScore float64
}

// Retriever embeds a query and returns the most similar committed chunks.
type Retriever struct {
	embedder driven.Embedder
	vectors  driven.VectorStore
	docs     driven.DocumentStore
	cfg      RetrieverConfig
}

// NewRetriever creates a retriever.
func NewRetriever(
	embedder driven.Embedder,
	vectors driven.VectorStore,
	docs driven.DocumentStore,
	cfg RetrieverConfig,
) (*Retriever, error) {
	if embedder == nil || vectors == nil || docs == nil {
		return nil, fmt.Errorf("%w: retrieval requires an embedder, vector store and document store",
			domain.ErrConfiguration)
	}
	if cfg.Collection == "" || cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: retrieval requires a collection and positive dimensions",
			domain.ErrConfiguration)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Retriever{embedder: embedder, vectors: vectors, docs: docs, cfg: cfg}, nil
}

// Retrieve returns up to k committed chunks ordered by descending score.
// Ties keep insertion order. An empty store or blank query yields no results.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievalResult, error) {
	logger.Section("Retrieval")
	defer logger.Timed("retrieval")()

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.RetrievalResult{}, nil
	}
	if k <= 0 {
		k = r.cfg.TopK
	}
	logger.Debug("Query: %q (k=%d, min_score=%.2f)", query, k, r.cfg.MinScore)

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", asEmbeddingError(err))
	}
	if len(vec) != r.cfg.Dimensions {
		return nil, fmt.Errorf("embed query: %w: got %d, collection expects %d",
			domain.ErrDimensionMismatch, len(vec), r.cfg.Dimensions)
	}

	results, err := r.activeHits(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	domain.SortResults(results)
	if len(results) > k {
		results = results[:k]
	}

	for i, res := range results {
		logger.Debug("  %d. %s#%d score=%.4f", i+1, res.Filename, res.ChunkIndex, res.Score)
	}
	return results, nil
}

// activeHits queries with a growing limit until it has k hits from active
// versions, the store runs out of points, or the remaining hits score below
// MinScore. Uncommitted and superseded points can outnumber live ones after
// failed cleanups, so a fixed over-fetch window is not enough.
func (r *Retriever) activeHits(ctx context.Context, vec []float32, k int) ([]domain.RetrievalResult, error) {
	limit := k * 2
	for {
		hits, err := r.vectors.Query(ctx, r.cfg.Collection, vec, limit, domain.VectorFilter{})
		if err != nil {
			return nil, fmt.Errorf("query vectors: %w", err)
		}
		logger.Debug("Vector store returned %d hits (limit %d)", len(hits), limit)
		if len(hits) == 0 {
			return []domain.RetrievalResult{}, nil
		}

		active, err := r.docs.ActiveVersions(ctx, documentIDs(hits))
		if err != nil {
			return nil, fmt.Errorf("resolve active versions: %w", err)
		}

		results := make([]domain.RetrievalResult, 0, len(hits))
		stale := 0
		for _, hit := range hits {
			if version, ok := active[hit.Payload.DocumentID]; !ok || version != hit.Payload.Version {
				stale++
				continue
			}
			if hit.Score < r.cfg.MinScore {
				continue
			}
			results = append(results, domain.ResultFromHit(hit))
		}
		if stale > 0 {
			logger.Debug("Skipped %d hits from inactive versions", stale)
		}

		exhausted := len(hits) < limit
		belowFloor := hits[len(hits)-1].Score < r.cfg.MinScore
		if len(results) >= k || exhausted || belowFloor || limit >= maxFetchLimit {
			return results, nil
		}
		limit = min(limit*2, maxFetchLimit)
	}
}

func documentIDs(hits []domain.VectorHit) []string {
	seen := make(map[string]bool, len(hits))
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		if !seen[h.Payload.DocumentID] {
			seen[h.Payload.DocumentID] = true
			ids = append(ids, h.Payload.DocumentID)
		}
	}
	return ids
}
