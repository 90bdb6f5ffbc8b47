package domain

import "sort"

// RetrievalResult pairs a chunk with its similarity score for one query.
// It is ephemeral and never persisted.
type RetrievalResult struct {
	ChunkID    string
	DocumentID string
	Filename   string
	ChunkIndex int
	Content    string
	Start      int
	End        int
	Headers    []string

	// Score is the vector store's similarity score. Higher is more relevant.
	Score float64

	// Sequence is the insertion order of the underlying point.
	Sequence int64
}

// ResultFromHit converts a vector hit into a retrieval result.
func ResultFromHit(hit VectorHit) RetrievalResult {
	return RetrievalResult{
		ChunkID:    hit.ID,
		DocumentID: hit.Payload.DocumentID,
		Filename:   hit.Payload.Filename,
		ChunkIndex: hit.Payload.ChunkIndex,
		Content:    hit.Payload.Content,
		Start:      hit.Payload.Start,
		End:        hit.Payload.End,
		Headers:    hit.Payload.Headers,
		Score:      hit.Score,
		Sequence:   hit.Payload.Sequence,
	}
}

// Ranks reports whether a ranks before b: higher score first, then earlier
// insertion, then lower chunk index.
func (a RetrievalResult) Ranks(b RetrievalResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Sequence != b.Sequence {
		return a.Sequence < b.Sequence
	}
	return a.ChunkIndex < b.ChunkIndex
}

// SortResults orders results by descending score with stable insertion-order ties.
func SortResults(results []RetrievalResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Ranks(results[j])
	})
}
