package domain

// ChunkPayload is the metadata stored alongside each vector.
// It carries everything retrieval needs so no metadata lookup is required per hit.
type ChunkPayload struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Version    string `json:"version"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
	Start      int    `json:"start"`
	End        int    `json:"end"`

	// Headers lists the document headings mentioned in the chunk.
	Headers []string `json:"headers,omitempty"`

	// Sequence orders points by insertion. Used to break score ties.
	Sequence int64 `json:"sequence"`
}

// VectorPoint is a single vector with its payload, as written to a vector store.
type VectorPoint struct {
	ID      string
	Vector  []float32
	Payload ChunkPayload
}

// VectorHit is a nearest-neighbour match returned by a vector store.
type VectorHit struct {
	ID string

	// Score is the store's similarity metric (cosine similarity, higher is closer).
	Score float64

	Payload ChunkPayload
}

// VectorFilter restricts deletes and queries by payload fields.
// Empty fields match everything.
type VectorFilter struct {
	DocumentID string
	Version    string
}

// IsEmpty reports whether the filter matches every point.
func (f VectorFilter) IsEmpty() bool {
	return f.DocumentID == "" && f.Version == ""
}

// Matches reports whether a payload satisfies the filter.
func (f VectorFilter) Matches(p ChunkPayload) bool {
	if f.DocumentID != "" && p.DocumentID != f.DocumentID {
		return false
	}
	if f.Version != "" && p.Version != f.Version {
		return false
	}
	return true
}
