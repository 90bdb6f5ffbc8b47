package domain

import "time"

// Document represents an ingested document.
// A document is immutable once committed; re-ingesting replaces it as a whole.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Filename is the name the document was uploaded under.
	Filename string

	// Version identifies the ingestion run whose chunks are currently active.
	// Vector points written by any other run are invisible to retrieval.
	Version string

	// ChunkCount is the number of chunks indexed for the active version.
	ChunkCount int

	// Metadata contains loader-specific key-value pairs (e.g. markdown headers).
	Metadata map[string]string

	// UploadedAt is when the active version was committed.
	UploadedAt time.Time

	// Chunks holds the ordered chunks when loaded with the document.
	// Listing operations leave it empty.
	Chunks []Chunk
}

// Chunk is a contiguous slice of a document's text.
// It is the unit of embedding and retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the position within the document, contiguous from 0.
	Index int

	// Content is the text content of this chunk. Never empty.
	Content string

	// Start is the rune offset of the first character in the source text.
	Start int

	// End is the rune offset one past the last character in the source text.
	End int

	// Headers lists the document headings mentioned in Content ("H2: Setup").
	Headers []string

	// Embedding is the vector computed at ingestion time.
	Embedding []float32
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// IngestRequest carries a document to be ingested.
type IngestRequest struct {
	// ID optionally pins the document identity. When empty the identity is
	// derived from Filename, so re-uploading a file replaces it.
	ID string

	// Filename is the display name of the document.
	Filename string

	// Text is the normalised plain text to index.
	Text string

	// Metadata is copied onto the created document.
	Metadata map[string]string
}

// RawDocument is an uploaded file before normalisation.
type RawDocument struct {
	// Filename is the uploaded file name, used for loader selection.
	Filename string

	// MIMEType is the content type when known (e.g., "text/markdown").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}

// PendingDelete records vector points that must be removed but whose delete
// failed. They are invisible to retrieval and retried until they are gone.
type PendingDelete struct {
	DocumentID string
	Version    string
	RecordedAt time.Time
}
