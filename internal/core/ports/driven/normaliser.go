package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Normaliser turns an uploaded file into plain text ready for chunking.
// Each normaliser handles specific file extensions and MIME types.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// SupportedExtensions returns lower-case file extensions including the dot.
	SupportedExtensions() []string

	// Normalise extracts text and metadata from a raw document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Chunking happens later in the ingestion pipeline.
type NormaliseResult struct {
	// Text is the plain text to index.
	Text string

	// Metadata holds format-specific details such as markdown headers.
	Metadata map[string]string
}

// NormaliserRegistry picks the normaliser for an uploaded file.
type NormaliserRegistry interface {
	// Normalise dispatches raw to the normaliser for its extension or MIME type.
	// Unsupported files return domain.ErrInvalidInput.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// SupportedExtensions lists every extension with a registered normaliser.
	SupportedExtensions() []string
}
