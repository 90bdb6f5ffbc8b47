package normalisers

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/docx"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/html"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/markdown"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/pdf"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry maps file extensions and MIME types to normalisers.
// Later registrations replace earlier ones for the same key.
type Registry struct {
	byExtension map[string]driven.Normaliser
	byMIME      map[string]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byExtension: make(map[string]driven.Normaliser),
		byMIME:      make(map[string]driven.Normaliser),
	}
}

// NewDefaultRegistry returns a registry with every built-in format.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(pdf.New())
	return r
}

// Register adds a normaliser under all of its extensions and MIME types.
func (r *Registry) Register(n driven.Normaliser) {
	for _, ext := range n.SupportedExtensions() {
		r.byExtension[strings.ToLower(ext)] = n
	}
	for _, mt := range n.SupportedMIMETypes() {
		r.byMIME[strings.ToLower(mt)] = n
	}
}

// Normalise dispatches raw to the matching normaliser.
// The filename extension wins over the declared MIME type.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	n, ok := r.lookup(raw)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported file type %q (supported: %s)",
			domain.ErrInvalidInput, filepath.Ext(raw.Filename), strings.Join(r.SupportedExtensions(), ", "))
	}

	logger.Debug("normalising %s with %T", raw.Filename, n)
	return n.Normalise(ctx, raw)
}

func (r *Registry) lookup(raw *domain.RawDocument) (driven.Normaliser, bool) {
	if ext := strings.ToLower(filepath.Ext(raw.Filename)); ext != "" {
		if n, ok := r.byExtension[ext]; ok {
			return n, true
		}
	}
	if raw.MIMEType != "" {
		mediaType, _, err := mime.ParseMediaType(raw.MIMEType)
		if err == nil {
			n, ok := r.byMIME[strings.ToLower(mediaType)]
			return n, ok
		}
	}
	return nil, false
}

// Supports reports whether filename has a registered extension.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.byExtension[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// SupportedExtensions returns every registered extension, sorted.
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}
