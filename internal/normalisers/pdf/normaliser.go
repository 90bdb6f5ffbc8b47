// Package pdf extracts plain text from PDF files using a pure Go reader.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// maxTitleLen is the longest first line accepted as a title.
const maxTitleLen = 200

// Extractor returns the page count and plain text of a PDF.
type Extractor func(content []byte) (pages int, text string, err error)

// Normaliser handles PDF documents.
type Normaliser struct {
	extract Extractor
}

// New creates a PDF normaliser backed by github.com/ledongthuc/pdf.
func New() *Normaliser {
	return &Normaliser{extract: extractText}
}

// NewWithExtractor creates a normaliser with a custom extractor (for testing).
func NewWithExtractor(extract Extractor) *Normaliser {
	return &Normaliser{extract: extract}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Normalise extracts the text layer of a PDF.
// Scanned PDFs without a text layer are rejected with domain.ErrInvalidInput.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	pages, text, err := n.extract(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: read pdf %s: %v", domain.ErrInvalidInput, raw.Filename, err)
	}

	text = cleanText(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %s has no extractable text", domain.ErrInvalidInput, raw.Filename)
	}

	return &driven.NormaliseResult{
		Text: text,
		Metadata: map[string]string{
			"format": "pdf",
			"title":  extractTitle(text, raw.Filename),
			"pages":  strconv.Itoa(pages),
		},
	}, nil
}

// extractText reads the plain text of every page. The reader panics on some
// malformed files, so panics are turned into errors.
func extractText(content []byte) (pages int, text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, "", err
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return 0, "", fmt.Errorf("extract text: %w", err)
	}

	var buf strings.Builder
	if _, err := io.Copy(&buf, plain); err != nil {
		return 0, "", fmt.Errorf("read text: %w", err)
	}
	return reader.NumPage(), buf.String(), nil
}

// cleanText normalises line endings and drops NUL bytes left by some encoders.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

// extractTitle uses the first short non-empty line, falling back to the filename.
func extractTitle(content, filename string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && len(line) < maxTitleLen {
			return line
		}
	}

	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	return strings.ReplaceAll(base, "-", " ")
}
