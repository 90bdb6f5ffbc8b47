// Package docx extracts text from Word documents (Office Open XML).
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".docx"}
}

// Normalise extracts paragraph text from word/document.xml, including
// paragraphs nested in tables. Paragraphs are separated by blank lines.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	archive, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a docx archive: %v", domain.ErrInvalidInput, raw.Filename, err)
	}

	body, err := fs.ReadFile(archive, documentPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %s has no %s", domain.ErrInvalidInput, raw.Filename, documentPart)
	}

	paragraphs, err := parseDocumentXML(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidInput, raw.Filename, err)
	}

	props := readCoreProperties(archive)
	metadata := map[string]string{
		"format":     "docx",
		"title":      props.title(raw.Filename),
		"paragraphs": strconv.Itoa(len(paragraphs)),
	}
	if author := strings.TrimSpace(props.Creator); author != "" {
		metadata["author"] = author
	}

	return &driven.NormaliseResult{
		Text:     strings.Join(paragraphs, "\n\n"),
		Metadata: metadata,
	}, nil
}

// parseDocumentXML streams the WordprocessingML body and returns the
// non-empty paragraphs. Tabs and line breaks inside runs are kept.
func parseDocumentXML(content []byte) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch el := token.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(el)
			}
		}
	}
	return paragraphs, nil
}

// coreProperties is the subset of docProps/core.xml we read.
type coreProperties struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
}

func (p coreProperties) title(filename string) string {
	if title := strings.TrimSpace(p.Title); title != "" {
		return title
	}
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	return strings.ReplaceAll(base, "-", " ")
}

// readCoreProperties returns the document properties, or zero values when
// the part is missing or malformed.
func readCoreProperties(archive *zip.Reader) coreProperties {
	var props coreProperties
	content, err := fs.ReadFile(archive, corePart)
	if err != nil {
		return props
	}
	_ = xml.Unmarshal(content, &props)
	return props
}
