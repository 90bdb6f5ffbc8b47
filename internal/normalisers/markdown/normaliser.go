// Package markdown normalises Markdown files into plain text and records
// their heading outline.
package markdown

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

// Normalise converts a markdown document to plain text.
// Metadata carries the title and the heading outline ("H1: Intro" per line).
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if !utf8.Valid(raw.Content) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8 text", domain.ErrInvalidInput, raw.Filename)
	}

	source := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")
	headings := extractHeadings(source)

	metadata := map[string]string{
		"format": "markdown",
		"title":  extractTitle(headings, raw.Filename),
	}
	if len(headings) > 0 {
		outline := make([]string, len(headings))
		for i, h := range headings {
			outline[i] = fmt.Sprintf("H%d: %s", h.level, h.text)
		}
		metadata["headers"] = strings.Join(outline, "\n")
	}

	return &driven.NormaliseResult{
		Text:     stripMarkdown(source),
		Metadata: metadata,
	}, nil
}

type heading struct {
	level int
	text  string
}

var headingLine = regexp.MustCompile(`^(#{1,6})\s+(.+?)(?:\s+#+)?\s*$`)

// extractHeadings returns ATX headings outside fenced code blocks.
func extractHeadings(content string) []heading {
	var headings []heading
	inFence := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := headingLine.FindStringSubmatch(trimmed); m != nil {
			headings = append(headings, heading{level: len(m[1]), text: m[2]})
		}
	}
	return headings
}

// extractTitle returns the first H1, or a title derived from the filename.
func extractTitle(headings []heading, filename string) string {
	for _, h := range headings {
		if h.level == 1 {
			return h.text
		}
	}
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	return strings.ReplaceAll(base, "-", " ")
}

// Pre-compiled regular expressions for markdown stripping.
var (
	fenceLine     = regexp.MustCompile("(?m)^[ \t]*(```|~~~).*$")
	inlineCode    = regexp.MustCompile("`([^`\n]+)`")
	images        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	refLinks      = regexp.MustCompile(`(?m)^[ \t]*\[[^\]]+\]:[ \t]+\S+.*$`)
	headingMarks  = regexp.MustCompile(`(?m)^#{1,6}[ \t]+(.*?)([ \t]+#+)?[ \t]*$`)
	strong        = regexp.MustCompile(`(\*\*|__)([^\n]+?)(\*\*|__)`)
	emphasisStar  = regexp.MustCompile(`\*([^*\n]+)\*`)
	emphasisUnder = regexp.MustCompile(`\b_([^_\n]+)_\b`)
	strike        = regexp.MustCompile(`~~([^~\n]+)~~`)
	blockquote    = regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`)
	rule          = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	listMarkers   = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+`)
	numberedList  = regexp.MustCompile(`(?m)^([ \t]*)\d+[.)][ \t]+`)
	htmlTags      = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	trailingSpace = regexp.MustCompile(`(?m)[ \t]+$`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes markdown syntax and keeps the readable text,
// including the contents of code blocks.
func stripMarkdown(content string) string {
	content = fenceLine.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = refLinks.ReplaceAllString(content, "")
	content = rule.ReplaceAllString(content, "")
	content = headingMarks.ReplaceAllString(content, "$1")
	content = strong.ReplaceAllString(content, "$2")
	content = emphasisStar.ReplaceAllString(content, "$1")
	content = emphasisUnder.ReplaceAllString(content, "$1")
	content = strike.ReplaceAllString(content, "$1")
	content = blockquote.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "$1")
	content = numberedList.ReplaceAllString(content, "$1")
	content = htmlTags.ReplaceAllString(content, "")
	content = trailingSpace.ReplaceAllString(content, "")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
