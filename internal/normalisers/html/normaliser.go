// Package html normalises HTML pages. The main article is extracted with
// readability; pages it cannot parse fall back to plain tag stripping.
package html

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

// Normalise extracts the readable text of an HTML page.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if !utf8.Valid(raw.Content) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8 text", domain.ErrInvalidInput, raw.Filename)
	}

	page := string(raw.Content)
	metadata := map[string]string{
		"format": "html",
		"title":  extractHTMLTitle(page, raw.Filename),
	}

	var text string
	article, err := readability.FromReader(strings.NewReader(page), pageURL(raw.Filename))
	if err != nil {
		logger.Debug("readability failed for %s, stripping tags: %v", raw.Filename, err)
	} else {
		text = stripHTML(article.Content)
		if byline := strings.TrimSpace(article.Byline); byline != "" {
			metadata["byline"] = byline
		}
		if site := strings.TrimSpace(article.SiteName); site != "" {
			metadata["site_name"] = site
		}
	}
	if text == "" {
		text = stripHTML(page)
	}

	return &driven.NormaliseResult{
		Text:     text,
		Metadata: metadata,
	}, nil
}

// pageURL gives readability a base for resolving relative links.
func pageURL(filename string) *url.URL {
	return &url.URL{Scheme: "file", Path: "/" + filepath.ToSlash(filepath.Base(filename))}
}

// Pre-compiled regular expressions for tag stripping.
var (
	titleTag          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	navTag            = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	svgTag            = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements     = regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	brTags            = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags            = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
	multiSpaces       = regexp.MustCompile(`[ \t]+`)
	multiNewlines     = regexp.MustCompile(`\n{3,}`)

	invisible = []*regexp.Regexp{scriptTag, styleTag, noscriptTag, headTag, svgTag, navTag}
)

// extractHTMLTitle returns the <title> text or a title derived from the filename.
func extractHTMLTitle(content, filename string) string {
	if m := titleTag.FindStringSubmatch(content); len(m) > 1 {
		if title := strings.TrimSpace(html.UnescapeString(m[1])); title != "" {
			return title
		}
	}

	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	return strings.ReplaceAll(base, "-", " ")
}

// stripHTML removes markup and keeps readable text. Block elements become
// paragraph breaks so the chunker can cut on them.
func stripHTML(content string) string {
	for _, re := range invisible {
		content = re.ReplaceAllString(content, "")
	}
	content = htmlComments.ReplaceAllString(content, "")

	content = openBlockElements.ReplaceAllString(content, "\n\n")
	content = blockElements.ReplaceAllString(content, "\n\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n\n")
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	content = multiNewlines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(content)
}
