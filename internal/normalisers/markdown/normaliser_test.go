package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = New()
}

func TestSupported(t *testing.T) {
	n := New()
	assert.Contains(t, n.SupportedMIMETypes(), "text/markdown")
	assert.Equal(t, []string{".md", ".markdown"}, n.SupportedExtensions())
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawDocument{
		Filename: "guide.md",
		Content: []byte("# Install Guide\n\nRun the **installer** and read [the docs](https://x.io).\n\n" +
			"## Setup ##\n\n- first step\n- second step\n\n```go\nfmt.Println(\"hi\")\n```\n"),
	}

	result, err := New().Normalise(context.Background(), raw)

	require.NoError(t, err)
	assert.Equal(t, "Install Guide\n\nRun the installer and read the docs.\n\nSetup\n\nfirst step\nsecond step\n\nfmt.Println(\"hi\")",
		result.Text)
	assert.Equal(t, "markdown", result.Metadata["format"])
	assert.Equal(t, "Install Guide", result.Metadata["title"])
	assert.Equal(t, "H1: Install Guide\nH2: Setup", result.Metadata["headers"])
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_InvalidUTF8(t *testing.T) {
	_, err := New().Normalise(context.Background(), &domain.RawDocument{Filename: "x.md", Content: []byte{0xff, 0xfe}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_TitleFallsBackToFilename(t *testing.T) {
	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		Filename: "docs/release_notes-2026.md",
		Content:  []byte("## Only a subheading\n\nBody."),
	})

	require.NoError(t, err)
	assert.Equal(t, "release notes 2026", result.Metadata["title"])
	assert.Equal(t, "H2: Only a subheading", result.Metadata["headers"])
}

func TestNormalise_NoHeadings(t *testing.T) {
	result, err := New().Normalise(context.Background(), &domain.RawDocument{Filename: "a.md", Content: []byte("plain")})

	require.NoError(t, err)
	_, ok := result.Metadata["headers"]
	assert.False(t, ok)
}

func TestExtractHeadings_IgnoresCodeFences(t *testing.T) {
	headings := extractHeadings("# Real\n```\n# not a heading\n```\n### Deep\n#NoSpace")

	require.Len(t, headings, 2)
	assert.Equal(t, heading{level: 1, text: "Real"}, headings[0])
	assert.Equal(t, heading{level: 3, text: "Deep"}, headings[1])
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"heading", "## Title", "Title"},
		{"closing hashes", "## Title ##", "Title"},
		{"bold", "**bold** and __strong__", "bold and strong"},
		{"italic", "*it* and _em_", "it and em"},
		{"snake case kept", "use my_var_name here", "use my_var_name here"},
		{"strike", "~~gone~~ text", "gone text"},
		{"inline code", "call `Run()` now", "call Run() now"},
		{"link", "see [site](http://x)", "see site"},
		{"image", "![diagram](d.png) below", "diagram below"},
		{"reference link", "text\n[1]: http://x.io", "text"},
		{"blockquote", "> quoted", "quoted"},
		{"rule", "above\n\n---\n\nbelow", "above\n\nbelow"},
		{"numbered list", "1. one\n2) two", "one\ntwo"},
		{"html", "a <br/> b", "a  b"},
		{"newlines collapse", "a\n\n\n\nb", "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMarkdown(tt.input))
		})
	}
}
