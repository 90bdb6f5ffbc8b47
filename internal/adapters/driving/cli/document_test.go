package cli

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func seedDocument(ts *testServices) *domain.Document {
	doc := &domain.Document{
		ID:         "doc-1",
		Filename:   "handbook.md",
		Version:    "v2",
		ChunkCount: 2,
		Metadata:   map[string]string{"title": "Handbook", "author": "Ops"},
		UploadedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Chunks: []domain.Chunk{
			{ID: "doc-1-0", DocumentID: "doc-1", Index: 0, Content: "First part.", Start: 0, End: 11},
			{ID: "doc-1-1", DocumentID: "doc-1", Index: 1, Content: "Second part.", Start: 9, End: 21},
		},
	}
	ts.ingestion.Documents[doc.ID] = doc
	return doc
}

func TestDocumentCmd_Aliases(t *testing.T) {
	assert.Contains(t, documentCmd.Aliases, "doc")
	assert.Contains(t, documentCmd.Aliases, "documents")
}

func TestDocumentListCmd_NoService(t *testing.T) {
	SetServices(Services{})

	_, _, err := execute(t, "", "document", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion service not configured")
}

func TestDocumentListCmd_Empty(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "", "document", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents indexed.")
}

func TestDocumentListCmd_Lists(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	seedDocument(ts)

	out, _, err := execute(t, "", "document", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, "File:     handbook.md")
	assert.Contains(t, out, "Chunks:   2")
	assert.Contains(t, out, "Total: 1 documents")
}

func TestDocumentListCmd_JSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	seedDocument(ts)

	out, _, err := execute(t, "", "document", "list", "--json")

	require.NoError(t, err)
	var docs []domain.Document
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "handbook.md", docs[0].Filename)
}

func TestDocumentListCmd_Error(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingestion.ListErr = errBoom

	_, _, err := execute(t, "", "document", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list documents")
}

func TestDocumentGetCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	seedDocument(ts)

	out, _, err := execute(t, "", "doc", "get", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document: doc-1")
	assert.Contains(t, out, "Version:  v2")
	assert.Contains(t, out, "author: Ops")
	assert.Less(t, strings.Index(out, "author"), strings.Index(out, "title"))
}

func TestDocumentGetCmd_NotFound(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "", "doc", "get", "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentChunksCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	seedDocument(ts)

	out, _, err := execute(t, "", "doc", "chunks", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "--- chunk 0 [0:11] ---")
	assert.Contains(t, out, "--- chunk 1 [9:21] ---")
	assert.Contains(t, out, "Second part.")
}

func TestDocumentDeleteCmd_ByID(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	seedDocument(ts)

	out, _, err := execute(t, "", "doc", "delete", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document doc-1 deleted.")
	assert.Equal(t, []string{"doc-1"}, ts.ingestion.deleted())
}

func TestDocumentDeleteCmd_ByFilename(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	seedDocument(ts)

	out, _, err := execute(t, "", "doc", "delete", "--filename", "handbook.md")

	require.NoError(t, err)
	assert.Contains(t, out, "Document handbook.md deleted.")
	assert.Empty(t, ts.ingestion.Documents)
}

func TestDocumentDeleteCmd_ArgumentErrors(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "", "doc", "delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a document id or --filename is required")

	_, _, err = execute(t, "", "doc", "delete", "doc-1", "-f", "x.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}

func TestDocumentDeleteCmd_NotFound(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "", "doc", "delete", "nope")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}
