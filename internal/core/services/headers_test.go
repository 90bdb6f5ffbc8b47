package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestRelevantHeaders(t *testing.T) {
	outline := parseOutline("H1: Guide\nH2: Installation\n\nnot a heading\nH2: Usage")

	assert.Equal(t, []string{"H1: Guide", "H2: Installation"},
		relevantHeaders("guide. Installation takes a minute.", outline))
	assert.Nil(t, relevantHeaders("Nothing matches here.", outline))
	assert.Nil(t, relevantHeaders("Installation", nil))
}

func TestIngestionService_Ingest_HeadersReachChunksAndTrace(t *testing.T) {
	f := newFixture(t)
	doc, err := f.ingestion.Ingest(context.Background(), domain.IngestRequest{
		Filename: "guide.md",
		Text:     "Installation\n\nRun the installer and restart the machine.",
		Metadata: map[string]string{headersMetadataKey: "H1: Guide\nH2: Installation"},
	})
	require.NoError(t, err)
	require.Len(t, doc.Chunks, 1)
	assert.Equal(t, []string{"H2: Installation"}, doc.Chunks[0].Headers)

	results, err := f.retriever.Retrieve(context.Background(), "installer restart", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"H2: Installation"}, results[0].Headers)

	msg, err := f.answers.Answer(context.Background(), "Run the installer and restart the machine", domain.AnswerOptions{Debug: true})
	require.NoError(t, err)
	require.NotNil(t, msg.Debug)
	require.NotEmpty(t, msg.Debug.RelevantChunks)
	assert.Equal(t, []string{"H2: Installation"}, msg.Debug.RelevantChunks[0].Metadata.Headers)

	chunks, err := f.docs.GetChunks(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"H2: Installation"}, chunks[0].Headers)
}

func TestIngestionService_Ingest_PlainTextHasNoHeaders(t *testing.T) {
	f := newFixture(t)
	doc := f.ingest(t, "notes.txt", "Plain notes without headings.")

	require.Len(t, doc.Chunks, 1)
	assert.Nil(t, doc.Chunks[0].Headers)
}
