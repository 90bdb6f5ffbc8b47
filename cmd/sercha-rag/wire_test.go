package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
)

func newTestSettings(t *testing.T, pairs map[string]string) *services.SettingsService {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	svc := services.NewSettingsService(memory.NewConfigStore())
	base := map[string]string{
		"storage.backend":      "memory",
		"vector_store.backend": "memory",
		"embedding.provider":   "hash",
		"embedding.model":      "hash-v1",
		"embedding.dimensions": "64",
	}
	for k, v := range pairs {
		base[k] = v
	}
	for k, v := range base {
		require.NoError(t, svc.Set(k, v), k)
	}
	return svc
}

func TestBuild_InMemoryPipeline(t *testing.T) {
	ctx := context.Background()
	app, err := build(ctx, newTestSettings(t, nil))
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.answer)
	require.NotNil(t, app.health)
	assert.Contains(t, app.normalisers.SupportedExtensions(), ".md")

	doc, err := app.ingestion.Ingest(ctx, domain.IngestRequest{
		Filename: "faq.txt",
		Text:     "Refunds are processed within five business days.",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, doc.ChunkCount)

	results, err := app.retriever.Retrieve(ctx, "Refunds are processed within five business days.", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "faq.txt", results[0].Filename)
}

func TestBuild_InvalidSettings(t *testing.T) {
	svc := newTestSettings(t, map[string]string{"chunking.size": "10", "chunking.overlap": "20"})

	app, err := build(context.Background(), svc)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Nil(t, app)
}

func TestBuild_PGVectorWithoutDSN(t *testing.T) {
	svc := newTestSettings(t, map[string]string{"vector_store.backend": "pgvector"})

	app, err := build(context.Background(), svc)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Nil(t, app)
}
