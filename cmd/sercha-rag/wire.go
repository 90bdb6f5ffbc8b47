package main

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/metrics"
	memorystore "github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	sqlitestore "github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	memoryvectors "github.com/custodia-labs/sercha-rag/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vectorstore/pgvector"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vectorstore/qdrant"
	sqlitevectors "github.com/custodia-labs/sercha-rag/internal/adapters/driven/vectorstore/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
)

// application holds the wired services and everything that must be closed.
type application struct {
	settings *domain.AppSettings

	answer    *services.AnswerOrchestrator
	retriever *services.Retriever
	ingestion *services.IngestionService
	health    *services.HealthService

	normalisers *normalisers.Registry
	metrics     *metrics.Recorder

	closers []func() error
}

// Close releases stores and provider clients in reverse order of creation.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close: %v", err)
		}
	}
	a.closers = nil
}

// build wires the pipeline described by the current settings.
// On error everything opened so far is closed.
func build(ctx context.Context, settingsService driving.SettingsService) (app *application, err error) {
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	app = &application{
		settings:    settings,
		normalisers: normalisers.NewDefaultRegistry(),
		metrics:     metrics.New(),
	}
	defer func() {
		if err != nil {
			app.Close()
			app = nil
		}
	}()

	aiServices, err := ai.Initialise(ctx, settings)
	if err != nil {
		return app, err
	}
	app.closers = append(app.closers, func() error { aiServices.Close(); return nil })

	docs, err := openDocumentStore(app, settings.Storage)
	if err != nil {
		return app, err
	}
	vectors, err := openVectorStore(ctx, app, settings.VectorStore)
	if err != nil {
		return app, err
	}

	chunks, err := chunker.New(
		chunker.WithChunkSize(settings.Chunking.Size),
		chunker.WithOverlap(settings.Chunking.Overlap),
	)
	if err != nil {
		return app, err
	}

	app.ingestion, err = services.NewIngestionService(chunks, aiServices.Embedder, vectors, docs, services.IngestionConfig{
		Collection: settings.VectorStore.Collection,
		Dimensions: settings.Embedding.Dimensions,
	})
	if err != nil {
		return app, err
	}
	app.ingestion.SetNormalisers(app.normalisers)
	app.ingestion.SetMetrics(app.metrics)

	app.retriever, err = services.NewRetriever(aiServices.Embedder, vectors, docs, services.RetrieverConfig{
		Collection: settings.VectorStore.Collection,
		Dimensions: settings.Embedding.Dimensions,
		TopK:       settings.Retrieval.TopK,
		MinScore:   settings.Retrieval.MinScore,
	})
	if err != nil {
		return app, err
	}

	assembler := services.NewPromptAssembler(settings.Prompt.MaxContextChars)
	if instructions, err := file.NewInstructionsStore("", services.DefaultInstructions); err != nil {
		logger.Warn("Using built-in answer instructions: %v", err)
	} else {
		text, err := instructions.Load()
		if err != nil {
			logger.Warn("Using built-in answer instructions: %v", err)
		}
		assembler.WithInstructions(text)
	}

	app.answer, err = services.NewAnswerOrchestrator(app.retriever, assembler, aiServices.Generator, docs, services.AnswerConfig{
		TopK: settings.Retrieval.TopK,
		Generate: driven.GenerateOptions{
			MaxTokens:   settings.LLM.MaxTokens,
			Temperature: settings.LLM.Temperature,
		},
		GenerationTimeout: settings.LLM.Timeout,
	})
	if err != nil {
		return app, err
	}
	app.answer.SetMetrics(app.metrics)

	app.health = services.NewHealthService(docs, aiServices.Embedder, aiServices.Generator, vectors)

	logger.Debug("Wired %s embeddings, %s generation, %s vectors, %s documents",
		settings.Embedding.Provider, settings.LLM.Provider, settings.VectorStore.Backend, settings.Storage.Backend)
	return app, nil
}

func openDocumentStore(app *application, cfg domain.StorageSettings) (driven.DocumentStore, error) {
	switch cfg.Backend {
	case domain.StorageBackendMemory:
		return memorystore.NewDocumentStore(), nil
	case domain.StorageBackendSQLite:
		store, err := sqlitestore.NewStore("")
		if err != nil {
			return nil, fmt.Errorf("opening document store: %w", err)
		}
		app.closers = append(app.closers, store.Close)
		return store.DocumentStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", domain.ErrConfiguration, cfg.Backend)
	}
}

func openVectorStore(ctx context.Context, app *application, cfg domain.VectorStoreSettings) (driven.VectorStore, error) {
	var store driven.VectorStore
	switch cfg.Backend {
	case domain.VectorBackendMemory:
		store = memoryvectors.New()
	case domain.VectorBackendSQLite:
		s, err := sqlitevectors.NewStore("")
		if err != nil {
			return nil, fmt.Errorf("opening vector store: %w", err)
		}
		store = s
	case domain.VectorBackendQdrant:
		store = qdrant.New(qdrant.Config{URL: cfg.URL, APIKey: cfg.APIKey})
	case domain.VectorBackendPGVector:
		s, err := pgvector.New(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("%w: unknown vector store backend %q", domain.ErrConfiguration, cfg.Backend)
	}
	app.closers = append(app.closers, store.Close)
	return store, nil
}
