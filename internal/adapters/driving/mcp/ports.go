package mcp

import (
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Answer runs the question answering pipeline.
	Answer driving.AnswerService

	// Retrieval exposes raw ranked chunks.
	Retrieval driving.RetrievalService

	// Ingestion adds, lists and removes documents.
	Ingestion driving.IngestionService

	// Health reports collaborator status.
	Health driving.HealthService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	// The remaining ports only gate their own tools
	return nil
}
