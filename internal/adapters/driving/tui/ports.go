// Package tui provides an interactive terminal user interface for sercha-rag.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
type Ports struct {
	// Answer answers questions from the indexed documents.
	Answer driving.AnswerService

	// Ingestion lists, inspects and removes documents.
	Ingestion driving.IngestionService

	// Settings manages application settings. Optional.
	Settings driving.SettingsService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	answer driving.AnswerService,
	ingestion driving.IngestionService,
	settings driving.SettingsService,
) *Ports {
	return &Ports{
		Answer:    answer,
		Ingestion: ingestion,
		Settings:  settings,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	if p.Ingestion == nil {
		return ErrMissingIngestionService
	}
	return nil
}
