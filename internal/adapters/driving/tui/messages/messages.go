// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewAsk is the question input and answer view.
	ViewAsk
	// ViewHelp is the help/keybindings view.
	ViewHelp
	// ViewDocuments lists indexed documents.
	ViewDocuments
	// ViewDocDetails shows a document's metadata and chunks.
	ViewDocDetails
	// ViewSettings is the settings configuration view.
	ViewSettings
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewAsk:
		return "ask"
	case ViewHelp:
		return "help"
	case ViewDocuments:
		return "documents"
	case ViewDocDetails:
		return "doc_details"
	case ViewSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// AnswerReceived carries the orchestrator's reply to a question.
type AnswerReceived struct {
	Question string
	Message  *domain.Message
	Err      error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// DocumentsLoaded carries the list of indexed documents.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// DocumentSelected signals a document was chosen from the list.
type DocumentSelected struct {
	Document domain.Document
}

// DocumentLoaded carries a document with its chunks.
type DocumentLoaded struct {
	Document *domain.Document
	Err      error
}

// DocumentDeleted signals a document was removed from the index.
type DocumentDeleted struct {
	DocumentID string
	Err        error
}

// SettingsLoaded carries every setting with its value and origin.
type SettingsLoaded struct {
	Values []domain.SettingValue
	Err    error
}

// SettingsSaved signals a setting was written.
type SettingsSaved struct {
	Key string
	Err error
}
