package domain

import (
	"fmt"
	"time"
)

// AnswerState is a stage of the answer pipeline.
type AnswerState string

// Answer pipeline states, in order. Completed and Failed are terminal.
const (
	AnswerReceived   AnswerState = "received"
	AnswerRetrieving AnswerState = "retrieving"
	AnswerAssembling AnswerState = "assembling"
	AnswerGenerating AnswerState = "generating"
	AnswerCompleted  AnswerState = "completed"
	AnswerFailed     AnswerState = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s AnswerState) IsTerminal() bool {
	return s == AnswerCompleted || s == AnswerFailed
}

// CanTransition reports whether moving from s to next is a legal step.
// Any non-terminal state may fail.
func (s AnswerState) CanTransition(next AnswerState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == AnswerFailed {
		return true
	}
	switch s {
	case AnswerReceived:
		return next == AnswerRetrieving
	case AnswerRetrieving:
		// Empty retrieval completes without assembling.
		return next == AnswerAssembling || next == AnswerCompleted
	case AnswerAssembling:
		return next == AnswerGenerating
	case AnswerGenerating:
		return next == AnswerCompleted
	default:
		return false
	}
}

// String returns the string representation.
func (s AnswerState) String() string {
	return string(s)
}

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	// Role is who produced the message.
	Role Role `json:"role"`

	// Text is the message body.
	Text string `json:"text"`

	// Sources lists the filenames used to produce an assistant answer,
	// deduplicated in order of first appearance.
	Sources []string `json:"sources,omitempty"`

	// Debug is set only when a debug trace was requested.
	Debug *DebugTrace `json:"debug_info,omitempty"`

	// State is the final pipeline state for assistant messages.
	State AnswerState `json:"state,omitempty"`

	// NoContext is true when the answer was produced without any retrieved context.
	NoContext bool `json:"no_context,omitempty"`

	// CreatedAt is when the message was produced.
	CreatedAt time.Time `json:"created_at"`
}

// AnswerOptions configures a single answer request.
type AnswerOptions struct {
	// Debug requests a DebugTrace on the returned message.
	Debug bool

	// TopK overrides the configured retrieval count when positive.
	TopK int
}

// DebugTrace records exactly what context and prompt produced an answer.
type DebugTrace struct {
	// Context is the concatenated context block sent to the generator.
	Context string `json:"context"`

	// FullPrompt is the exact prompt sent to the generator.
	FullPrompt string `json:"full_prompt"`

	// RelevantChunks lists every retrieved chunk, including dropped ones.
	RelevantChunks []TracedChunk `json:"relevant_chunks"`

	// OverBudget is true when the top-ranked chunk alone exceeds the context
	// budget. It is still sent so the answer has some context.
	OverBudget bool `json:"over_budget,omitempty"`
}

// TracedChunk is one retrieved chunk as seen by the prompt assembler.
type TracedChunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
	Score    float64       `json:"score"`

	// Citation is the 1-based source marker used in the prompt. Zero when dropped.
	Citation int `json:"citation,omitempty"`

	// Dropped is true when truncation removed the chunk from the prompt.
	Dropped bool `json:"dropped,omitempty"`
}

// ChunkMetadata describes where a traced chunk came from.
type ChunkMetadata struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
	Start      int    `json:"start"`
	End        int    `json:"end"`

	// Headers lists the document headings the chunk mentions.
	Headers []string `json:"headers,omitempty"`
}

// AnswerError reports a failed answer request and the stage it failed in.
type AnswerError struct {
	Stage AnswerState
	Err   error
}

// Error implements error.
func (e *AnswerError) Error() string {
	return fmt.Sprintf("answer failed while %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *AnswerError) Unwrap() error {
	return e.Err
}

// Conversation is an in-memory, session-scoped sequence of turns.
// It is never persisted.
type Conversation struct {
	Messages []Message
}

// Append adds a message to the conversation.
func (c *Conversation) Append(m Message) {
	c.Messages = append(c.Messages, m)
}

// Last returns the most recent message, or nil when empty.
func (c *Conversation) Last() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.Messages)
}
