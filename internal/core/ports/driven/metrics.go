package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// Metrics records pipeline outcomes. Implementations must be safe for concurrent use.
type Metrics interface {
	// DocumentIngested records a successful ingestion with its chunk count.
	DocumentIngested(chunks int)

	// IngestionFailed records a failed ingestion.
	IngestionFailed(reason string)

	// AnswerCompleted records a finished answer request and its final state.
	AnswerCompleted(state domain.AnswerState, failedStage domain.AnswerState, seconds float64)

	// ChunksDropped records chunks removed by prompt truncation.
	ChunksDropped(n int)
}
