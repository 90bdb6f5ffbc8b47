package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// RetrievalService fetches relevant chunks for a query.
type RetrievalService interface {
	// Retrieve returns up to k results ordered by descending score.
	// k <= 0 uses the configured default. An empty store yields an empty slice.
	Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievalResult, error)
}

// AnswerService answers questions grounded in ingested documents.
type AnswerService interface {
	// Answer runs retrieval, prompt assembly and generation for a query.
	// Failures are returned as *domain.AnswerError carrying the failed stage.
	Answer(ctx context.Context, query string, opts domain.AnswerOptions) (*domain.Message, error)
}

// HealthService reports the reachability of external collaborators.
type HealthService interface {
	// Check pings every component and returns their status.
	Check(ctx context.Context) domain.HealthReport
}
