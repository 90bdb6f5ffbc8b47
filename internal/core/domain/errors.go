package domain

import "errors"

// Domain errors represent business logic failures.
// Adapters wrap transport errors in one of these so callers can branch with errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDocumentNotFound indicates the requested document does not exist.
	ErrDocumentNotFound = ErrNotFound

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates invalid settings, such as overlap >= chunk size.
	// Reported at construction time, never mid-operation.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmptyDocument indicates a document produced no chunks.
	ErrEmptyDocument = errors.New("no content indexed: document is empty")

	// ErrEmbeddingUnavailable indicates the embedding service failed or is unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreUnavailable indicates the vector store failed or is unreachable.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrDimensionMismatch indicates a vector whose length differs from the collection dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrGenerationUnavailable indicates the generation service failed or is unreachable.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrGenerationTimeout indicates the generation service did not answer in time.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrInconsistentState indicates a failed rollback left orphaned vectors.
	// Requires manual reconciliation.
	ErrInconsistentState = errors.New("inconsistent state: manual reconciliation required")
)

// permanentErrors are failures that will not succeed on a blind retry with the same input.
var permanentErrors = []error{
	ErrConfiguration,
	ErrEmptyDocument,
	ErrDimensionMismatch,
	ErrInvalidInput,
	ErrInconsistentState,
	ErrNotFound,
}

// IsPermanent reports whether err should not be retried with the same input.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range permanentErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is worth retrying later.
func IsTransient(err error) bool {
	return err != nil && !IsPermanent(err)
}
