// Package domain defines the core business entities for sercha-rag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested document and its active version
//   - Chunk: A contiguous slice of a document, the unit of retrieval
//   - VectorPoint / VectorHit: What is written to and read from a vector store
//   - RetrievalResult: A scored chunk for one query
//   - Message / DebugTrace: An answer and the exact context that produced it
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
