// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Embedder: Converts text to vectors (Ollama, OpenAI, hashing)
//   - VectorStore: Upsert/delete/query vectors (memory, SQLite, Qdrant, pgvector)
//   - Generator: Produces answers from prompts (Ollama, OpenAI, Anthropic)
//   - DocumentStore: Document and chunk metadata, active versions
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - Pinger / Dimensioned: Capabilities probed with type assertions
//   - Normaliser: File to text conversion
//   - Metrics: Outcome counters; nil disables recording
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
