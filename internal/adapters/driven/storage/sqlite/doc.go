// Package sqlite provides the SQLite-backed document metadata store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It records every ingested document,
// its chunks and the version whose vectors are currently active.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-rag/data/metadata.db
//
// # Thread Safety
//
// All operations are thread-safe. CommitDocument and DeleteDocument run in a
// single transaction so readers see either the old or the new version.
package sqlite
