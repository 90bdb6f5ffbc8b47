// Package migrations holds the numbered schema changes of the metadata
// database: documents, their chunks, the active version of each document and
// the vector deletes still owed to the vector store.
package migrations

import "embed"

// FS holds NNN_name.up.sql files, applied in lexical order.
//
//go:embed *.up.sql
var FS embed.FS
