// Package mcp provides an MCP (Model Context Protocol) server adapter for sercha-rag.
// It lets AI assistants ask questions against the indexed documents and
// manage what is indexed.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")

// errUnavailable is returned by tools whose port was not wired.
var errUnavailable = errors.New("mcp: tool is not available in this configuration")
