// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under the sercha-rag config directory.
//
// Adapters:
//   - ConfigStore: TOML configuration with SERCHA_RAG_* environment overrides
//   - InstructionsStore: editable instructions that open every answer prompt
package file
