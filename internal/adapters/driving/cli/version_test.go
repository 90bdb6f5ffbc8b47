package cli

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_PrintsVersion(t *testing.T) {
	original := version
	version = "1.2.3"
	defer func() { version = original }()
	SetServices(Services{})

	out, _, err := execute(t, "", "version")

	require.NoError(t, err)
	assert.Contains(t, out, "sercha-rag version 1.2.3")
	assert.Contains(t, out, runtime.Version())
	assert.NotContains(t, out, "embedding:")
}

func TestVersionCmd_PrintsPipeline(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "", "version")

	require.NoError(t, err)
	assert.Contains(t, out, "embedding:    ollama/nomic-embed-text")
	assert.Contains(t, out, "llm:          ollama/llama3.2")
	assert.Contains(t, out, `collection "documents"`)
}

func TestResolvedVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "v0.9.0"
	assert.Equal(t, "v0.9.0", resolvedVersion())

	version = "dev"
	assert.NotEmpty(t, resolvedVersion())
}
