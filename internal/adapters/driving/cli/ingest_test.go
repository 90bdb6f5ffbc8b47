package cli

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestCmd_NoService(t *testing.T) {
	SetServices(Services{})

	_, _, err := execute(t, "", "ingest", "x.txt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion service not configured")
}

func TestIngestCmd_NothingToIngest(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "", "ingest")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to ingest")
}

func TestIngestCmd_Text(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "", "ingest", "--name", "faq.txt", "--text", "Refunds take 5 days.", "--id", "faq")

	require.NoError(t, err)
	assert.Contains(t, out, "Ingested faq.txt (1 chunks, id faq)")
	require.Contains(t, ts.ingestion.Documents, "faq")
	assert.Equal(t, "Refunds take 5 days.", ts.ingestion.Documents["faq"].Chunks[0].Content)
}

func TestIngestCmd_TextValidation(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "", "ingest", "--text", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name is required")

	_, _, err = execute(t, "", "ingest", "--text", "hello", "--name", "a.txt", "b.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be combined")
}

func TestIngestCmd_File(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\n\nbody"), 0o600))

	out, _, err := execute(t, "", "ingest", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Ingested notes.md")
	assert.Equal(t, []string{"notes.md"}, ts.ingestion.ingested())
}

func TestIngestCmd_MissingFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "", "ingest", filepath.Join(t.TempDir(), "missing.txt"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot read")
}

func TestIngestCmd_Directory(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.md"), []byte("beta"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89}, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("secret"), 0o600))

	out, _, err := execute(t, "", "ingest", dir)

	require.NoError(t, err)
	got := ts.ingestion.ingested()
	sort.Strings(got)
	assert.Equal(t, []string{"a.txt", "sub/b.md"}, got)
	assert.Contains(t, out, "Ingested 2 of 2 files")
}

func TestIngestCmd_EmptyDirectory(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	dir := t.TempDir()

	out, _, err := execute(t, "", "ingest", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "No supported files found")
}

func TestIngestCmd_FailuresReported(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingestion.IngestErr = errBoom
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha"), 0o600))

	_, errOut, err := execute(t, "", "ingest", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 files failed")
	assert.Contains(t, errOut, "Failed a.txt: boom")
}
