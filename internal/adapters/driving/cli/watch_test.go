package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestWatchCmd_Args(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "", "watch")

	require.Error(t, err)
}

func TestWatchCmd_NoService(t *testing.T) {
	SetServices(Services{})

	_, _, err := execute(t, "", "watch", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion service not configured")
}

func TestWatchCmd_MissingDirectory(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "", "watch", "/definitely/not/here")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDebouncer_CollapsesBursts(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	defer d.stop()

	for _, typ := range []filesystem.ChangeType{filesystem.ChangeCreated, filesystem.ChangeUpdated, filesystem.ChangeUpdated} {
		d.add(filesystem.Change{Type: typ, Path: "/tmp/a.txt"})
	}
	d.add(filesystem.Change{Type: filesystem.ChangeDeleted, Path: "/tmp/b.txt"})

	got := map[string]filesystem.ChangeType{}
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case change := <-d.ready:
			_, dup := got[change.Path]
			require.False(t, dup, "path released twice: %s", change.Path)
			got[change.Path] = change.Type
		case <-timeout:
			t.Fatal("timeout waiting for debounced changes")
		}
	}

	assert.Equal(t, filesystem.ChangeUpdated, got["/tmp/a.txt"])
	assert.Equal(t, filesystem.ChangeDeleted, got["/tmp/b.txt"])

	select {
	case change := <-d.ready:
		t.Fatalf("unexpected extra change: %+v", change)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestDebouncer_StopDropsPending(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	d.add(filesystem.Change{Type: filesystem.ChangeCreated, Path: "/tmp/a.txt"})
	d.stop()
	d.stop()
	d.add(filesystem.Change{Type: filesystem.ChangeCreated, Path: "/tmp/b.txt"})

	select {
	case change := <-d.ready:
		t.Fatalf("unexpected change after stop: %+v", change)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestApplyChange(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	var out, errOut bytes.Buffer
	cmd := watchCmd
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	defer func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	}()
	ctx := context.Background()

	applyChange(ctx, cmd, filesystem.Change{
		Type:     filesystem.ChangeCreated,
		Path:     "/root/docs/a.txt",
		Document: domain.RawDocument{Filename: "a.txt", Content: []byte("alpha")},
	})
	assert.Equal(t, []string{"a.txt"}, ts.ingestion.ingested())
	assert.Contains(t, out.String(), "Ingested a.txt")

	applyChange(ctx, cmd, filesystem.Change{
		Type:     filesystem.ChangeDeleted,
		Path:     "/root/docs/a.txt",
		Document: domain.RawDocument{Filename: "a.txt"},
	})
	assert.Len(t, ts.ingestion.deleted(), 1)
	assert.Contains(t, out.String(), "Removed a.txt")

	// Deleting a file that was never indexed is not an error.
	applyChange(ctx, cmd, filesystem.Change{
		Type:     filesystem.ChangeDeleted,
		Path:     "/root/docs/never.txt",
		Document: domain.RawDocument{Filename: "never.txt"},
	})
	assert.Empty(t, errOut.String())
}
