package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func collect(t *testing.T, c *Connector) ([]domain.RawDocument, error) {
	t.Helper()
	docsChan, errsChan := c.Scan(context.Background())
	var docs []domain.RawDocument
	for doc := range docsChan {
		docs = append(docs, doc)
	}
	return docs, <-errsChan
}

func TestConnector_Scan(t *testing.T) {
	t.Run("reads files recursively with relative names", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("content 1"), 0644))
		require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "notes", "b.md"), []byte("# Markdown"), 0644))

		docs, err := collect(t, New(root, nil))

		require.NoError(t, err)
		require.Len(t, docs, 2)
		names := []string{docs[0].Filename, docs[1].Filename}
		sort.Strings(names)
		assert.Equal(t, []string{"a.txt", "notes/b.md"}, names)
	})

	t.Run("skips hidden files and directories", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "visible.txt"), []byte("visible"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden.txt"), []byte("hidden"), 0644))
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "config"), []byte("x"), 0644))

		docs, err := collect(t, New(root, nil))

		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "visible.txt", docs[0].Filename)
	})

	t.Run("filters by extension", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "keep.MD"), []byte("# keep"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "skip.png"), []byte{0x89}, 0644))

		docs, err := collect(t, New(root, []string{".md", ".txt"}))

		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "keep.MD", docs[0].Filename)
		assert.Equal(t, "text/markdown", docs[0].MIMEType)
	})

	t.Run("non-existent directory", func(t *testing.T) {
		docs, err := collect(t, New("/non/existent/path", nil))

		assert.Empty(t, docs)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("cancelled context stops the walk", func(t *testing.T) {
		root := t.TempDir()
		for _, name := range []string{"1.txt", "2.txt", "3.txt"} {
			require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(name), 0644))
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		docsChan, errsChan := New(root, nil).Scan(ctx)
		for range docsChan {
		}

		assert.ErrorIs(t, <-errsChan, context.Canceled)
	})
}

func TestConnector_Validate(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	assert.NoError(t, New(root, nil).Validate())
	assert.ErrorIs(t, New("", nil).Validate(), domain.ErrInvalidInput)
	assert.ErrorIs(t, New(file, nil).Validate(), domain.ErrInvalidInput)
}

func TestConnector_Filename(t *testing.T) {
	c := New("/data/docs", nil)

	assert.Equal(t, "guide/setup.md", c.Filename("/data/docs/guide/setup.md"))
	assert.Equal(t, "other.txt", c.Filename("/elsewhere/other.txt"))
}

func TestConnector_Watch(t *testing.T) {
	t.Run("reports created files", func(t *testing.T) {
		root := t.TempDir()
		c := New(root, nil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		defer c.Close()

		changes, err := c.Watch(ctx)
		require.NoError(t, err)

		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = os.WriteFile(filepath.Join(root, "new-file.txt"), []byte("content"), 0644)
		}()

		select {
		case change := <-changes:
			assert.Equal(t, ChangeCreated, change.Type)
			assert.Equal(t, "new-file.txt", change.Document.Filename)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for file change event")
		}
	})

	t.Run("reports deletions", func(t *testing.T) {
		root := t.TempDir()
		target := filepath.Join(root, "to-delete.txt")
		require.NoError(t, os.WriteFile(target, []byte("delete me"), 0644))
		c := New(root, nil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		defer c.Close()

		changes, err := c.Watch(ctx)
		require.NoError(t, err)

		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = os.Remove(target)
		}()

		select {
		case change := <-changes:
			assert.Equal(t, ChangeDeleted, change.Type)
			assert.Equal(t, "to-delete.txt", change.Document.Filename)
			assert.Empty(t, change.Document.Content)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for delete event")
		}
	})

	t.Run("rejects missing root", func(t *testing.T) {
		_, err := New("/non/existent/path", nil).Watch(context.Background())
		assert.Error(t, err)
	})
}

func TestHandleFsEvent(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "test.txt")
	require.NoError(t, os.WriteFile(file, []byte("content"), 0644))
	hidden := filepath.Join(root, ".hidden.txt")
	require.NoError(t, os.WriteFile(hidden, []byte("hidden"), 0644))
	dir := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(dir, 0755))

	c := New(root, nil)

	tests := []struct {
		name     string
		path     string
		op       fsnotify.Op
		wantType ChangeType
		wantNil  bool
	}{
		{"create", file, fsnotify.Create, ChangeCreated, false},
		{"write", file, fsnotify.Write, ChangeUpdated, false},
		{"write with chmod", file, fsnotify.Write | fsnotify.Chmod, ChangeUpdated, false},
		{"remove", filepath.Join(root, "gone.txt"), fsnotify.Remove, ChangeDeleted, false},
		{"rename", filepath.Join(root, "moved.txt"), fsnotify.Rename, ChangeDeleted, false},
		{"chmod only", file, fsnotify.Chmod, "", true},
		{"directory", dir, fsnotify.Create, "", true},
		{"hidden", hidden, fsnotify.Write, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change := c.handleFsEvent(fsnotify.Event{Name: tt.path, Op: tt.op})

			if tt.wantNil {
				assert.Nil(t, change)
				return
			}
			require.NotNil(t, change)
			assert.Equal(t, tt.wantType, change.Type)
			assert.Equal(t, tt.path, change.Path)
			if tt.wantType != ChangeDeleted {
				assert.Equal(t, []byte("content"), change.Document.Content)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, os.WriteFile(path, []byte("# Report"), 0644))

	doc, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "report.md", doc.Filename)
	assert.Equal(t, "text/markdown", doc.MIMEType)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"file", "text/plain"},
		{"doc.md", "text/markdown"},
		{"FILE.MD", "text/markdown"},
		{"code.go", "text/x-go"},
		{"config.yml", "text/yaml"},
		{"report.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"page.html", "text/html"},
		{"doc.pdf", "application/pdf"},
		{"file.zzzzunknown", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, detectMIMEType(tt.filename))
		})
	}

	assert.NotContains(t, detectMIMEType("page.html"), ";")
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"dir/.git/config", true},
		{"file.txt", false},
		{"path/to/file.txt", false},
		{".", false},
		{"..", false},
		{"path/../file", false},
		{"", false},
		{"file.hidden", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, isHidden(tt.path))
		})
	}
}
