// Package filesystem feeds local files into ingestion: a one-off scan of a
// directory tree and a live watch that reports created, updated and
// deleted files.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// DefaultMaxFileSize skips files larger than 50 MiB.
const DefaultMaxFileSize = 50 << 20

// ChangeType classifies a watched file event.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is one file event. Document.Content is empty for deletions.
type Change struct {
	Type     ChangeType
	Path     string
	Document domain.RawDocument
}

// Connector reads files below a root directory. Document filenames are
// slash-separated paths relative to the root so the same file always maps
// to the same document ID.
type Connector struct {
	rootPath    string
	extensions  []string
	maxFileSize int64

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// New creates a connector for rootPath. When extensions is non-empty only
// files with one of those extensions are read.
func New(rootPath string, extensions []string) *Connector {
	exts := make([]string, len(extensions))
	for i, ext := range extensions {
		exts[i] = strings.ToLower(ext)
	}
	return &Connector{
		rootPath:    rootPath,
		extensions:  exts,
		maxFileSize: DefaultMaxFileSize,
	}
}

// Validate checks the root exists and is a directory.
func (c *Connector) Validate() error {
	if c.rootPath == "" {
		return fmt.Errorf("%w: root path is required", domain.ErrInvalidInput)
	}
	info, err := os.Stat(c.rootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: directory does not exist: %s", domain.ErrInvalidInput, c.rootPath)
		}
		return fmt.Errorf("stat %s: %w", c.rootPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: not a directory: %s", domain.ErrInvalidInput, c.rootPath)
	}
	return nil
}

// Scan walks the tree and streams every eligible file. Both channels are
// closed when the walk ends; a walk error is sent before closing.
func (c *Connector) Scan(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		if err := c.Validate(); err != nil {
			errs <- err
			return
		}

		err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn("Skipping %s: %v", path, err)
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if path != c.rootPath && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !c.eligible(path) {
				return nil
			}

			doc, err := c.readFile(path)
			if err != nil {
				logger.Warn("Skipping %s: %v", path, err)
				return nil
			}

			select {
			case docs <- *doc:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errs <- err
		}
	}()

	return docs, errs
}

// Watch reports file changes below the root until ctx is cancelled.
// New subdirectories are watched as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan Change, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := c.addTree(watcher, c.rootPath); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	c.mu.Lock()
	c.watcher = watcher
	c.mu.Unlock()

	changes := make(chan Change)
	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(event.Name) {
						if err := c.addTree(watcher, event.Name); err != nil {
							logger.Warn("Cannot watch %s: %v", event.Name, err)
						}
						continue
					}
				}
				change := c.handleFsEvent(event)
				if change == nil {
					continue
				}
				select {
				case changes <- *change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error: %v", err)
			}
		}
	}()

	return changes, nil
}

// Close stops an active watch.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	c.watcher = nil
	return err
}

// Filename returns the document filename for an absolute path.
func (c *Connector) Filename(path string) string {
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

// addTree watches dir and every visible subdirectory.
func (c *Connector) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.rootPath && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// handleFsEvent converts a raw event into a Change, or nil when the event
// is irrelevant (chmod, directories, hidden or ineligible files).
func (c *Connector) handleFsEvent(event fsnotify.Event) *Change {
	if isHidden(c.Filename(event.Name)) || !c.eligible(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{
			Type: ChangeDeleted,
			Path: event.Name,
			Document: domain.RawDocument{
				Filename: c.Filename(event.Name),
				MIMEType: detectMIMEType(event.Name),
			},
		}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		doc, err := c.readFile(event.Name)
		if err != nil {
			logger.Warn("Cannot read %s: %v", event.Name, err)
			return nil
		}
		changeType := ChangeUpdated
		if event.Has(fsnotify.Create) {
			changeType = ChangeCreated
		}
		return &Change{Type: changeType, Path: event.Name, Document: *doc}
	default:
		return nil
	}
}

// eligible reports whether path has an accepted extension.
func (c *Connector) eligible(path string) bool {
	if len(c.extensions) == 0 {
		return true
	}
	return slices.Contains(c.extensions, strings.ToLower(filepath.Ext(path)))
}

func (c *Connector) readFile(path string) (*domain.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > c.maxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidInput, path, c.maxFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &domain.RawDocument{
		Filename: c.Filename(path),
		MIMEType: detectMIMEType(path),
		Content:  content,
	}, nil
}

// ReadFile loads a single file outside any root.
func ReadFile(path string) (*domain.RawDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", domain.ErrInvalidInput, path)
		}
		return nil, err
	}
	return &domain.RawDocument{
		Filename: filepath.Base(path),
		MIMEType: detectMIMEType(path),
		Content:  content,
	}, nil
}

// fallbackMIMETypes covers extensions the mime package does not know.
var fallbackMIMETypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".rs":       "text/x-rust",
	".ts":       "text/typescript",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".sh":       "text/x-shellscript",
	".sql":      "text/x-sql",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// detectMIMEType guesses a MIME type from the extension, without parameters.
func detectMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "text/plain"
	}
	if mt, ok := fallbackMIMETypes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		if i := strings.Index(mt, ";"); i >= 0 {
			mt = mt[:i]
		}
		return strings.TrimSpace(mt)
	}
	return "application/octet-stream"
}

// isHidden reports whether any path element starts with a dot.
// "." and ".." do not count.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
