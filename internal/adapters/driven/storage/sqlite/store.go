package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Store is the SQLite metadata database.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultDataDir returns ~/.sercha-rag/data.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".sercha-rag", "data"), nil
}

// Open opens a SQLite database at path with WAL mode and foreign keys enabled.
// The vector store shares these connection settings.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrStoreUnavailable, err)
	}
	return db, nil
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-rag/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// CommitDocument replaces the document row and its chunks in one transaction.
func (s *documentStore) CommitDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (string, error) {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return "", storeError("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var previous string
	err = tx.QueryRowContext(ctx, "SELECT version FROM documents WHERE id = ?", doc.ID).Scan(&previous)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", storeError("reading previous version", err)
	}

	// Deleting the row cascades to the old chunks.
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", doc.ID); err != nil {
		return "", storeError("replacing document", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, filename, version, chunk_count, metadata, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.Version, doc.ChunkCount, string(metadataJSON), doc.UploadedAt.UTC())
	if err != nil {
		return "", storeError("saving document", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, idx, content, start_pos, end_pos, headers)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", storeError("preparing chunk insert", err)
	}
	defer stmt.Close()

	for i := range chunks {
		c := &chunks[i]
		headers, err := marshalHeaders(c.Headers)
		if err != nil {
			return "", err
		}
		if _, err := stmt.ExecContext(ctx, c.ID, doc.ID, c.Index, c.Content, c.Start, c.End, headers); err != nil {
			return "", storeError(fmt.Sprintf("saving chunk %d", c.Index), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", storeError("committing document", err)
	}
	return previous, nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, filename, version, chunk_count, metadata, uploaded_at
		FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// GetChunks retrieves all chunks for a document ordered by index.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, idx, content, start_pos, end_pos, headers
		FROM chunks WHERE document_id = ? ORDER BY idx`, documentID)
	if err != nil {
		return nil, storeError("querying chunks", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var headers string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content, &c.Start, &c.End, &headers); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if headers != "[]" {
			if err := json.Unmarshal([]byte(headers), &c.Headers); err != nil {
				return nil, fmt.Errorf("unmarshalling headers of chunk %s: %w", c.ID, err)
			}
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteDocument removes a document and its chunks and returns its active version.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) (string, error) {
	var version string
	err := s.store.db.QueryRowContext(ctx,
		"DELETE FROM documents WHERE id = ? RETURNING version", id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", storeError("deleting document", err)
	}
	return version, nil
}

// ListDocuments returns all documents, newest upload first.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, filename, version, chunk_count, metadata, uploaded_at
		FROM documents ORDER BY uploaded_at DESC, id`)
	if err != nil {
		return nil, storeError("querying documents", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// ActiveVersions maps known document IDs to their active version.
func (s *documentStore) ActiveVersions(ctx context.Context, ids []string) (map[string]string, error) {
	versions := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return versions, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	//nolint:gosec // G201: placeholders only, values are bound.
	query := "SELECT id, version FROM documents WHERE id IN (" + placeholders + ")"
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("querying versions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, version string
		if err := rows.Scan(&id, &version); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		versions[id] = version
	}
	return versions, rows.Err()
}

// CountDocuments returns the number of documents.
func (s *documentStore) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, storeError("counting documents", err)
	}
	return n, nil
}

// RecordPendingDelete remembers a version whose vectors still need deleting.
func (s *documentStore) RecordPendingDelete(ctx context.Context, documentID, version string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO pending_deletes (document_id, version, recorded_at)
		VALUES (?, ?, ?)
		ON CONFLICT (document_id, version) DO NOTHING`,
		documentID, version, time.Now().UTC())
	if err != nil {
		return storeError("recording pending delete", err)
	}
	return nil
}

// PendingDeletes lists recorded deletes, oldest first.
func (s *documentStore) PendingDeletes(ctx context.Context, documentID string) ([]domain.PendingDelete, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, version, recorded_at FROM pending_deletes
		WHERE ? = '' OR document_id = ?
		ORDER BY recorded_at, document_id, version`, documentID, documentID)
	if err != nil {
		return nil, storeError("querying pending deletes", err)
	}
	defer rows.Close()

	pending := []domain.PendingDelete{}
	for rows.Next() {
		var p domain.PendingDelete
		if err := rows.Scan(&p.DocumentID, &p.Version, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning pending delete: %w", err)
		}
		p.RecordedAt = p.RecordedAt.UTC()
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// ResolvePendingDelete forgets a recorded delete.
func (s *documentStore) ResolvePendingDelete(ctx context.Context, documentID, version string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM pending_deletes WHERE document_id = ? AND version = ?", documentID, version)
	if err != nil {
		return storeError("resolving pending delete", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row.
func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON string
	var uploadedAt time.Time

	err := row.Scan(&doc.ID, &doc.Filename, &doc.Version, &doc.ChunkCount, &metadataJSON, &uploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}
	doc.UploadedAt = uploadedAt.UTC()
	return &doc, nil
}

// marshalHeaders encodes chunk headers, storing none as an empty array.
func marshalHeaders(headers []string) (string, error) {
	if len(headers) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(headers)
	if err != nil {
		return "", fmt.Errorf("marshalling headers: %w", err)
	}
	return string(data), nil
}

// storeError wraps database failures, passing context cancellation through.
func storeError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
