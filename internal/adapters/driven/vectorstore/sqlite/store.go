// Package sqlite stores vectors in an embedded SQLite database and ranks
// them by brute-force cosine similarity. It suits single-user collections
// of up to a few hundred thousand chunks without running a vector server.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	metadb "github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
    name       TEXT PRIMARY KEY,
    dimensions INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS points (
    collection  TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
    id          TEXT NOT NULL,
    document_id TEXT NOT NULL,
    version     TEXT NOT NULL,
    vector      BLOB NOT NULL,
    payload     TEXT NOT NULL,
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_points_document ON points(collection, document_id, version);
`

// Store is a SQLite-backed vector store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) vectors.db in dataDir.
// If dataDir is empty, defaults to ~/.sercha-rag/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		dir, err := metadb.DefaultDataDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, "vectors.db")
	db, err := metadb.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vector schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// EnsureCollection creates the collection or verifies its dimension.
func (s *Store) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO collections (name, dimensions) VALUES (?, ?) ON CONFLICT(name) DO NOTHING",
		name, dimensions)
	if err != nil {
		return storeError("creating collection", err)
	}

	existing, err := s.dimensions(ctx, s.db, name)
	if err != nil {
		return err
	}
	if existing != dimensions {
		return fmt.Errorf("%w: collection %q has %d dimensions, want %d",
			domain.ErrDimensionMismatch, name, existing, dimensions)
	}
	return nil
}

// Upsert inserts or replaces points. The whole batch is rejected on a dimension mismatch.
func (s *Store) Upsert(ctx context.Context, name string, points []domain.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("beginning upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	dims, err := s.dimensions(ctx, tx, name)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (collection, id, document_id, version, vector, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			document_id = excluded.document_id,
			version = excluded.version,
			vector = excluded.vector,
			payload = excluded.payload`)
	if err != nil {
		return storeError("preparing upsert", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if len(p.Vector) != dims {
			return fmt.Errorf("%w: point %s has %d dimensions, collection %q has %d",
				domain.ErrDimensionMismatch, p.ID, len(p.Vector), name, dims)
		}
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("marshalling payload: %w", err)
		}
		_, err = stmt.ExecContext(ctx, name, p.ID, p.Payload.DocumentID, p.Payload.Version,
			encodeVector(p.Vector), string(payload))
		if err != nil {
			return storeError("upserting point "+p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeError("committing upsert", err)
	}
	return nil
}

// Delete removes every point matching the filter.
func (s *Store) Delete(ctx context.Context, name string, filter domain.VectorFilter) error {
	where, args := filterClause(name, filter)
	//nolint:gosec // G202: clause is built from fixed column names.
	if _, err := s.db.ExecContext(ctx, "DELETE FROM points WHERE "+where, args...); err != nil {
		return storeError("deleting points", err)
	}
	return nil
}

// Query scans the matching points and returns the k most similar to vector.
func (s *Store) Query(
	ctx context.Context, name string, vector []float32, k int, filter domain.VectorFilter,
) ([]domain.VectorHit, error) {
	if k <= 0 {
		return []domain.VectorHit{}, nil
	}

	dims, err := s.dimensions(ctx, s.db, name)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.VectorHit{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(vector) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %q has %d",
			domain.ErrDimensionMismatch, len(vector), name, dims)
	}

	where, args := filterClause(name, filter)
	//nolint:gosec // G202: clause is built from fixed column names.
	rows, err := s.db.QueryContext(ctx, "SELECT id, vector, payload FROM points WHERE "+where, args...)
	if err != nil {
		return nil, storeError("querying points", err)
	}
	defer rows.Close()

	hits := []domain.VectorHit{}
	for rows.Next() {
		var (
			id      string
			blob    []byte
			payload string
		)
		if err := rows.Scan(&id, &blob, &payload); err != nil {
			return nil, fmt.Errorf("scanning point: %w", err)
		}
		hit := domain.VectorHit{ID: id, Score: vectorstore.Cosine(vector, decodeVector(blob))}
		if err := json.Unmarshal([]byte(payload), &hit.Payload); err != nil {
			return nil, fmt.Errorf("unmarshalling payload of %s: %w", id, err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("reading points", err)
	}
	return vectorstore.TopK(hits, k), nil
}

// Count returns the number of points in a collection.
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM points WHERE collection = ?", name).Scan(&n)
	if err != nil {
		return 0, storeError("counting points", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storeError("ping", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) dimensions(ctx context.Context, q querier, name string) (int, error) {
	var dims int
	err := q.QueryRowContext(ctx, "SELECT dimensions FROM collections WHERE name = ?", name).Scan(&dims)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return 0, storeError("reading collection", err)
	}
	return dims, nil
}

// filterClause returns the WHERE clause selecting the collection's points matching filter.
func filterClause(name string, filter domain.VectorFilter) (string, []any) {
	conds := []string{"collection = ?"}
	args := []any{name}
	if filter.DocumentID != "" {
		conds = append(conds, "document_id = ?")
		args = append(args, filter.DocumentID)
	}
	if filter.Version != "" {
		conds = append(conds, "version = ?")
		args = append(args, filter.Version)
	}
	return strings.Join(conds, " AND "), args
}

// encodeVector converts a []float32 to a little-endian byte slice for storage.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector converts a byte slice back to []float32.
func decodeVector(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}

// storeError wraps database failures, passing context cancellation through.
func storeError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: sqlite vectors: %s: %w", domain.ErrStoreUnavailable, op, err)
}
