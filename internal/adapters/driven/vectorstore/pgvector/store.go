// Package pgvector provides a vector store on PostgreSQL with the pgvector extension.
// Each collection is a table with a fixed-size vector column ranked by cosine distance.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.VectorStore = (*Store)(nil)
	_ driven.Pinger      = (*Store)(nil)
)

// TablePrefix namespaces collection tables.
const TablePrefix = "rag_vectors_"

// Store is a pgvector-backed vector store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and enables the vector extension.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: pgvector requires vector_store.dsn", domain.ErrConfiguration)
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse postgres config: %w", domain.ErrConfiguration, err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, storeError("connect postgres", err)
	}
	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		pool.Close()
		return nil, storeError("enable vector extension", err)
	}
	return &Store{pool: pool}, nil
}

// EnsureCollection creates the collection table or verifies its dimension.
func (s *Store) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrInvalidInput, dimensions)
	}

	table := tableName(name)
	//nolint:gosec // G201: identifier is sanitised, dimension is an int.
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			version     TEXT NOT NULL,
			embedding   vector(%d) NOT NULL,
			payload     JSONB NOT NULL
		)`, table, dimensions)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return storeError("create collection", err)
	}
	index := pgx.Identifier{TablePrefix + name + "_document"}.Sanitize()
	//nolint:gosec // G201: identifiers are sanitised.
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (document_id, version)", index, table)); err != nil {
		return storeError("create collection index", err)
	}

	existing, err := s.dimensions(ctx, name)
	if err != nil {
		return err
	}
	if existing != dimensions {
		return fmt.Errorf("%w: collection %q has %d dimensions, want %d",
			domain.ErrDimensionMismatch, name, existing, dimensions)
	}
	return nil
}

// Upsert inserts or replaces points in one transaction.
func (s *Store) Upsert(ctx context.Context, name string, points []domain.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}
	dims, err := s.dimensions(ctx, name)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	//nolint:gosec // G201: identifier is sanitised.
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, version, embedding, payload)
		VALUES ($1, $2, $3, $4::vector, $5::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			version = EXCLUDED.version,
			embedding = EXCLUDED.embedding,
			payload = EXCLUDED.payload`, tableName(name))

	for _, p := range points {
		if len(p.Vector) != dims {
			return fmt.Errorf("%w: point %s has %d dimensions, collection %q has %d",
				domain.ErrDimensionMismatch, p.ID, len(p.Vector), name, dims)
		}
		embedding, err := toVector(p.Vector)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		batch.Queue(query, p.ID, p.Payload.DocumentID, p.Payload.Version, embedding, string(payload))
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return storeError("upsert points", err)
	}
	return nil
}

// Delete removes every point matching the filter. A missing collection is not an error.
func (s *Store) Delete(ctx context.Context, name string, filter domain.VectorFilter) error {
	exists, err := s.exists(ctx, name)
	if err != nil || !exists {
		return err
	}

	where, args := filterClause(filter, 1)
	//nolint:gosec // G202: identifier is sanitised, clause uses fixed columns.
	if _, err := s.pool.Exec(ctx, "DELETE FROM "+tableName(name)+where, args...); err != nil {
		return storeError("delete points", err)
	}
	return nil
}

// Query returns up to k nearest points. Score is cosine similarity, 1 - cosine distance.
func (s *Store) Query(
	ctx context.Context, name string, vector []float32, k int, filter domain.VectorFilter,
) ([]domain.VectorHit, error) {
	if k <= 0 {
		return []domain.VectorHit{}, nil
	}
	dims, err := s.dimensions(ctx, name)
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

	embedding, err := toVector(vector)
	if err != nil {
		return nil, err
	}
	where, args := filterClause(filter, 3)
	args = append([]any{embedding, k}, args...)

	//nolint:gosec // G202: identifier is sanitised, clause uses fixed columns.
	query := `
		SELECT id, 1 - (embedding <=> $1::vector) AS score, payload
		FROM ` + tableName(name) + where + `
		ORDER BY embedding <=> $1::vector
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError("query points", err)
	}
	defer rows.Close()

	hits := make([]domain.VectorHit, 0, k)
	for rows.Next() {
		var (
			hit     domain.VectorHit
			payload []byte
		)
		if err := rows.Scan(&hit.ID, &hit.Score, &payload); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		if err := json.Unmarshal(payload, &hit.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload of %s: %w", hit.ID, err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate points", err)
	}
	// Postgres leaves equal distances unordered.
	return vectorstore.TopK(hits, k), nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return storeError("ping", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// dimensions reads the declared size of the embedding column.
// pgvector stores the dimension as the column's type modifier.
func (s *Store) dimensions(ctx context.Context, name string) (int, error) {
	var dims int
	err := s.pool.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = to_regclass($1) AND attname = 'embedding'`, tableName(name)).Scan(&dims)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return 0, storeError("read collection", err)
	}
	return dims, nil
}

func (s *Store) exists(ctx context.Context, name string) (bool, error) {
	_, err := s.dimensions(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func tableName(collection string) string {
	return pgx.Identifier{TablePrefix + collection}.Sanitize()
}

// filterClause returns a WHERE clause whose placeholders start at $first.
func filterClause(filter domain.VectorFilter, first int) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.DocumentID != "" {
		conds = append(conds, "document_id = $"+strconv.Itoa(first+len(args)))
		args = append(args, filter.DocumentID)
	}
	if filter.Version != "" {
		conds = append(conds, "version = $"+strconv.Itoa(first+len(args)))
		args = append(args, filter.Version)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// toVector wraps vec for pgx. pgvector-go's Vector is a driver.Valuer that
// encodes to the extension's text format, so no type registration is needed
// before the extension exists.
func toVector(vec []float32) (pgvec.Vector, error) {
	if len(vec) == 0 {
		return pgvec.Vector{}, fmt.Errorf("%w: vector must not be empty", domain.ErrInvalidInput)
	}
	return pgvec.NewVector(vec), nil
}

// storeError classifies Postgres failures.
func storeError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.Contains(pgErr.Message, "dimensions") {
		return fmt.Errorf("%w: pgvector: %s: %s", domain.ErrDimensionMismatch, op, pgErr.Message)
	}
	return fmt.Errorf("%w: pgvector: %s: %w", domain.ErrStoreUnavailable, op, err)
}
