// Package qdrant provides a vector store backed by a Qdrant server over its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.VectorStore = (*Store)(nil)
	_ driven.Pinger      = (*Store)(nil)
)

// Default configuration values.
const (
	DefaultURL     = "http://localhost:6333"
	DefaultTimeout = 15 * time.Second
)

// Config holds configuration for the Qdrant store.
type Config struct {
	// URL is the Qdrant REST endpoint (default: http://localhost:6333).
	URL string

	// APIKey authenticates against Qdrant Cloud. Optional.
	APIKey string

	// Timeout is the HTTP client timeout (default: 15s).
	Timeout time.Duration
}

// Store is a minimal REST client to Qdrant. Collections use cosine distance.
type Store struct {
	baseURL string
	apiKey  string
	client  *http.Client

	mu   sync.RWMutex
	dims map[string]int
}

// point is the Qdrant point format.
type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// condition is a Qdrant field match condition.
type condition struct {
	Key   string `json:"key"`
	Match struct {
		Value string `json:"value"`
	} `json:"match"`
}

type filter struct {
	Must []condition `json:"must,omitempty"`
}

type scoredPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload json.RawMessage `json:"payload"`
}

// errorResponse is the Qdrant error body.
type errorResponse struct {
	Status struct {
		Error string `json:"error"`
	} `json:"status"`
}

// payloadPointID records the caller's ID when it is not a UUID.
const payloadPointID = "point_id"

// New creates a Qdrant store.
func New(cfg Config) *Store {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Store{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		dims:    make(map[string]int),
	}
}

// EnsureCollection creates the collection if missing, or verifies its dimension.
func (s *Store) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrInvalidInput, dimensions)
	}

	existing, err := s.collectionSize(ctx, name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimensions,
				"distance": "Cosine",
			},
		}
		if err := s.do(ctx, http.MethodPut, s.collectionPath(name), body, nil); err != nil {
			return err
		}
		// Keyword indexes keep filtered deletes and queries fast.
		for _, field := range []string{"document_id", "version"} {
			index := map[string]any{"field_name": field, "field_schema": "keyword"}
			if err := s.do(ctx, http.MethodPut, s.collectionPath(name)+"/index?wait=true", index, nil); err != nil {
				return err
			}
		}
	case err != nil:
		return err
	case existing != dimensions:
		return fmt.Errorf("%w: collection %q has %d dimensions, want %d",
			domain.ErrDimensionMismatch, name, existing, dimensions)
	}

	s.mu.Lock()
	s.dims[name] = dimensions
	s.mu.Unlock()
	return nil
}

// Upsert inserts or replaces points and waits for them to be indexed.
func (s *Store) Upsert(ctx context.Context, name string, points []domain.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}
	if err := s.checkDimensions(name, points); err != nil {
		return err
	}

	body := struct {
		Points []point `json:"points"`
	}{Points: make([]point, len(points))}
	for i, p := range points {
		payload, err := toPayload(p.Payload)
		if err != nil {
			return err
		}
		id := p.ID
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(p.ID)).String()
			payload[payloadPointID] = p.ID
		}
		body.Points[i] = point{ID: id, Vector: p.Vector, Payload: payload}
	}

	err := s.do(ctx, http.MethodPut, s.collectionPath(name)+"/points?wait=true", body, nil)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	return err
}

// Delete removes every point matching the filter. A missing collection is not an error.
func (s *Store) Delete(ctx context.Context, name string, f domain.VectorFilter) error {
	body := map[string]any{"filter": toFilter(f)}
	err := s.do(ctx, http.MethodPost, s.collectionPath(name)+"/points/delete?wait=true", body, nil)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// Query returns up to k nearest points ordered by descending score.
func (s *Store) Query(
	ctx context.Context, name string, vector []float32, k int, f domain.VectorFilter,
) ([]domain.VectorHit, error) {
	if k <= 0 {
		return []domain.VectorHit{}, nil
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if !f.IsEmpty() {
		body["filter"] = toFilter(f)
	}

	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionPath(name)+"/points/search", body, &resp)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.VectorHit{}, nil
	}
	if err != nil {
		return nil, err
	}

	hits := make([]domain.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit, err := toHit(r)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Ping checks that the server is up.
func (s *Store) Ping(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Store) collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

// collectionSize returns the vector size of an existing collection.
func (s *Store) collectionSize(ctx context.Context, name string) (int, error) {
	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, s.collectionPath(name), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Config.Params.Vectors.Size, nil
}

// checkDimensions validates points against the size learnt in EnsureCollection.
func (s *Store) checkDimensions(name string, points []domain.VectorPoint) error {
	s.mu.RLock()
	dims, ok := s.dims[name]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	for _, p := range points {
		if len(p.Vector) != dims {
			return fmt.Errorf("%w: point %s has %d dimensions, collection %q has %d",
				domain.ErrDimensionMismatch, p.ID, len(p.Vector), name, dims)
		}
	}
	return nil
}

// do sends a JSON request and decodes the response into out when non-nil.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("qdrant: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: qdrant %s %s: %w", domain.ErrStoreUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(method, path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: qdrant: decode response: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// statusError maps a Qdrant error response onto the domain errors.
func statusError(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	msg := strings.TrimSpace(string(raw))
	var parsed errorResponse
	if json.Unmarshal(raw, &parsed) == nil && parsed.Status.Error != "" {
		msg = parsed.Status.Error
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("qdrant %s %s: %s: %w", method, path, msg, domain.ErrNotFound)
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "dimension"):
		return fmt.Errorf("%w: qdrant: %s", domain.ErrDimensionMismatch, msg)
	default:
		return fmt.Errorf("%w: qdrant %s %s (status %d): %s",
			domain.ErrStoreUnavailable, method, path, resp.StatusCode, msg)
	}
}

func toFilter(f domain.VectorFilter) filter {
	var out filter
	add := func(key, value string) {
		if value == "" {
			return
		}
		c := condition{Key: key}
		c.Match.Value = value
		out.Must = append(out.Must, c)
	}
	add("document_id", f.DocumentID)
	add("version", f.Version)
	return out
}

// toPayload converts the payload through its JSON tags so field names match the filters.
// Numbers stay json.Number so nanosecond sequences keep full precision.
func toPayload(p domain.ChunkPayload) (map[string]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("qdrant: marshal payload: %w", err)
	}
	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("qdrant: convert payload: %w", err)
	}
	return payload, nil
}

func toHit(r scoredPoint) (domain.VectorHit, error) {
	hit := domain.VectorHit{Score: r.Score}
	if err := json.Unmarshal(r.Payload, &hit.Payload); err != nil {
		return hit, fmt.Errorf("%w: qdrant: decode payload: %w", domain.ErrStoreUnavailable, err)
	}

	var extra map[string]any
	_ = json.Unmarshal(r.Payload, &extra)
	if original, ok := extra[payloadPointID].(string); ok {
		hit.ID = original
		return hit, nil
	}

	// IDs are either UUID strings or unsigned integers.
	var id string
	if err := json.Unmarshal(r.ID, &id); err != nil {
		id = string(r.ID)
	}
	hit.ID = id
	return hit, nil
}
