package qdrant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// request is one call recorded by the fake server.
type request struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeQdrant records requests and answers with canned responses keyed by "METHOD path".
type fakeQdrant struct {
	mu        sync.Mutex
	requests  []request
	responses map[string]func(w http.ResponseWriter)
}

func newFake(t *testing.T) (*fakeQdrant, *Store) {
	t.Helper()
	f := &fakeQdrant{responses: make(map[string]func(w http.ResponseWriter))}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, New(Config{URL: server.URL + "/", APIKey: "secret"})
}

func (f *fakeQdrant) on(method, path string, status int, body string) {
	f.responses[method+" "+path] = func(w http.ResponseWriter) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	raw, _ := io.ReadAll(r.Body)
	if len(raw) > 0 {
		dec := json.NewDecoder(strings.NewReader(string(raw)))
		dec.UseNumber()
		_ = dec.Decode(&body)
	}
	if r.Header.Get("api-key") != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, request{Method: r.Method, Path: r.URL.Path, Body: body})
	respond, ok := f.responses[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		_, _ = io.WriteString(w, `{"result":true,"status":"ok"}`)
		return
	}
	respond(w)
}

func (f *fakeQdrant) last() request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func payload(doc, version string) domain.ChunkPayload {
	return domain.ChunkPayload{
		DocumentID: doc,
		Filename:   doc + ".md",
		Version:    version,
		ChunkIndex: 1,
		Content:    "hello",
		Start:      10,
		End:        15,
		Sequence:   1767225600123456789,
	}
}

func TestEnsureCollection_CreatesMissing(t *testing.T) {
	f, s := newFake(t)
	f.on(http.MethodGet, "/collections/docs", http.StatusNotFound,
		`{"status":{"error":"Not found: Collection docs doesn't exist!"}}`)

	require.NoError(t, s.EnsureCollection(context.Background(), "docs", 384))

	require.GreaterOrEqual(t, len(f.requests), 2)
	create := f.requests[1]
	assert.Equal(t, http.MethodPut, create.Method)
	assert.Equal(t, "/collections/docs", create.Path)
	vectors := create.Body["vectors"].(map[string]any)
	assert.Equal(t, json.Number("384"), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])
	assert.Equal(t, "/collections/docs/index", f.last().Path)
}

func TestEnsureCollection_DimensionMismatch(t *testing.T) {
	f, s := newFake(t)
	f.on(http.MethodGet, "/collections/docs", http.StatusOK,
		`{"result":{"config":{"params":{"vectors":{"size":768,"distance":"Cosine"}}}}}`)

	err := s.EnsureCollection(context.Background(), "docs", 384)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	assert.NoError(t, s.EnsureCollection(context.Background(), "docs", 768))
}

func TestUpsert_SendsPointsWithPayload(t *testing.T) {
	f, s := newFake(t)
	id := uuid.NewString()

	err := s.Upsert(context.Background(), "docs", []domain.VectorPoint{
		{ID: id, Vector: []float32{0.5, 1}, Payload: payload("doc-1", "v1")},
	})
	require.NoError(t, err)

	req := f.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/collections/docs/points", req.Path)
	points := req.Body["points"].([]any)
	require.Len(t, points, 1)
	p := points[0].(map[string]any)
	assert.Equal(t, id, p["id"])
	pl := p["payload"].(map[string]any)
	assert.Equal(t, "doc-1", pl["document_id"])
	assert.Equal(t, "v1", pl["version"])
	assert.Equal(t, json.Number("1767225600123456789"), pl["sequence"])
	assert.NotContains(t, pl, payloadPointID)
}

func TestUpsert_NonUUIDIDIsMapped(t *testing.T) {
	f, s := newFake(t)

	require.NoError(t, s.Upsert(context.Background(), "docs", []domain.VectorPoint{
		{ID: "doc-1:0", Vector: []float32{1}, Payload: payload("doc-1", "v1")},
	}))

	p := f.last().Body["points"].([]any)[0].(map[string]any)
	_, err := uuid.Parse(p["id"].(string))
	assert.NoError(t, err)
	assert.Equal(t, "doc-1:0", p["payload"].(map[string]any)[payloadPointID])
}

func TestUpsert_DimensionMismatchAfterEnsure(t *testing.T) {
	f, s := newFake(t)
	f.on(http.MethodGet, "/collections/docs", http.StatusOK,
		`{"result":{"config":{"params":{"vectors":{"size":2}}}}}`)
	require.NoError(t, s.EnsureCollection(context.Background(), "docs", 2))

	err := s.Upsert(context.Background(), "docs", []domain.VectorPoint{
		{ID: uuid.NewString(), Vector: []float32{1, 2, 3}},
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestUpsert_ServerDimensionError(t *testing.T) {
	f, s := newFake(t)
	f.on(http.MethodPut, "/collections/docs/points", http.StatusBadRequest,
		`{"status":{"error":"Wrong input: Vector dimension error: expected dim: 2, got 3"}}`)

	err := s.Upsert(context.Background(), "docs", []domain.VectorPoint{
		{ID: uuid.NewString(), Vector: []float32{1, 2, 3}},
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestDelete_BuildsFilter(t *testing.T) {
	f, s := newFake(t)

	require.NoError(t, s.Delete(context.Background(), "docs", domain.VectorFilter{DocumentID: "doc-1", Version: "v2"}))

	req := f.last()
	assert.Equal(t, "/collections/docs/points/delete", req.Path)
	must := req.Body["filter"].(map[string]any)["must"].([]any)
	require.Len(t, must, 2)
	first := must[0].(map[string]any)
	assert.Equal(t, "document_id", first["key"])
	assert.Equal(t, "doc-1", first["match"].(map[string]any)["value"])
}

func TestDelete_MissingCollectionIsNotAnError(t *testing.T) {
	f, s := newFake(t)
	f.on(http.MethodPost, "/collections/docs/points/delete", http.StatusNotFound, `{}`)

	assert.NoError(t, s.Delete(context.Background(), "docs", domain.VectorFilter{DocumentID: "x"}))
}

func TestQuery_DecodesHits(t *testing.T) {
	f, s := newFake(t)
	f.on(http.MethodPost, "/collections/docs/points/search", http.StatusOK, `{"result":[
		{"id":"6f1c1e1a-0000-4000-8000-000000000001","score":0.91,"payload":{"document_id":"doc-1","filename":"doc-1.md","version":"v1","chunk_index":1,"content":"hello","start":10,"end":15,"sequence":1767225600123456789}},
		{"id":42,"score":0.5,"payload":{"document_id":"doc-2","point_id":"custom-id","content":"bye"}}
	]}`)

	hits, err := s.Query(context.Background(), "docs", []float32{1, 0}, 2, domain.VectorFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "6f1c1e1a-0000-4000-8000-000000000001", hits[0].ID)
	assert.InDelta(t, 0.91, hits[0].Score, 1e-9)
	assert.Equal(t, payload("doc-1", "v1"), hits[0].Payload)
	assert.Equal(t, "custom-id", hits[1].ID)

	req := f.last()
	assert.Equal(t, json.Number("2"), req.Body["limit"])
	assert.Equal(t, true, req.Body["with_payload"])
	assert.NotContains(t, req.Body, "filter")
}

func TestQuery_MissingCollectionIsEmpty(t *testing.T) {
	f, s := newFake(t)
	f.on(http.MethodPost, "/collections/docs/points/search", http.StatusNotFound, `{}`)

	hits, err := s.Query(context.Background(), "docs", []float32{1, 0}, 5, domain.VectorFilter{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestQuery_ServerError(t *testing.T) {
	f, s := newFake(t)
	f.on(http.MethodPost, "/collections/docs/points/search", http.StatusInternalServerError,
		`{"status":{"error":"Service internal error"}}`)

	_, err := s.Query(context.Background(), "docs", []float32{1, 0}, 5, domain.VectorFilter{})
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "Service internal error")
}

func TestPing(t *testing.T) {
	_, s := newFake(t)
	assert.NoError(t, s.Ping(context.Background()))

	unreachable := New(Config{URL: "http://127.0.0.1:1"})
	assert.ErrorIs(t, unreachable.Ping(context.Background()), domain.ErrStoreUnavailable)
}
