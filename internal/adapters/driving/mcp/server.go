package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is the MCP server version.
const Version = "0.1.0"

const instructions = `sercha-rag answers questions from the documents indexed on this machine.
Use "ask" for a grounded answer with its sources, "retrieve" to inspect the ranked chunks
behind an answer, and "ingest" to add text. Answers only use the indexed documents; when
nothing relevant is indexed the answer says so instead of guessing.`

const shutdownTimeout = 5 * time.Second

// Server exposes the answer pipeline as MCP tools and resources.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "sercha-rag",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions}),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves MCP over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the HTTP surface: streamable MCP on "/", a readiness probe
// on "/healthz" and, when metrics is non-nil, Prometheus on "/metrics".
func (s *Server) Handler(metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	mux.Handle("/", mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil))
	return mux
}

// RunHTTP serves Handler(metrics) on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string, metrics http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleHealthz reports 200 when every component is reachable, 503 otherwise.
// Without a health port the server only reports that it is up.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.ports.Health == nil {
		_, _ = w.Write([]byte(`{"components":[],"document_count":0}`))
		return
	}

	report := s.ports.Health.Check(r.Context())
	if !report.Healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(report)
}
