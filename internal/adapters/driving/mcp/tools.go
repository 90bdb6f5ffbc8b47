package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve (default from settings)"`
	Debug    bool   `json:"debug,omitempty" jsonschema:"include the retrieved chunks and the full prompt"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string             `json:"answer"`
	Sources   []string           `json:"sources"`
	NoContext bool               `json:"no_context,omitempty"`
	Debug     *domain.DebugTrace `json:"debug,omitempty"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the text to find similar chunks for"`
	K     int    `json:"k,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

// ChunkOutput represents a single retrieved chunk.
type ChunkOutput struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Filename string            `json:"filename" jsonschema:"name the document is listed and cited under"`
	Text     string            `json:"text" jsonschema:"plain text content of the document"`
	ID       string            `json:"id,omitempty" jsonschema:"explicit document id; derived from the filename when empty"`
	Metadata map[string]string `json:"metadata,omitempty" jsonschema:"optional key/value metadata"`
}

// DocumentOutput describes one indexed document.
type DocumentOutput struct {
	ID         string            `json:"id"`
	Filename   string            `json:"filename"`
	Version    string            `json:"version"`
	ChunkCount int               `json:"chunk_count"`
	UploadedAt string            `json:"uploaded_at"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ListDocumentsInput is the (empty) input schema for list_documents.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for list_documents.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DeleteDocumentInput is the input schema for delete_document.
type DeleteDocumentInput struct {
	DocumentID string `json:"document_id,omitempty" jsonschema:"id of the document to delete"`
	Filename   string `json:"filename,omitempty" jsonschema:"filename of the document to delete, used when document_id is empty"`
}

// DeleteDocumentOutput is the output schema for delete_document.
type DeleteDocumentOutput struct {
	Deleted bool `json:"deleted"`
}

// HealthInput is the (empty) input schema for health.
type HealthInput struct{}

// defaultRetrieveK bounds the retrieve tool when no k is given.
const defaultRetrieveK = 5

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using the indexed documents, citing the sources used",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the indexed chunks most similar to a query, without generating an answer",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest",
		Description: "Index a text document, replacing any previous version with the same id",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List every indexed document, newest first",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Remove a document and its chunks from the index",
	}, s.handleDeleteDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "health",
		Description: "Report the status of the document store, vector store, embedder and generator",
	}, s.handleHealth)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	msg, err := s.ports.Answer.Answer(ctx, input.Question, domain.AnswerOptions{
		Debug: input.Debug,
		TopK:  input.TopK,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	sources := msg.Sources
	if sources == nil {
		sources = []string{}
	}
	return nil, AskOutput{
		Answer:    msg.Text,
		Sources:   sources,
		NoContext: msg.NoContext,
		Debug:     msg.Debug,
	}, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if s.ports.Retrieval == nil {
		return nil, RetrieveOutput{}, errUnavailable
	}

	k := input.K
	if k <= 0 {
		k = defaultRetrieveK
	}

	results, err := s.ports.Retrieval.Retrieve(ctx, input.Query, k)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Chunks: make([]ChunkOutput, len(results)),
		Count:  len(results),
	}
	for i := range results {
		output.Chunks[i] = ChunkOutput{
			DocumentID: results[i].DocumentID,
			Filename:   results[i].Filename,
			ChunkIndex: results[i].ChunkIndex,
			Score:      results[i].Score,
			Content:    results[i].Content,
		}
	}
	return nil, output, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	if s.ports.Ingestion == nil {
		return nil, DocumentOutput{}, errUnavailable
	}

	doc, err := s.ports.Ingestion.Ingest(ctx, domain.IngestRequest{
		ID:       input.ID,
		Filename: input.Filename,
		Text:     input.Text,
		Metadata: input.Metadata,
	})
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, toDocumentOutput(doc), nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	if s.ports.Ingestion == nil {
		return nil, ListDocumentsOutput{}, errUnavailable
	}

	docs, err := s.ports.Ingestion.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = toDocumentOutput(&docs[i])
	}
	return nil, output, nil
}

// handleDeleteDocument handles the delete_document tool invocation.
func (s *Server) handleDeleteDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteDocumentInput,
) (*mcp.CallToolResult, DeleteDocumentOutput, error) {
	if s.ports.Ingestion == nil {
		return nil, DeleteDocumentOutput{}, errUnavailable
	}

	var err error
	switch {
	case input.DocumentID != "":
		err = s.ports.Ingestion.Delete(ctx, input.DocumentID)
	case input.Filename != "":
		err = s.ports.Ingestion.DeleteByFilename(ctx, input.Filename)
	default:
		return nil, DeleteDocumentOutput{}, fmt.Errorf("%w: document_id or filename is required", domain.ErrInvalidInput)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, DeleteDocumentOutput{Deleted: false}, nil
	}
	if err != nil {
		return nil, DeleteDocumentOutput{}, err
	}
	return nil, DeleteDocumentOutput{Deleted: true}, nil
}

// handleHealth handles the health tool invocation.
func (s *Server) handleHealth(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ HealthInput,
) (*mcp.CallToolResult, domain.HealthReport, error) {
	if s.ports.Health == nil {
		return nil, domain.HealthReport{}, errUnavailable
	}
	return nil, s.ports.Health.Check(ctx), nil
}

func toDocumentOutput(doc *domain.Document) DocumentOutput {
	return DocumentOutput{
		ID:         doc.ID,
		Filename:   doc.Filename,
		Version:    doc.Version,
		ChunkCount: doc.ChunkCount,
		UploadedAt: doc.UploadedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Metadata:   doc.Metadata,
	}
}
