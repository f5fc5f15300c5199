package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/relaymesh/collector/internal/collector"
	"github.com/relaymesh/collector/internal/navigate"
	"github.com/relaymesh/collector/internal/prepare"
	"github.com/relaymesh/collector/internal/search"
	"github.com/relaymesh/collector/internal/source"
	"github.com/relaymesh/collector/pkg/version"
)

// serverName identifies this server to MCP clients.
const serverName = "collector"

// Server bridges MCP clients with the collector service.
type Server struct {
	mcp     *mcp.Server
	service *collector.Service
	logger  *slog.Logger
}

// NewServer creates the MCP server and registers its tools.
func NewServer(service *collector.Service, logger *slog.Logger) (*Server, error) {
	if service == nil {
		return nil, errors.New("collector service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		service: service,
		logger:  logger,
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Serve runs the server on the given transport until the context ends.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server",
		slog.String("transport", transport),
		slog.String("version", version.Version))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search indexed documents across all connected sources (Jira, Slack, Gmail, Drive, Confluence, Calendar, GitHub). Supports vector, keyword, and hybrid retrieval with metadata and date filters.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "navigate",
		Description: "Walk the relational neighborhood of a document: previous/next chunk, thread or folder siblings, parent, and children.",
	}, s.handleNavigate)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_document",
		Description: "Fetch a single indexed document by source and id.",
	}, s.handleGetDocument)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "upsert_documents",
		Description: "Index or update documents for one source. Long content is chunked automatically; unchanged content only refreshes metadata.",
	}, s.handleUpsert)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document and all of its chunks from a source's collection.",
	}, s.handleDelete)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "status",
		Description: "Report per-source document counts and embedding provider readiness.",
	}, s.handleStatus)

	s.logger.Debug("MCP tools registered", slog.Int("count", 6))
}

// SearchInput is the search tool request.
type SearchInput struct {
	Query      string         `json:"query" jsonschema:"the search query text"`
	Sources    []string       `json:"sources,omitempty" jsonschema:"restrict to these sources; default all seven"`
	SearchType string         `json:"searchType,omitempty" jsonschema:"vector, keyword, or hybrid; default vector"`
	Limit      int            `json:"limit,omitempty" jsonschema:"page size, default 20"`
	Offset     int            `json:"offset,omitempty" jsonschema:"results to skip, default 0"`
	Where      map[string]any `json:"where,omitempty" jsonschema:"metadata equality filters; primitive values only"`
	StartDate  string         `json:"startDate,omitempty" jsonschema:"inclusive lower bound on createdAt, as YYYY-MM-DD"`
	EndDate    string         `json:"endDate,omitempty" jsonschema:"inclusive upper bound on createdAt, as YYYY-MM-DD"`
	MinScore   float64        `json:"minScore,omitempty" jsonschema:"drop results scoring below this"`
}

// SearchOutput is the search tool response.
type SearchOutput struct {
	Results []search.Result `json:"results"`
	Total   int             `json:"total" jsonschema:"matches before pagination"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	sources, err := parseSources(input.Sources)
	if err != nil {
		return nil, SearchOutput{}, NewInvalidParamsError(err.Error())
	}
	opts := search.Options{
		Sources:   sources,
		Type:      search.Type(input.SearchType),
		Limit:     input.Limit,
		Offset:    input.Offset,
		Where:     input.Where,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		MinScore:  input.MinScore,
	}

	page, err := s.service.Search(ctx, input.Query, opts)
	if err != nil {
		s.logger.Error("search failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}

	s.logger.Info("search completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("results", len(page.Results)),
		slog.Int("total", page.Total))
	return nil, SearchOutput{
		Results: page.Results,
		Total:   page.Total,
		Limit:   page.Limit,
		Offset:  page.Offset,
	}, nil
}

// NavigateInput is the navigate tool request.
type NavigateInput struct {
	DocumentID string `json:"documentId" jsonschema:"the stored document id to navigate from"`
	Direction  string `json:"direction" jsonschema:"prev, next, siblings, parent, or children"`
	Scope      string `json:"scope,omitempty" jsonschema:"chunk, datapoint, or context; unused for parent/children"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum related documents, default 10"`
}

// NavigateOutput is the navigate tool response.
type NavigateOutput struct {
	Current    *navigate.Doc       `json:"current"`
	Related    []navigate.Doc      `json:"related"`
	Navigation navigate.Navigation `json:"navigation"`
}

func (s *Server) handleNavigate(ctx context.Context, _ *mcp.CallToolRequest, input NavigateInput) (*mcp.CallToolResult, NavigateOutput, error) {
	res, err := s.service.Navigate(ctx, input.DocumentID,
		navigate.Direction(input.Direction), navigate.Scope(input.Scope), input.Limit)
	if err != nil {
		return nil, NavigateOutput{}, MapError(err)
	}
	return nil, NavigateOutput{
		Current:    res.Current,
		Related:    res.Related,
		Navigation: res.Navigation,
	}, nil
}

// GetDocumentInput is the get_document tool request.
type GetDocumentInput struct {
	Source string `json:"source" jsonschema:"the data source holding the document"`
	ID     string `json:"id" jsonschema:"the stored document id"`
}

// GetDocumentOutput is the get_document tool response.
type GetDocumentOutput struct {
	Found    bool           `json:"found"`
	Document *search.Result `json:"document,omitempty"`
}

func (s *Server) handleGetDocument(ctx context.Context, _ *mcp.CallToolRequest, input GetDocumentInput) (*mcp.CallToolResult, GetDocumentOutput, error) {
	ds, err := source.Parse(input.Source)
	if err != nil {
		return nil, GetDocumentOutput{}, NewInvalidParamsError(err.Error())
	}
	doc, err := s.service.GetDocument(ctx, ds, input.ID)
	if err != nil {
		return nil, GetDocumentOutput{}, MapError(err)
	}
	return nil, GetDocumentOutput{Found: doc != nil, Document: doc}, nil
}

// DocumentInput is one logical document of an upsert request.
type DocumentInput struct {
	ID       string         `json:"id" jsonschema:"logical document id, unique within the source"`
	Content  string         `json:"content" jsonschema:"full document text"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"document metadata; arrays and objects are JSON-encoded on storage"`
	Chunks   []string       `json:"chunks,omitempty" jsonschema:"pre-chunked content replacing automatic chunking; honored with two or more entries"`
}

// UpsertInput is the upsert_documents tool request.
type UpsertInput struct {
	Source    string          `json:"source" jsonschema:"the data source these documents belong to"`
	Documents []DocumentInput `json:"documents" jsonschema:"the documents to index"`
}

// UpsertOutput is the upsert_documents tool response.
type UpsertOutput struct {
	Indexed int `json:"indexed" jsonschema:"number of documents processed"`
}

func (s *Server) handleUpsert(ctx context.Context, _ *mcp.CallToolRequest, input UpsertInput) (*mcp.CallToolResult, UpsertOutput, error) {
	ds, err := source.Parse(input.Source)
	if err != nil {
		return nil, UpsertOutput{}, NewInvalidParamsError(err.Error())
	}
	documents := toDocuments(input.Documents)
	if err := s.service.UpsertDocuments(ctx, ds, documents); err != nil {
		return nil, UpsertOutput{}, MapError(err)
	}
	return nil, UpsertOutput{Indexed: len(documents)}, nil
}

// DeleteInput is the delete_document tool request.
type DeleteInput struct {
	Source string `json:"source" jsonschema:"the data source holding the document"`
	ID     string `json:"id" jsonschema:"the logical document id to delete"`
}

// DeleteOutput is the delete_document tool response.
type DeleteOutput struct {
	Deleted bool `json:"deleted"`
}

func (s *Server) handleDelete(ctx context.Context, _ *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	ds, err := source.Parse(input.Source)
	if err != nil {
		return nil, DeleteOutput{}, NewInvalidParamsError(err.Error())
	}
	if err := s.service.DeleteDocument(ctx, ds, input.ID); err != nil {
		return nil, DeleteOutput{}, MapError(err)
	}
	return nil, DeleteOutput{Deleted: true}, nil
}

// StatusInput is the status tool request (no parameters).
type StatusInput struct{}

func (s *Server) handleStatus(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, *collector.Status, error) {
	st, err := s.service.Status(ctx)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, st, nil
}

func toDocuments(inputs []DocumentInput) []prepare.Document {
	docs := make([]prepare.Document, len(inputs))
	for i, in := range inputs {
		docs[i] = prepare.Document{
			ID:       in.ID,
			Content:  in.Content,
			Metadata: in.Metadata,
			Chunks:   in.Chunks,
		}
	}
	return docs
}

func parseSources(raw []string) ([]source.DataSource, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]source.DataSource, 0, len(raw))
	for _, r := range raw {
		ds, err := source.Parse(r)
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, nil
}

// generateRequestID creates a short unique id for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
