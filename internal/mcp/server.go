package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/radutopala/toolcatalog/internal/telemetry"
	"github.com/radutopala/toolcatalog/internal/tools"
)

// Tool names exposed by the server.
const (
	ToolListTools      = "list_tools"
	ToolSearchTools    = "search_tools"
	ToolGetTool        = "get_tool"
	ToolListCategories = "list_categories"
)

// IndexSource yields the index to answer from, blocking until one is
// available. *catalog.Catalog implements it.
type IndexSource interface {
	Wait(ctx context.Context) (*tools.Index, error)
}

// Options configures a CatalogServer.
type Options struct {
	Name    string
	Version string

	// ListLimit and SearchLimit apply when a call passes no limit.
	ListLimit   int
	SearchLimit int

	Logger  *zap.Logger
	Metrics telemetry.Metrics
}

// CatalogServer exposes a tool catalog over MCP
type CatalogServer struct {
	server      *mcp.Server
	catalog     IndexSource
	logger      *zap.Logger
	metrics     telemetry.Metrics
	listLimit   int
	searchLimit int
}

// NewCatalogServer creates a server answering from catalog.
func NewCatalogServer(catalog IndexSource, opts Options) *CatalogServer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	if opts.Name == "" {
		opts.Name = "toolcatalog"
	}
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}

	s := &CatalogServer{
		catalog:     catalog,
		logger:      logger.Named("mcp"),
		metrics:     metrics,
		listLimit:   positiveOr(opts.ListLimit, tools.DefaultListLimit),
		searchLimit: positiveOr(opts.SearchLimit, tools.DefaultSearchLimit),
	}

	s.server = mcp.NewServer(
		&mcp.Implementation{
			Name:    opts.Name,
			Version: opts.Version,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Server returns the underlying MCP server.
func (s *CatalogServer) Server() *mcp.Server {
	return s.server
}

// Run serves a single session over transport until it ends or ctx is
// cancelled.
func (s *CatalogServer) Run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// HTTPHandler returns a Streamable HTTP handler serving every session from
// this server.
func (s *CatalogServer) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// ServeHTTP listens on addr until ctx is cancelled.
func (s *CatalogServer) ServeHTTP(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("serving streamable http", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		s.logger.Info("http server stopped")
		return nil
	}
}

func (s *CatalogServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolListTools,
		Description: "List available tools, optionally filtered by category (e.g. 'testing', 'cli', 'deployment'). Returns summaries in catalog order and the total number of matches.",
	}, s.handleListTools)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolSearchTools,
		Description: "Search tools by keyword. Matches names, descriptions, categories, tags and URLs; results are ranked by relevance.",
	}, s.handleSearchTools)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolGetTool,
		Description: "Get the full record of one tool by ID, or by name when no ID matches. Unknown tools return an error with close matches.",
	}, s.handleGetTool)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolListCategories,
		Description: "List every category used by the catalog, sorted.",
	}, s.handleListCategories)
}

// ListToolsInput defines the input for list_tools
type ListToolsInput struct {
	Category string `json:"category,omitempty" jsonschema:"Only return tools in this category (case-insensitive)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of tools to return. Default: 50"`
}

func (s *CatalogServer) handleListTools(ctx context.Context, req *mcp.CallToolRequest, input ListToolsInput) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	idx, err := s.catalog.Wait(ctx)
	if err != nil {
		return s.unavailable(telemetry.OpList, start, err)
	}

	result := idx.List(input.Category, positiveOr(input.Limit, s.listLimit))
	s.logger.Debug("list_tools",
		zap.String("category", input.Category),
		zap.Int("returned", len(result.Tools)),
		zap.Int("total", result.Total),
	)
	return s.respond(telemetry.OpList, telemetry.StatusOK, start, result, false)
}

// SearchToolsInput defines the input for search_tools
type SearchToolsInput struct {
	Query string `json:"query" jsonschema:"Search term, matched case-insensitively as a substring"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results to return. Default: 10"`
}

func (s *CatalogServer) handleSearchTools(ctx context.Context, req *mcp.CallToolRequest, input SearchToolsInput) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	idx, err := s.catalog.Wait(ctx)
	if err != nil {
		return s.unavailable(telemetry.OpSearch, start, err)
	}

	result, err := idx.Search(input.Query, positiveOr(input.Limit, s.searchLimit))
	if err != nil {
		s.logger.Debug("search_tools rejected", zap.String("query", input.Query), zap.Error(err))
		return s.respond(telemetry.OpSearch, telemetry.StatusError, start, tools.ErrorResult{Error: err.Error()}, true)
	}

	s.logger.Debug("search_tools",
		zap.String("query", input.Query),
		zap.Int("returned", len(result.Results)),
		zap.Int("total", result.Total),
	)
	return s.respond(telemetry.OpSearch, telemetry.StatusOK, start, result, false)
}

// GetToolInput defines the input for get_tool
type GetToolInput struct {
	ToolID string `json:"tool_id" jsonschema:"The tool ID or tool name"`
}

func (s *CatalogServer) handleGetTool(ctx context.Context, req *mcp.CallToolRequest, input GetToolInput) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	idx, err := s.catalog.Wait(ctx)
	if err != nil {
		return s.unavailable(telemetry.OpGet, start, err)
	}

	record, ok := idx.Get(input.ToolID)
	if !ok {
		miss := idx.NotFound(input.ToolID)
		s.logger.Debug("get_tool miss", zap.String("tool_id", input.ToolID), zap.Strings("suggestions", miss.Suggestions))
		return s.respond(telemetry.OpGet, telemetry.StatusNotFound, start, miss, true)
	}
	return s.respond(telemetry.OpGet, telemetry.StatusOK, start, record, false)
}

// ListCategoriesInput defines the (empty) input for list_categories
type ListCategoriesInput struct{}

func (s *CatalogServer) handleListCategories(ctx context.Context, req *mcp.CallToolRequest, _ ListCategoriesInput) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	idx, err := s.catalog.Wait(ctx)
	if err != nil {
		return s.unavailable(telemetry.OpCategories, start, err)
	}

	categories := idx.Categories()
	return s.respond(telemetry.OpCategories, telemetry.StatusOK, start, tools.CategoriesResult{
		Categories: categories,
		Total:      len(categories),
	}, false)
}

func (s *CatalogServer) unavailable(op string, start time.Time, err error) (*mcp.CallToolResult, any, error) {
	s.logger.Warn("catalog unavailable", zap.String("op", op), zap.Error(err))
	return s.respond(op, telemetry.StatusError, start, tools.ErrorResult{
		Error: fmt.Sprintf("catalog unavailable: %v", err),
	}, true)
}

func (s *CatalogServer) respond(op, status string, start time.Time, payload any, isError bool) (*mcp.CallToolResult, any, error) {
	s.metrics.ObserveQuery(op, status, time.Since(start))

	text, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s result: %w", op, err)
	}
	return &mcp.CallToolResult{
		IsError: isError,
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(text)},
		},
	}, nil, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
