// Package catalogclient calls a toolcatalog server over MCP.
package catalogclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/radutopala/toolcatalog/internal/tools"
)

// Config selects how to reach a server:
// - Command transport (stdio): provide Command
// - Streamable HTTP transport: provide URL
type Config struct {
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"` // Added to the current environment (stdio only)
	URL     string            `json:"url,omitempty"`
}

// NotFoundError is returned by Get when no tool matches.
type NotFoundError struct {
	tools.NotFound
}

func (e *NotFoundError) Error() string {
	return e.NotFound.Error
}

// ToolError reports a tool result flagged as an error, e.g. an invalid
// search query or an unavailable catalog.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Message)
}

// Client is a connected catalog client.
type Client struct {
	session *mcp.ClientSession
	logger  *zap.Logger
}

// Connect starts or dials the server described by cfg.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var transport mcp.Transport
	switch {
	case cfg.URL != "":
		transport = &mcp.StreamableClientTransport{
			Endpoint:   cfg.URL,
			MaxRetries: 5,
		}
		logger.Debug("using streamable http transport", zap.String("endpoint", cfg.URL))
	case cfg.Command != "":
		cmd := exec.Command(cfg.Command, cfg.Args...)
		if len(cfg.Env) > 0 {
			env := os.Environ()
			for k, v := range cfg.Env {
				env = append(env, fmt.Sprintf("%s=%s", k, v))
			}
			cmd.Env = env
		}
		transport = &mcp.CommandTransport{Command: cmd}
		logger.Debug("using stdio transport", zap.String("command", cfg.Command), zap.Strings("args", cfg.Args))
	default:
		return nil, fmt.Errorf("no transport configured: must provide either a command or a url")
	}

	return ConnectTransport(ctx, transport, logger)
}

// ConnectTransport connects over an existing transport.
func ConnectTransport(ctx context.Context, transport mcp.Transport, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := mcp.NewClient(
		&mcp.Implementation{
			Name:    "toolcatalog-client",
			Version: "0.1.0",
		},
		nil,
	)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog server: %w", err)
	}
	return &Client{session: session, logger: logger.Named("catalogclient")}, nil
}

// List calls list_tools. An empty category lists everything; a
// non-positive limit uses the server default.
func (c *Client) List(ctx context.Context, category string, limit int) (tools.ListResult, error) {
	args := map[string]any{}
	if category != "" {
		args["category"] = category
	}
	if limit > 0 {
		args["limit"] = limit
	}
	var out tools.ListResult
	err := c.call(ctx, "list_tools", args, &out)
	return out, err
}

// Search calls search_tools.
func (c *Client) Search(ctx context.Context, query string, limit int) (tools.SearchResult, error) {
	args := map[string]any{"query": query}
	if limit > 0 {
		args["limit"] = limit
	}
	var out tools.SearchResult
	err := c.call(ctx, "search_tools", args, &out)
	return out, err
}

// Get calls get_tool and returns the full record. A miss is a
// *NotFoundError carrying the server's suggestions.
func (c *Client) Get(ctx context.Context, idOrName string) (map[string]any, error) {
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "get_tool",
		Arguments: map[string]any{"tool_id": idOrName},
	})
	if err != nil {
		return nil, fmt.Errorf("tools/call get_tool failed: %w", err)
	}
	text, err := textOf(result)
	if err != nil {
		return nil, err
	}
	if result.IsError {
		return nil, decodeGetError(text)
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(text), &record); err != nil {
		return nil, fmt.Errorf("decode get_tool result: %w", err)
	}
	return record, nil
}

// Categories calls list_categories.
func (c *Client) Categories(ctx context.Context) (tools.CategoriesResult, error) {
	var out tools.CategoriesResult
	err := c.call(ctx, "list_categories", map[string]any{}, &out)
	return out, err
}

// Close ends the session.
func (c *Client) Close() error {
	return c.session.Close()
}

func (c *Client) call(ctx context.Context, name string, args map[string]any, out any) error {
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return fmt.Errorf("tools/call %s failed: %w", name, err)
	}
	text, err := textOf(result)
	if err != nil {
		return err
	}
	if result.IsError {
		var payload tools.ErrorResult
		if err := json.Unmarshal([]byte(text), &payload); err == nil && payload.Error != "" {
			text = payload.Error
		}
		return &ToolError{Tool: name, Message: text}
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode %s result: %w", name, err)
	}
	c.logger.Debug("tool call", zap.String("tool", name), zap.Int("bytes", len(text)))
	return nil
}

func textOf(result *mcp.CallToolResult) (string, error) {
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			return text.Text, nil
		}
	}
	return "", fmt.Errorf("tool result has no text content")
}

// decodeGetError tells a miss from other get_tool failures: only a miss
// carries a suggestions array.
func decodeGetError(text string) error {
	var payload struct {
		tools.ErrorResult
		Suggestions *[]string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil || payload.Error == "" {
		return &ToolError{Tool: "get_tool", Message: text}
	}
	if payload.Suggestions == nil {
		return &ToolError{Tool: "get_tool", Message: payload.Error}
	}
	return &NotFoundError{NotFound: tools.NotFound{
		ErrorResult: payload.ErrorResult,
		Suggestions: *payload.Suggestions,
	}}
}
