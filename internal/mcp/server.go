package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/spark-mcp/internal/config"
	"github.com/dshills/spark-mcp/internal/engine"
	"github.com/dshills/spark-mcp/internal/spark"
	"github.com/dshills/spark-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "SPARK"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	spark     *spark.Client
	history   storage.Storage // nil when run history is disabled
	reference string
}

// NewServer creates a new MCP server instance from configuration
func NewServer(cfg *config.Config) (*Server, error) {
	var history storage.Storage
	if !cfg.HistoryDisabled {
		// Create directory if it doesn't exist
		if err := os.MkdirAll(cfg.DBPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}

		store, err := storage.NewSQLiteStorage(cfg.DBFile())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		history = store
	}

	client := spark.NewClient(engine.NewExecRunner(), spark.Options{
		Rscript:   cfg.Rscript,
		ScriptDir: cfg.ScriptDir,
		TempDir:   cfg.TempDir,
	})

	s, err := newServer(client, history, cfg.ReferenceURL)
	if err != nil {
		if history != nil {
			_ = history.Close()
		}
		return nil, err
	}
	return s, nil
}

// newServer wires an already constructed client and history store
func newServer(client *spark.Client, history storage.Storage, reference string) (*Server, error) {
	if reference == "" {
		reference = config.DefaultReferenceURL
	}

	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion),
		spark:     client,
		history:   history,
		reference: reference,
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown. The caller
// owns Close.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// Close releases the run history database
func (s *Server) Close() error {
	if s.history == nil {
		return nil
	}
	return s.history.Close()
}

// tools returns the statically registered tool set
func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: createObjectTool(), Handler: toolHandler(s.handleCreateObject)},
		{Tool: vcTool(), Handler: toolHandler(s.handleVC)},
		{Tool: testTool(), Handler: toolHandler(s.handleTest)},
		{Tool: listRunsTool(), Handler: toolHandler(s.handleListRuns)},
	}
}

// toolHandler reports handler errors as error results. The framework turns a
// returned error into a bare internal error, dropping the code and data.
func toolHandler(h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := h(ctx, request)
		if err == nil {
			return result, nil
		}
		var mcpErr *MCPError
		if !errors.As(err, &mcpErr) {
			mcpErr = &MCPError{Code: ErrorCodeInternalError, Message: err.Error()}
		}
		return mcpErr.Result(), nil
	}
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	seen := make(map[string]bool)
	for _, t := range s.tools() {
		if seen[t.Tool.Name] {
			return fmt.Errorf("duplicate tool %s", t.Tool.Name)
		}
		seen[t.Tool.Name] = true
	}
	s.mcp.AddTools(s.tools()...)
	return nil
}
