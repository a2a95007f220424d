// Package mcp bridges the tool catalog and the Model Context Protocol: Server
// exposes the catalog to MCP clients, and RemoteGroup turns the tools of a
// remote MCP server into a tool group.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jllopis/spaceagent/pkg/telemetry"
	"github.com/jllopis/spaceagent/pkg/tool"
)

// Dispatcher is what the server needs to list and run tools.
// *tool.Dispatcher satisfies it.
type Dispatcher interface {
	Catalog() *tool.Catalog
	Dispatch(ctx context.Context, name string, input any) tool.Result
}

// Server wraps the mcp-go server and serves every catalog tool through the
// dispatcher.
type Server struct {
	mcpServer  *server.MCPServer
	dispatcher Dispatcher
	logger     *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates an MCP server exposing the dispatcher's catalog.
func NewServer(name, version string, d Dispatcher, opts ...ServerOption) (*Server, error) {
	s := &Server{
		mcpServer:  server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
		dispatcher: d,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = telemetry.Component(s.logger, "mcp")
	for _, desc := range d.Catalog().Descriptors() {
		if err := s.register(desc); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Server) register(desc tool.Descriptor) error {
	schema := json.RawMessage(`{"type":"object"}`)
	if desc.Parameters != nil {
		raw, err := json.Marshal(desc.Parameters)
		if err != nil {
			return err
		}
		schema = raw
	}
	name := desc.Name
	s.mcpServer.AddTool(mcp.NewToolWithRawSchema(name, desc.Description, schema),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return s.call(ctx, name, req), nil
		})
	return nil
}

func (s *Server) call(ctx context.Context, name string, req mcp.CallToolRequest) *mcp.CallToolResult {
	var input any
	if args := req.GetArguments(); len(args) > 0 {
		input = args
	}
	res := s.dispatcher.Dispatch(ctx, name, input)
	if !res.Success {
		s.logger.DebugContext(ctx, "mcp.call.failed", "tool", name, "error", res.Error)
		return mcp.NewToolResultError(res.Error)
	}
	return mcp.NewToolResultText(tool.Format(res.Data))
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves MCP over stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
