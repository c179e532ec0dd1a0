package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/salesiq/internal/query"
	"github.com/ziadkadry99/salesiq/internal/retrieval"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the sales query tools.
type Server struct {
	engine *query.Engine
	index  *retrieval.Index
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server. index may be nil, in which case
// search_orders reports that retrieval is disabled.
func NewServer(engine *query.Engine, index *retrieval.Index) *Server {
	s := &Server{
		engine: engine,
		index:  index,
	}

	s.mcp = server.NewMCPServer(
		"salesiq",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(askSalesTool, s.handleAskSales)
	s.mcp.AddTool(predictSalesTool, s.handlePredictSales)
	s.mcp.AddTool(searchOrdersTool, s.handleSearchOrders)
	s.mcp.AddTool(sessionHistoryTool, s.handleSessionHistory)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
