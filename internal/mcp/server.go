// Package mcp exposes the fitness service as Model Context Protocol tools over
// streamable HTTP.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"batfit/internal/logging"
	"batfit/internal/service"
)

const (
	serverName    = "batfit"
	serverVersion = "1.0.0"
	endpointPath  = "/mcp"
)

// Server is the MCP tool server
type Server struct {
	addr string
	http *mcpserver.StreamableHTTPServer
}

// NewServer creates an MCP server for svc listening on addr
func NewServer(svc *service.Service, addr string) *Server {
	return &Server{
		addr: addr,
		http: mcpserver.NewStreamableHTTPServer(
			NewMCPServer(svc),
			mcpserver.WithEndpointPath(endpointPath),
		),
	}
}

// NewMCPServer builds the tool registry without binding a transport
func NewMCPServer(svc *service.Service) *mcpserver.MCPServer {
	deps := &ToolDeps{Service: svc}

	srv := mcpserver.NewMCPServer(
		serverName,
		serverVersion,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	loadTool := mcp.NewTool("load_cache",
		mcp.WithDescription("Replace the reference dataset. Vectors are chromo_len rows of dim values, row-major."),
		mcp.WithString("vectors", mcp.Description("Comma-separated float values, chromo_len*dim of them"), mcp.Required()),
		mcp.WithNumber("chromo_len", mcp.Description("Number of genes per chromosome"), mcp.Required()),
		mcp.WithNumber("dim", mcp.Description("Dimension of each vector"), mcp.Required()),
	)

	evaluateTool := mcp.NewTool("evaluate_batch",
		mcp.WithDescription("Score a batch of bit-chromosomes against the loaded dataset. Each score is the squared distance between the two partition sums."),
		mcp.WithString("chromosomes", mcp.Description("Comma-separated packed 32-bit chunks, chromosome after chromosome")),
		mcp.WithString("bits", mcp.Description("Comma-separated bit strings, one per chromosome, gene 0 rightmost. Used instead of chromosomes.")),
		mcp.WithNumber("chromo_len", mcp.Description("Number of genes per chromosome"), mcp.Required()),
		mcp.WithNumber("dim", mcp.Description("Dimension of each vector"), mcp.Required()),
		mcp.WithNumber("num_bats", mcp.Description("Number of chromosomes in the batch"), mcp.Required()),
	)

	cacheTool := mcp.NewTool("cache_info",
		mcp.WithDescription("Describe the loaded dataset"),
	)

	statsTool := mcp.NewTool("service_stats",
		mcp.WithDescription("Report health and throughput counters of the fitness service"),
	)

	srv.AddTool(loadTool, deps.HandleLoadCache)
	srv.AddTool(evaluateTool, deps.HandleEvaluateBatch)
	srv.AddTool(cacheTool, deps.HandleCacheInfo)
	srv.AddTool(statsTool, deps.HandleStats)

	return srv
}

// Start serves the tools at addr (blocking)
func (s *Server) Start() error {
	logging.Default().Info("MCP server listening on %s%s", s.addr, endpointPath)
	return s.http.Start(s.addr)
}

// Shutdown stops the HTTP transport
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
