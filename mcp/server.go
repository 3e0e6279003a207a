package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/koalaswap-seed/config"
)

// Serve starts the MCP stdio server with all tools registered.
func Serve(cfg *config.Config, log *slog.Logger) error {
	s := newServer(cfg, log)
	return server.ServeStdio(s)
}

func newServer(cfg *config.Config, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"koalaswap-seed",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	registerTools(s, cfg, log)
	return s
}
