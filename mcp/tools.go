package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/koalaswap-seed/config"
	"github.com/lukman83/koalaswap-seed/internal/metadata"
	"github.com/lukman83/koalaswap-seed/internal/seedprep"
	"github.com/lukman83/koalaswap-seed/internal/snapshot"
)

type toolHandlers struct {
	cfg *config.Config
	log *slog.Logger
}

func registerTools(s *server.MCPServer, cfg *config.Config, log *slog.Logger) {
	h := &toolHandlers{cfg: cfg, log: log}

	// prepare_seed
	prepareTool := mcp.NewTool("prepare_seed",
		mcp.WithDescription("Normalize the dataset and write user/product seed snapshots; returns the run summary"),
	)
	s.AddTool(prepareTool, h.handlePrepareSeed)

	// seed_status
	statusTool := mcp.NewTool("seed_status",
		mcp.WithDescription("Report which seed artifacts exist in the output directory and their entry counts"),
	)
	s.AddTool(statusTool, h.handleSeedStatus)

	// preview_users
	previewUsersTool := mcp.NewTool("preview_users",
		mcp.WithDescription("Show the first entries of the prepared user seed snapshot"),
		mcp.WithNumber("limit",
			mcp.Description("Number of entries (default: 5)"),
		),
	)
	s.AddTool(previewUsersTool, h.handlePreviewUsers)

	// preview_products
	previewProductsTool := mcp.NewTool("preview_products",
		mcp.WithDescription("Show the first entries of the prepared product seed snapshot"),
		mcp.WithNumber("limit",
			mcp.Description("Number of entries (default: 5)"),
		),
	)
	s.AddTool(previewProductsTool, h.handlePreviewProducts)
}

func (h *toolHandlers) handlePrepareSeed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := seedprep.New(h.cfg, h.log).Run(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("preparation error: %v", err)), nil
	}

	data, _ := json.MarshalIndent(summary, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (h *toolHandlers) handleSeedStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := map[string]any{"output_dir": h.cfg.OutputDir}

	var summary seedprep.Summary
	if err := metadata.ReadJSON(h.cfg.OutputFile("summary.json"), &summary); err == nil {
		status["last_run"] = summary
	}
	if entries, err := snapshot.ReadUsers(h.cfg.OutputFile("user_seed_snapshot.json")); err == nil {
		status["user_snapshot_entries"] = len(entries)
	} else if !os.IsNotExist(err) {
		status["user_snapshot_error"] = err.Error()
	}
	if entries, err := snapshot.ReadProducts(h.cfg.OutputFile("product_seed_snapshot.json")); err == nil {
		status["product_snapshot_entries"] = len(entries)
	} else if !os.IsNotExist(err) {
		status["product_snapshot_error"] = err.Error()
	}
	if entries, err := snapshot.ReadResults(h.cfg.OutputFile("product_import_results.json")); err == nil {
		status["import_results_entries"] = len(entries)
	}

	data, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (h *toolHandlers) handlePreviewUsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 5)

	entries, err := snapshot.ReadUsers(h.cfg.OutputFile("user_seed_snapshot.json"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("snapshot error: %v", err)), nil
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	data, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (h *toolHandlers) handlePreviewProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 5)

	entries, err := snapshot.ReadProducts(h.cfg.OutputFile("product_seed_snapshot.json"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("snapshot error: %v", err)), nil
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	data, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}
