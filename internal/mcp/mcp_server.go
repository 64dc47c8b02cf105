// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/outpostlabs/outpost/internal/contract"
)

// NewMCPServer initializes and configures the Outpost MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager, client contract.NetworkClient) *server.MCPServer {
	s := server.NewMCPServer(
		"Outpost Sync Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
		client:  client,
	}

	// --- 1. Tool: get_cache_status ---
	s.AddTool(mcp.NewTool("get_cache_status",
		mcp.WithDescription("Report the state of the offline cache store: backend, namespace count, entry count, and size."),
	), h.handleGetCacheStatus)

	// --- 2. Tool: get_queue_status ---
	s.AddTool(mcp.NewTool("get_queue_status",
		mcp.WithDescription("Report the state of the deferred mutation queue: pending count, exhausted count, and per-tag totals."),
	), h.handleGetQueueStatus)

	// --- 3. Tool: list_pending_mutations ---
	s.AddTool(mcp.NewTool("list_pending_mutations",
		mcp.WithDescription("List the deferred write requests waiting for replay, in FIFO order."),
		mcp.WithString("tag", mcp.Description("Queue tag to list (defaults to the configured tag).")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of results returned.")),
	), h.handleListPendingMutations)

	// --- 4. Tool: list_cache_keys ---
	s.AddTool(mcp.NewTool("list_cache_keys",
		mcp.WithDescription("List the cache keys stored in a namespace."),
		mcp.WithString("namespace", mcp.Description("Cache namespace to list."), mcp.Required()),
	), h.handleListCacheKeys)

	// --- 5. Tool: trigger_replay ---
	s.AddTool(mcp.NewTool("trigger_replay",
		mcp.WithDescription("Replay the deferred mutation queue against the upstream origin and report the outcome counts."),
		mcp.WithString("tag", mcp.Description("Queue tag to replay (defaults to the configured tag).")),
	), h.handleTriggerReplay)

	// --- 6. Tool: get_sync_history ---
	s.AddTool(mcp.NewTool("get_sync_history",
		mcp.WithDescription("List recorded replay runs with their triggers and outcome counts."),
		mcp.WithNumber("limit", mcp.Description("Limit the number of runs returned.")),
	), h.handleGetSyncHistory)

	return s
}

// StartMCPServer starts the Outpost MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager, client contract.NetworkClient) error {
	s := NewMCPServer(baseCfg, mgr, client)
	return server.ServeStdio(s)
}
