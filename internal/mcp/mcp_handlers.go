package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/outpostlabs/outpost/core"
	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
	client  contract.NetworkClient
}

func (h *toolHandler) handleGetCacheStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := h.mgr.GetCacheStore().GetStatus()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cache status failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetQueueStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := h.mgr.GetMutationStore().GetStatus()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("queue status failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleListPendingMutations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := request.GetString("tag", h.baseCfg.QueueTag)

	pending, err := h.mgr.GetMutationStore().List(ctx, tag)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("queue listing failed: %v", err)), nil
	}

	if l := request.GetInt("limit", 0); l > 0 && l < len(pending) {
		pending = pending[:l]
	}

	type pendingMutation struct {
		Label string `json:"label"`
		schema.DeferredMutation
	}
	enriched := make([]pendingMutation, len(pending))
	for i, m := range pending {
		enriched[i] = pendingMutation{
			Label:            contract.GetPlainAttemptLabel(m.Attempts, h.baseCfg.ReplayMaxAttempts),
			DeferredMutation: m,
		}
	}

	jsonData, _ := json.MarshalIndent(enriched, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleListCacheKeys(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace := request.GetString("namespace", "")
	if namespace == "" {
		return mcp.NewToolResultError("namespace is required"), nil
	}

	keys, err := h.mgr.GetCacheStore().ListKeys(ctx, namespace)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("key listing failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(map[string]any{
		"namespace": namespace,
		"keys":      keys,
	}, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleTriggerReplay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := request.GetString("tag", h.baseCfg.QueueTag)

	replayer := core.NewReplayer(h.baseCfg, h.mgr.GetMutationStore(), h.mgr.GetHistoryStore(), h.client)
	summary, err := replayer.ReplayTag(ctx, schema.ManualTrigger, tag)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("replay failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(summary, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetSyncHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := h.mgr.GetHistoryStore().GetAllRuns()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history listing failed: %v", err)), nil
	}

	if l := request.GetInt("limit", 0); l > 0 && l < len(runs) {
		runs = runs[:l]
	}

	jsonData, _ := json.MarshalIndent(runs, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
