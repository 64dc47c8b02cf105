package cmd

import (
	"github.com/outpostlabs/outpost/internal/iostore"
	"github.com/outpostlabs/outpost/internal/mcp"
	"github.com/outpostlabs/outpost/internal/netclient"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// mcpCmd starts the MCP server for AI assistant integration.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI assistant integration",
	Long: `Start a Model Context Protocol (MCP) server that exposes cache and
sync queue operations to AI assistants.

The server communicates over stdin/stdout using the MCP protocol and
provides tools for:
- Inspecting cache and queue status
- Listing pending mutations and cached keys
- Triggering replays of deferred mutations
- Reviewing replay history

Configure in your MCP client (e.g. Claude Desktop):
  {
    "mcpServers": {
      "outpost": {
        "command": "outpost",
        "args": ["mcp"]
      }
    }
  }

Examples:
  # Start MCP server (typically invoked by your AI client)
  outpost mcp`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, iostore.Manager, netclient.NewHTTPNetworkClient())
	},
}
