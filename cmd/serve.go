package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/outpostlabs/outpost/core"
	"github.com/outpostlabs/outpost/internal/gateway"
	"github.com/outpostlabs/outpost/internal/iostore"
	"github.com/outpostlabs/outpost/internal/netclient"
	"github.com/outpostlabs/outpost/internal/notifier"
	"github.com/outpostlabs/outpost/schema"
	"github.com/spf13/cobra"
)

// serveCmd runs the engine and its HTTP gateway.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine and expose it over HTTP",
	Long: `Start the offline cache engine and serve it over HTTP.

The gateway exposes:
- /proxy/...  - cache-first access to the configured origin
- /events/... - host signals (push, sync, connectivity, install prompts)
- /v1/...     - control API (queue, cache, history, lifecycle)

On startup the engine installs the configured generation (precaching the
manifest) and activates it, evicting namespaces from older generations.

Examples:
  # Serve with a precache manifest
  outpost serve --origin https://api.example.com --manifest /index.json,/assets/app.js

  # Stage generation 2 behind the current one
  outpost serve --origin https://api.example.com --generation 2`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		engine := core.NewEngine(
			cfg,
			iostore.Manager,
			netclient.NewHTTPNetworkClient(),
			notifier.NewConsoleNotifier(true),
			notifier.NewSystemOpener(),
			notifier.NewConsolePrompter(true),
		)
		go engine.Run(ctx)

		// Drive the lifecycle to activated before serving traffic
		engine.Dispatch(schema.InstallEvent{})
		engine.Dispatch(schema.ActivateEvent{})

		fmt.Printf("Serving %s for origin %s on %s\n", engine.Lifecycle().Namespace(), cfg.Origin, cfg.ListenAddr)
		return gateway.NewGateway(cfg, engine, iostore.Manager).Serve(ctx)
	},
}
