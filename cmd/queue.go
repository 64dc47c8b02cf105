package cmd

import (
	"fmt"

	"github.com/outpostlabs/outpost/core"
	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/internal/iostore"
	"github.com/outpostlabs/outpost/internal/netclient"
	"github.com/outpostlabs/outpost/internal/outwriter"
	"github.com/outpostlabs/outpost/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// queueSetup loads minimal configuration needed for queue operations.
// The queue shares the cache database, so cache settings apply; the history
// backend is initialized too so replays can be recorded.
func queueSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get cache-related config values; the outbox shares this database
	backend := schema.DatabaseBackend(viper.GetString("cache-backend"))
	connStr := viper.GetString("cache-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	// Get history-related config values
	historyBackendStr := viper.GetString("history-backend")
	historyConnStr := viper.GetString("history-db-connect")
	historyBackend := schema.DatabaseBackend(historyBackendStr)
	if historyBackendStr != "" {
		if err := contract.ValidateDatabaseConnectionString(historyBackend, historyConnStr); err != nil {
			return err
		}
	}

	maxAttempts := viper.GetInt("replay-max-attempts")
	if err := iostore.InitStores(backend, connStr, historyBackend, historyConnStr, maxAttempts); err != nil {
		return fmt.Errorf("failed to initialize queue: %w", err)
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	cfg.HistoryBackend = historyBackend
	cfg.HistoryDBConnect = historyConnStr
	cfg.ReplayMaxAttempts = maxAttempts
	cfg.ResultLimit = viper.GetInt("limit")
	cfg.Output = schema.OutputMode(viper.GetString("output"))
	cfg.OutputFile = viper.GetString("output-file")
	cfg.Width = viper.GetInt("width")

	cfg.QueueTag = viper.GetString("queue-tag")
	if cfg.QueueTag == "" {
		cfg.QueueTag = schema.DefaultQueueTag
	}

	useColors, err := contract.ParseBoolString(viper.GetString("color"))
	if err != nil {
		return fmt.Errorf("invalid color setting: %w", err)
	}
	cfg.UseColors = useColors

	return nil
}

// queueSetupWrapper wraps queueSetup to provide PreRunE for queue commands.
func queueSetupWrapper(_ *cobra.Command, _ []string) error {
	return queueSetup()
}

// replayTag resolves the queue tag for a replay from the --tag flag.
func replayTag() string {
	if tag := viper.GetString("tag"); tag != "" {
		return tag
	}
	return cfg.QueueTag
}

// queueCmd focused on the deferred mutation queue.
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the deferred mutation queue",
	Long: `Manage write requests that were captured while the upstream was
unreachable.

Queued mutations replay in FIFO order. A mutation leaves the queue only on
confirmed success or explicit cancellation; failures bump an attempt counter
and entries at the attempt ceiling are skipped but retained.

Subcommands:
  status - Show queue statistics
  list   - List pending mutations in replay order
  replay - Replay the queue against the origin now
  cancel - Withdraw one pending mutation by id

Examples:
  # See what is waiting
  outpost queue list

  # Push everything upstream
  outpost queue replay`,
}

// queueStatusCmd shows queue status.
var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display queue statistics and connection details",
	Long: `Show detailed information about the deferred mutation queue.

Displays:
- Backend type and connection status
- Pending and exhausted mutation counts
- Oldest and newest enqueue timestamps
- Per-tag totals

Examples:
  # Check queue status
  outpost queue status`,
	PreRunE: queueSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iostore.Manager.GetMutationStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get queue status", err)
		}
		iostore.PrintQueueStatus(status)
	},
}

// queueListCmd lists pending mutations.
var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending mutations in replay order",
	Long: `List the deferred mutations of the configured queue tag, oldest
first. The Label column flags entries that failed before (Retrying) or hit
the attempt ceiling (Stuck).

Examples:
  # Human-readable table
  outpost queue list

  # Machine-readable export
  outpost queue list --output csv --output-file queue.csv`,
	PreRunE: queueSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		pending, err := iostore.Manager.GetMutationStore().List(rootCtx, cfg.QueueTag)
		if err != nil {
			contract.LogFatal("Failed to list queue", err)
		}
		if cfg.ResultLimit > 0 && len(pending) > cfg.ResultLimit {
			pending = pending[:cfg.ResultLimit]
		}
		if err := outwriter.NewOutWriter().WriteQueue(pending, cfg); err != nil {
			contract.LogFatal("Failed to write queue listing", err)
		}
	},
}

// queueReplayCmd replays the queue.
var queueReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay pending mutations against the origin",
	Long: `Send queued mutations upstream now, in FIFO order.

Each entry resolves independently: confirmed successes leave the queue,
failures stay with a bumped attempt counter, and entries at the attempt
ceiling are skipped. When a history backend is configured the run and its
per-mutation outcomes are recorded.

Examples:
  # Replay the configured tag
  outpost queue replay

  # Replay one tag only
  outpost queue replay --tag checkout-flow`,
	PreRunE: queueSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		replayer := core.NewReplayer(cfg, iostore.Manager.GetMutationStore(), iostore.Manager.GetHistoryStore(), netclient.NewHTTPNetworkClient())
		summary, err := replayer.ReplayTag(rootCtx, schema.ManualTrigger, replayTag())
		if err != nil {
			contract.LogFatal("Failed to replay queue", err)
		}
		fmt.Printf("Replay complete: %d succeeded, %d failed, %d skipped.\n", summary.Successes, summary.Failures, summary.Skipped)
	},
}

// queueCancelCmd withdraws one mutation.
var queueCancelCmd = &cobra.Command{
	Use:   "cancel <mutation-id>",
	Short: "Withdraw one pending mutation by id",
	Long: `Remove a deferred mutation from the queue without sending it.

The id is shown by 'outpost queue list' and returned in the
Outpost-Queued-Id header when a write is deferred.

Examples:
  outpost queue cancel 2f1c9a7e-...`,
	Args:    cobra.ExactArgs(1),
	PreRunE: queueSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		if err := iostore.Manager.GetMutationStore().Remove(rootCtx, args[0]); err != nil {
			contract.LogFatal("Failed to cancel mutation", err)
		}
		fmt.Printf("Mutation %s canceled.\n", args[0])
	},
}
