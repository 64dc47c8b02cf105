package cmd

import (
	"fmt"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/internal/iostore"
	"github.com/outpostlabs/outpost/internal/outwriter"
	"github.com/outpostlabs/outpost/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historySetup loads minimal configuration needed for history operations.
// This is used by commands that need history access without full shared setup.
func historySetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get history-related config values
	backendStr := viper.GetString("history-backend")
	connStr := viper.GetString("history-db-connect")

	// Handle empty backend as NoneBackend
	var backend schema.DatabaseBackend
	if backendStr == "" {
		backend = schema.NoneBackend
	} else {
		backend = schema.DatabaseBackend(backendStr)
	}

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	// Get output-related config values (used by the export and list paths)
	outputFile := viper.GetString("output-file")

	// Initialize stores with the loaded config (no cache access for history commands)
	if err := iostore.InitStores(schema.NoneBackend, "", backend, connStr, viper.GetInt("replay-max-attempts")); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = outputFile
	cfg.Output = schema.OutputMode(viper.GetString("output"))
	cfg.ResultLimit = viper.GetInt("limit")
	cfg.Width = viper.GetInt("width")

	return nil
}

// historySetupWrapper wraps historySetup to provide PreRunE for history commands.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	return historySetup()
}

// historyMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize stores or create tables,
// allowing migrations to run on a fresh database.
func historyMigrateSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get history-related config values
	backendStr := viper.GetString("history-backend")
	connStr := viper.GetString("history-db-connect")

	// Handle empty backend as NoneBackend
	var backend schema.DatabaseBackend
	if backendStr == "" {
		backend = schema.NoneBackend
	} else {
		backend = schema.DatabaseBackend(backendStr)
	}

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetHistoryDBFilePath()
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr

	return nil
}

// historyMigrateSetupWrapper wraps historyMigrateSetup to provide PreRunE for migrate command.
func historyMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return historyMigrateSetup()
}

// historyCmd focused on replay history management.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage replay history tracking and exports",
	Long: `Manage recorded replay runs and their per-mutation outcomes.

When enabled, Outpost records every replay run, storing:
- Run metadata (trigger, start and end time, outcome counts)
- Per-mutation outcomes (success, failure, skipped) with attempt numbers

This enables sync reliability reporting and data export for BI tools.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show replay history statistics
  runs    - List recorded replay runs
  export  - Export data to Parquet for analytics
  clear   - Remove all history data
  migrate - Run database schema migrations

Examples:
  # Check history status
  outpost history status

  # Export for analysis in pandas/DuckDB
  outpost history export --output-file sync-history.parquet`,
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display replay history statistics and connection details",
	Long: `Show detailed information about replay history tracking.

Displays:
- Backend type and connection status
- Total number of recorded runs and outcomes
- Last and oldest run timestamps
- Database table sizes

Examples:
  # Check replay history status
  outpost history status`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iostore.Manager.GetHistoryStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
		iostore.PrintHistoryStatus(status)
	},
}

// historyRunsCmd lists recorded replay runs.
var historyRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded replay runs",
	Long: `List every recorded replay run with its trigger, duration, and
outcome counts.

Examples:
  # Human-readable table
  outpost history runs

  # Machine-readable export
  outpost history runs --output json`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runs, err := iostore.Manager.GetHistoryStore().GetAllRuns()
		if err != nil {
			contract.LogFatal("Failed to list replay runs", err)
		}
		if cfg.ResultLimit > 0 && len(runs) > cfg.ResultLimit {
			runs = runs[:cfg.ResultLimit]
		}
		if err := outwriter.NewOutWriter().WriteHistory(runs, cfg); err != nil {
			contract.LogFatal("Failed to write replay runs", err)
		}
	},
}

// historyClearCmd clears the history data.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all replay history data",
	Long: `Delete all stored replay runs and mutation outcomes.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before clearing
  outpost history export --output-file backup.parquet
  outpost history clear`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iostore.ClearHistory(cfg.HistoryBackend, contract.GetHistoryDBFilePath(), cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear history data", err)
		}
		fmt.Println("History data cleared successfully.")
	},
}

// historyExportCmd exports history data to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export replay history to Parquet for BI tools and analytics",
	Long: `Export all stored replay history to Parquet format for use with
analytics tools.

Exports two datasets:
- Replay runs - metadata about each replay execution
- Mutation outcomes - per-mutation results with attempt numbers

Requires: --output-file parameter

Examples:
  # Export all data
  outpost history export --output-file sync-history.parquet

  # Use with DuckDB for analysis
  outpost history export --output-file data.parquet
  duckdb -c "SELECT * FROM read_parquet('data.parquet.replay_runs.parquet') LIMIT 10"`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iostore.ExecuteHistoryExport(cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export history data", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the replay history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  outpost history migrate

  # Migrate to specific version
  outpost history migrate --target-version 1

  # Rollback to previous version
  outpost history migrate --target-version 0`,
	PreRunE: historyMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iostore.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
