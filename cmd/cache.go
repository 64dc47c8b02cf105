package cmd

import (
	"fmt"

	"github.com/outpostlabs/outpost/core"
	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/internal/iostore"
	"github.com/outpostlabs/outpost/internal/outwriter"
	"github.com/outpostlabs/outpost/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
func cacheSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get cache-related config values
	backend := schema.DatabaseBackend(viper.GetString("cache-backend"))
	connStr := viper.GetString("cache-db-connect")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	// Initialize stores with the loaded config (no history tracking for cache commands)
	if err := iostore.InitStores(backend, connStr, "", "", viper.GetInt("replay-max-attempts")); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	cfg.ProductName = viper.GetString("product")
	cfg.Generation = viper.GetInt("generation")
	cfg.ResultLimit = viper.GetInt("limit")
	cfg.Output = schema.OutputMode(viper.GetString("output"))
	cfg.OutputFile = viper.GetString("output-file")
	cfg.Width = viper.GetInt("width")

	useColors, err := contract.ParseBoolString(viper.GetString("color"))
	if err != nil {
		return fmt.Errorf("invalid color setting: %w", err)
	}
	cfg.UseColors = useColors

	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// currentNamespace derives the namespace for the configured product and
// generation, or uses an explicit positional argument when given.
func currentNamespace(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return core.NamespaceName(cfg.ProductName, cfg.Generation)
}

// cacheCmd focused on cache management.
//
// Note: Cache subcommands use minimal initialization (cacheSetup) instead of
// the full sharedSetup used by serve. This avoids origin validation for
// simple storage operations.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the offline response cache",
	Long: `Manage the namespaced response cache that serves reads while offline.

Each product generation owns one namespace; activation evicts the others.
Entries are keyed by a canonical request identity, so equivalent URLs share
one slot.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status - Show cache statistics and connection info
  keys   - List the entry keys of a namespace
  evict  - Remove one namespace and all of its entries
  clear  - Remove all cached data

Examples:
  # Check cache status
  outpost cache status

  # List entries of the current generation
  outpost cache keys`,
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show detailed information about the offline response cache.

Displays:
- Backend type and connection status
- Namespace and entry counts
- Last and oldest entry timestamps
- Cache database size

Examples:
  # Check cache status
  outpost cache status`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iostore.Manager.GetCacheStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		iostore.PrintCacheStatus(status)
	},
}

// cacheKeysCmd lists the keys of a namespace.
var cacheKeysCmd = &cobra.Command{
	Use:   "keys [namespace]",
	Short: "List the entry keys stored in a namespace",
	Long: `List the cache keys of one namespace in storage order.

Without an argument, the namespace of the configured product and generation
is listed.

Examples:
  # List the current generation's entries
  outpost cache keys

  # List a specific namespace as JSON
  outpost cache keys myapp-v1 --output json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		namespace := currentNamespace(args)
		keys, err := iostore.Manager.GetCacheStore().ListKeys(rootCtx, namespace)
		if err != nil {
			contract.LogFatal("Failed to list cache keys", err)
		}
		if err := outwriter.NewOutWriter().WriteKeys(namespace, keys, cfg); err != nil {
			contract.LogFatal("Failed to write cache keys", err)
		}
	},
}

// cacheEvictCmd removes one namespace.
var cacheEvictCmd = &cobra.Command{
	Use:   "evict [namespace]",
	Short: "Remove one namespace and all of its entries",
	Long: `Delete a single cache namespace.

Without an argument, the namespace of the configured product and generation
is evicted. Evicting a namespace that does not exist is not an error.

Examples:
  # Evict a stale generation
  outpost cache evict myapp-v1`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		namespace := currentNamespace(args)
		if err := iostore.Manager.GetCacheStore().DeleteNamespace(rootCtx, namespace); err != nil {
			contract.LogFatal("Failed to evict namespace", err)
		}
		fmt.Printf("Namespace %s evicted.\n", namespace)
	},
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached response data",
	Long: `Delete all cached responses from the configured backend.

WARNING: the deferred mutation queue shares the SQLite database file, so
clearing a SQLite cache also drops pending mutations.

Use this when:
- The origin's content changed incompatibly
- Cache may be stale or corrupted
- Testing cold-start behavior

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table

Examples:
  # Clear SQLite cache (default)
  outpost cache clear

  # Clear MySQL cache (set connection string via env variable)
  OUTPOST_CACHE_BACKEND=mysql OUTPOST_CACHE_DB_CONNECT="..." outpost cache clear`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iostore.ClearCache(cfg.CacheBackend, contract.GetCacheDBFilePath(), cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}
