// Package cmd defines the command-line interface for outpost.
package cmd

import (
	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheKeysCmd)
	cacheCmd.AddCommand(cacheEvictCmd)

	// Add the queue subcommands to the parent queue command
	queueCmd.AddCommand(queueStatusCmd)
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueReplayCmd)
	queueCmd.AddCommand(queueCancelCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyRunsCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("product", contract.DefaultProductName, "Product name, used to derive cache namespaces")
	rootCmd.PersistentFlags().Int("generation", contract.DefaultGeneration, "Cache generation; bumping it stages a fresh namespace")
	rootCmd.PersistentFlags().String("origin", "", "Upstream origin to cache and proxy (e.g., https://api.example.com)")
	rootCmd.PersistentFlags().String("listen", contract.DefaultListenAddr, "Address for the HTTP gateway to listen on")
	rootCmd.PersistentFlags().String("manifest", "", "Comma-separated list of URLs to precache during install")
	rootCmd.PersistentFlags().Bool("skip-waiting", false, "Activate immediately after install instead of waiting")
	rootCmd.PersistentFlags().String("queue-tag", schema.DefaultQueueTag, "Queue tag for deferred mutations")
	rootCmd.PersistentFlags().Int("replay-max-attempts", contract.DefaultReplayMaxTries, "Attempt ceiling per mutation before it is skipped (0 = unlimited)")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of results to display")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", "", "Replay history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for replay history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of queueReplayCmd to Viper
	queueReplayCmd.Flags().String("tag", "", "Queue tag to replay (defaults to the configured tag)")
	if err := viper.BindPFlags(queueReplayCmd.Flags()); err != nil {
		contract.LogFatal("Error binding queue replay flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
