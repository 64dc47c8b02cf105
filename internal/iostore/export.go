package iostore

import (
	"errors"
	"fmt"

	"github.com/outpostlabs/outpost/internal/parquet"
)

// ExecuteHistoryExport performs the actual export of replay history to Parquet files.
func ExecuteHistoryExport(outputFile string) error {
	// Validate that output file is specified
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	// Get the history store
	store := Manager.GetHistoryStore()

	// Check if there's any data to export
	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}

	if status.TotalRuns == 0 {
		return errors.New("no replay history found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total replay runs: %d\n", status.TotalRuns)
	fmt.Printf("Total mutation outcomes: %d\n", status.TotalOutcomes)

	// Retrieve all replay runs
	replayRuns, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve replay runs: %w", err)
	}

	// Retrieve all mutation outcomes
	outcomes, err := store.GetAllOutcomes()
	if err != nil {
		return fmt.Errorf("failed to retrieve mutation outcomes: %w", err)
	}

	// Convert to Parquet format
	parquetRuns := parquet.ConvertReplayRunRecords(replayRuns)
	parquetOutcomes := parquet.ConvertMutationOutcomeRecords(outcomes)

	// Write replay runs to Parquet
	runsFile := outputFile + ".replay_runs.parquet"
	if err := parquet.WriteReplayRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write replay runs: %w", err)
	}
	fmt.Printf("Exported %d replay runs to: %s\n", len(parquetRuns), runsFile)

	// Write mutation outcomes to Parquet
	outcomesFile := outputFile + ".mutation_outcomes.parquet"
	if err := parquet.WriteMutationOutcomesParquet(parquetOutcomes, outcomesFile); err != nil {
		return fmt.Errorf("failed to write mutation outcomes: %w", err)
	}
	fmt.Printf("Exported %d mutation outcomes to: %s\n", len(parquetOutcomes), outcomesFile)

	fmt.Println("\nExport complete! The Parquet files can be used with:")
	fmt.Println("  - Apache Spark")
	fmt.Println("  - Apache Arrow")
	fmt.Println("  - Pandas (via pyarrow)")
	fmt.Println("  - DuckDB")
	fmt.Println("  - Any other Parquet-compatible tool")

	return nil
}
