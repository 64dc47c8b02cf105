// Package parquet provides data structures and functions for exporting outpost
// replay history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/outpostlabs/outpost/schema"
	"github.com/parquet-go/parquet-go"
)

// ReplayRun represents a single replay run with metadata.
// This struct maps to the outpost_replay_runs database table.
type ReplayRun struct {
	// RunID is the unique identifier for this replay run
	RunID int64 `parquet:"run_id,snappy"`

	// Trigger names what started the run (connectivity, sync, manual)
	Trigger string `parquet:"run_trigger,snappy"`

	// StartTime is when the run began
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable while a run is in flight)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// Successes is the count of mutations confirmed by the upstream
	Successes int32 `parquet:"successes,snappy"`

	// Failures is the count of mutations that stayed queued after the run
	Failures int32 `parquet:"failures,snappy"`

	// Skipped is the count of mutations at the attempt ceiling
	Skipped int32 `parquet:"skipped,snappy"`
}

// MutationOutcome represents the result of one replay attempt for one mutation.
// This struct maps to the outpost_mutation_outcomes database table.
type MutationOutcome struct {
	// RunID references the parent replay run
	RunID int64 `parquet:"run_id,snappy"`

	// MutationID is the queue identity of the mutation
	MutationID string `parquet:"mutation_id,snappy"`

	// Endpoint is the upstream URL the mutation targets
	Endpoint string `parquet:"endpoint,snappy"`

	// Method is the HTTP method of the mutation
	Method string `parquet:"method,snappy"`

	// Attempt is the attempt counter at the time of this outcome
	Attempt int32 `parquet:"attempt,snappy"`

	// Outcome is success, failure, or skipped
	Outcome string `parquet:"outcome,snappy"`

	// OccurredAt is when the attempt finished
	OccurredAt time.Time `parquet:"occurred_at,snappy"`
}

// WriteReplayRunsParquet writes a slice of ReplayRun structs to a Parquet file.
func WriteReplayRunsParquet(data []ReplayRun, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Schema is inferred from the ReplayRun struct tags
	writer := parquet.NewGenericWriter[ReplayRun](file)
	defer func() { _ = writer.Close() }()

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	return nil
}

// WriteMutationOutcomesParquet writes a slice of MutationOutcome structs to a Parquet file.
func WriteMutationOutcomesParquet(data []MutationOutcome, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Schema is inferred from the MutationOutcome struct tags
	writer := parquet.NewGenericWriter[MutationOutcome](file)
	defer func() { _ = writer.Close() }()

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	return nil
}

// MockFetchReplayRuns generates sample ReplayRun data for demonstration.
func MockFetchReplayRuns() []ReplayRun {
	now := time.Now()
	startTime1 := now.Add(-2 * time.Hour)
	endTime1 := startTime1.Add(45 * time.Second)

	startTime2 := now.Add(-30 * time.Minute)
	endTime2 := startTime2.Add(3 * time.Second)

	startTime3 := now.Add(-5 * time.Second)
	// Note: endTime3 is nil to demonstrate an in-flight run

	return []ReplayRun{
		{
			RunID:     1,
			Trigger:   string(schema.ConnectivityTrigger),
			StartTime: startTime1,
			EndTime:   &endTime1,
			Successes: 12,
			Failures:  2,
			Skipped:   0,
		},
		{
			RunID:     2,
			Trigger:   string(schema.SyncTrigger),
			StartTime: startTime2,
			EndTime:   &endTime2,
			Successes: 2,
			Failures:  0,
			Skipped:   1,
		},
		{
			RunID:     3,
			Trigger:   string(schema.ManualTrigger),
			StartTime: startTime3,
			EndTime:   nil, // Still running - nullable field
			Successes: 0,
			Failures:  0,
			Skipped:   0,
		},
	}
}

// MockFetchMutationOutcomes generates sample MutationOutcome data for demonstration.
func MockFetchMutationOutcomes() []MutationOutcome {
	now := time.Now()

	return []MutationOutcome{
		{
			RunID:      1,
			MutationID: "3f1a9d2e-0c44-4f9a-8b1d-2f6f0a7c9e11",
			Endpoint:   "https://app.example.com/api/notes",
			Method:     "POST",
			Attempt:    1,
			Outcome:    string(schema.OutcomeSuccess),
			OccurredAt: now.Add(-2 * time.Hour),
		},
		{
			RunID:      1,
			MutationID: "b7e4c1d0-58aa-41f2-9e33-6d1b8f0c2a55",
			Endpoint:   "https://app.example.com/api/settings",
			Method:     "PUT",
			Attempt:    3,
			Outcome:    string(schema.OutcomeFailure),
			OccurredAt: now.Add(-2*time.Hour + 10*time.Second),
		},
		{
			RunID:      2,
			MutationID: "91c2aa07-6f3e-4d80-b54c-0f9e7d3a1b22",
			Endpoint:   "https://app.example.com/api/notes/42",
			Method:     "DELETE",
			Attempt:    5,
			Outcome:    string(schema.OutcomeSkipped),
			OccurredAt: now.Add(-30 * time.Minute),
		},
	}
}

// ConvertReplayRunRecords converts schema.ReplayRunRecord to ReplayRun for Parquet export.
func ConvertReplayRunRecords(records []schema.ReplayRunRecord) []ReplayRun {
	result := make([]ReplayRun, len(records))
	for i, record := range records {
		result[i] = ReplayRun{
			RunID:     record.RunID,
			Trigger:   record.Trigger,
			StartTime: record.StartTime,
			EndTime:   record.EndTime,
			Successes: record.Successes,
			Failures:  record.Failures,
			Skipped:   record.Skipped,
		}
	}
	return result
}

// ConvertMutationOutcomeRecords converts schema.MutationOutcomeRecord to MutationOutcome for Parquet export.
func ConvertMutationOutcomeRecords(records []schema.MutationOutcomeRecord) []MutationOutcome {
	result := make([]MutationOutcome, len(records))
	for i, record := range records {
		result[i] = MutationOutcome{
			RunID:      record.RunID,
			MutationID: record.MutationID,
			Endpoint:   record.Endpoint,
			Method:     record.Method,
			Attempt:    record.Attempt,
			Outcome:    record.Outcome,
			OccurredAt: record.OccurredAt,
		}
	}
	return result
}
