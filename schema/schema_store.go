package schema

import "time"

// CacheStatus reports the state of the cache store backend.
type CacheStatus struct {
	Backend         string
	Connected       bool
	Namespaces      int64
	TotalEntries    int64
	LastEntryTime   time.Time
	OldestEntryTime time.Time
	TableSizeBytes  int64
}

// QueueStatus reports the state of the deferred mutation queue.
type QueueStatus struct {
	Backend          string
	Connected        bool
	PendingMutations int64
	Exhausted        int64 // entries at the attempt ceiling, retained but skipped
	OldestEnqueuedAt time.Time
	NewestEnqueuedAt time.Time
	Tags             map[string]int64
}

// HistoryStatus reports the state of the replay history store.
type HistoryStatus struct {
	Backend       string
	Connected     bool
	TotalRuns     int64
	LastRunID     int64
	LastRunTime   time.Time
	OldestRunTime time.Time
	TotalOutcomes int64
	TableSizes    map[string]int64
}

// ReplayRunRecord represents a row from the outpost_replay_runs table.
type ReplayRunRecord struct {
	RunID     int64
	Trigger   string
	StartTime time.Time
	EndTime   *time.Time
	Successes int32
	Failures  int32
	Skipped   int32
}

// MutationOutcomeRecord represents a row from the outpost_mutation_outcomes table.
type MutationOutcomeRecord struct {
	RunID      int64
	MutationID string
	Endpoint   string
	Method     string
	Attempt    int32
	Outcome    string
	OccurredAt time.Time
}
