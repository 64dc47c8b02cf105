package iostore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
)

// Table names for replay history tracking.
const (
	replayRunsTable       = "outpost_replay_runs"
	mutationOutcomesTable = "outpost_mutation_outcomes"
)

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db         *sql.DB
	backend    schema.DatabaseBackend
	driverName string
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
// Timestamps are stored as Unix epoch seconds so scan behavior is identical
// across backends.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &HistoryStoreImpl{
			db:         nil,
			backend:    backend,
			driverName: "",
		}, nil
	}

	db, driverName, err := openBackendDB(backend, connStr, contract.GetHistoryDBFilePath())
	if err != nil {
		return nil, err
	}

	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &HistoryStoreImpl{
		db:         db,
		backend:    backend,
		driverName: driverName,
	}, nil
}

// createHistoryTables creates the replay history tables.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{replayRunsTable, getCreateReplayRunsQuery(backend)},
		{mutationOutcomesTable, getCreateMutationOutcomesQuery(backend)},
	}

	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}

	return nil
}

// getCreateReplayRunsQuery returns the CREATE TABLE query for outpost_replay_runs.
// The trigger column is named run_trigger because TRIGGER is reserved in MySQL.
func getCreateReplayRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(replayRunsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				run_trigger VARCHAR(32) NOT NULL,
				start_time BIGINT NOT NULL,
				end_time BIGINT,
				successes INT NOT NULL DEFAULT 0,
				failures INT NOT NULL DEFAULT 0,
				skipped INT NOT NULL DEFAULT 0
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				run_trigger TEXT NOT NULL,
				start_time BIGINT NOT NULL,
				end_time BIGINT,
				successes INT NOT NULL DEFAULT 0,
				failures INT NOT NULL DEFAULT 0,
				skipped INT NOT NULL DEFAULT 0
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_trigger TEXT NOT NULL,
				start_time INTEGER NOT NULL,
				end_time INTEGER,
				successes INTEGER NOT NULL DEFAULT 0,
				failures INTEGER NOT NULL DEFAULT 0,
				skipped INTEGER NOT NULL DEFAULT 0
			);
		`, quotedTableName)
	}
}

// getCreateMutationOutcomesQuery returns the CREATE TABLE query for outpost_mutation_outcomes.
func getCreateMutationOutcomesQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(mutationOutcomesTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				mutation_id VARCHAR(64) NOT NULL,
				endpoint TEXT NOT NULL,
				method VARCHAR(16) NOT NULL,
				attempt INT NOT NULL,
				outcome VARCHAR(32) NOT NULL,
				occurred_at BIGINT NOT NULL,
				PRIMARY KEY (run_id, mutation_id, attempt)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				mutation_id TEXT NOT NULL,
				endpoint TEXT NOT NULL,
				method TEXT NOT NULL,
				attempt INT NOT NULL,
				outcome TEXT NOT NULL,
				occurred_at BIGINT NOT NULL,
				PRIMARY KEY (run_id, mutation_id, attempt)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				mutation_id TEXT NOT NULL,
				endpoint TEXT NOT NULL,
				method TEXT NOT NULL,
				attempt INTEGER NOT NULL,
				outcome TEXT NOT NULL,
				occurred_at INTEGER NOT NULL,
				PRIMARY KEY (run_id, mutation_id, attempt)
			);
		`, quotedTableName)
	}
}

// BeginRun creates a new replay run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(trigger schema.ReplayTrigger, startTime time.Time) (int64, error) {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return 0, nil
	}

	quotedTableName := quoteTableName(replayRunsTable, hs.backend)

	var runID int64
	var err error
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (run_trigger, start_time) VALUES ($1, $2) RETURNING run_id`, quotedTableName)
		err = hs.db.QueryRow(query, string(trigger), startTime.Unix()).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (run_trigger, start_time) VALUES (?, ?)`, quotedTableName)
		var result sql.Result
		result, err = hs.db.Exec(query, string(trigger), startTime.Unix())
		if err != nil {
			return 0, err
		}
		runID, err = result.LastInsertId()
	}

	if err != nil {
		return 0, fmt.Errorf("failed to insert replay run: %w", err)
	}

	return runID, nil
}

// EndRun updates the replay run with completion data.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time, summary schema.ReplaySummary) error {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(replayRunsTable, hs.backend)

	var query string
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`UPDATE %s SET end_time = $1, successes = $2, failures = $3, skipped = $4 WHERE run_id = $5`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`UPDATE %s SET end_time = ?, successes = ?, failures = ?, skipped = ? WHERE run_id = ?`, quotedTableName)
	}

	_, err := hs.db.Exec(query, endTime.Unix(), summary.Successes, summary.Failures, summary.Skipped, runID)
	if err != nil {
		return fmt.Errorf("failed to update replay run: %w", err)
	}

	return nil
}

// RecordOutcome stores the result of one replay attempt.
func (hs *HistoryStoreImpl) RecordOutcome(runID int64, m schema.DeferredMutation, outcome schema.MutationOutcome, occurredAt time.Time) error {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(mutationOutcomesTable, hs.backend)

	var query string
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`
			INSERT INTO %s (run_id, mutation_id, endpoint, method, attempt, outcome, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`
			INSERT INTO %s (run_id, mutation_id, endpoint, method, attempt, outcome, occurred_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, quotedTableName)
	}

	_, err := hs.db.Exec(query, runID, m.ID, m.Endpoint, m.Method, m.Attempts, string(outcome), occurredAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert mutation outcome: %w", err)
	}

	return nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}

	if hs.backend == schema.NoneBackend || hs.db == nil {
		return status, nil
	}

	// Get total runs
	runsQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(replayRunsTable, hs.backend))
	row := hs.db.QueryRow(runsQuery)
	if err := row.Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		// Get last run info
		lastRunQuery := fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", quoteTableName(replayRunsTable, hs.backend))
		row = hs.db.QueryRow(lastRunQuery)
		var lastRunTs int64
		if err := row.Scan(&status.LastRunID, &lastRunTs); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		status.LastRunTime = time.Unix(lastRunTs, 0)

		// Get oldest run time
		oldestRunQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", quoteTableName(replayRunsTable, hs.backend))
		row = hs.db.QueryRow(oldestRunQuery)
		var oldestRunTs int64
		if err := row.Scan(&oldestRunTs); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		status.OldestRunTime = time.Unix(oldestRunTs, 0)
	}

	// Get total outcomes and table sizes
	tables := []string{replayRunsTable, mutationOutcomesTable}
	for _, table := range tables {
		quotedTable := quoteTableName(table, hs.backend)
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedTable)
		row = hs.db.QueryRow(countQuery)
		var count int64
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalOutcomes = status.TableSizes[mutationOutcomesTable]

	return status, nil
}

// GetAllRuns retrieves all replay runs from the store.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.ReplayRunRecord, error) {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	quotedTableName := quoteTableName(replayRunsTable, hs.backend)
	query := fmt.Sprintf("SELECT run_id, run_trigger, start_time, end_time, successes, failures, skipped FROM %s ORDER BY run_id", quotedTableName)

	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query replay runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ReplayRunRecord

	for rows.Next() {
		var record schema.ReplayRunRecord
		var startTs int64
		var endTs sql.NullInt64
		if err := rows.Scan(&record.RunID, &record.Trigger, &startTs, &endTs, &record.Successes, &record.Failures, &record.Skipped); err != nil {
			return nil, fmt.Errorf("failed to scan replay run: %w", err)
		}
		record.StartTime = time.Unix(startTs, 0)
		if endTs.Valid {
			endTime := time.Unix(endTs.Int64, 0)
			record.EndTime = &endTime
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating replay runs: %w", err)
	}

	return results, nil
}

// GetAllOutcomes retrieves all mutation outcomes from the store.
func (hs *HistoryStoreImpl) GetAllOutcomes() ([]schema.MutationOutcomeRecord, error) {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	quotedTableName := quoteTableName(mutationOutcomesTable, hs.backend)
	query := fmt.Sprintf("SELECT run_id, mutation_id, endpoint, method, attempt, outcome, occurred_at FROM %s ORDER BY run_id, occurred_at", quotedTableName)

	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query mutation outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.MutationOutcomeRecord

	for rows.Next() {
		var record schema.MutationOutcomeRecord
		var occurredTs int64
		if err := rows.Scan(&record.RunID, &record.MutationID, &record.Endpoint, &record.Method, &record.Attempt, &record.Outcome, &occurredTs); err != nil {
			return nil, fmt.Errorf("failed to scan mutation outcome: %w", err)
		}
		record.OccurredAt = time.Unix(occurredTs, 0)
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mutation outcomes: %w", err)
	}

	return results, nil
}
