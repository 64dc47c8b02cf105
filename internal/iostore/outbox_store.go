package iostore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
)

// MutationStoreImpl is the durable FIFO queue of deferred mutations. Rows
// carry a monotonically increasing seq column so replay order matches
// enqueue order across restarts.
type MutationStoreImpl struct {
	db          *sql.DB
	tableName   string
	backend     schema.DatabaseBackend
	maxAttempts int
}

var _ contract.MutationStore = &MutationStoreImpl{} // Compile-time check

// NewMutationStore initializes and returns a new MutationStore based on the
// backend type. maxAttempts of zero means no ceiling.
func NewMutationStore(tableName string, backend schema.DatabaseBackend, connStr string, maxAttempts int) (contract.MutationStore, error) {
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}

	if backend == schema.NoneBackend {
		return &MutationStoreImpl{
			db:          nil,
			tableName:   tableName,
			backend:     backend,
			maxAttempts: maxAttempts,
		}, nil
	}

	db, _, err := openBackendDB(backend, connStr, contract.GetCacheDBFilePath())
	if err != nil {
		return nil, err
	}

	query := getCreateOutboxTableQuery(tableName, backend)
	if _, err := db.Exec(query); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	return &MutationStoreImpl{
		db:          db,
		tableName:   tableName,
		backend:     backend,
		maxAttempts: maxAttempts,
	}, nil
}

// getCreateOutboxTableQuery returns the CREATE TABLE query for the given backend.
func getCreateOutboxTableQuery(tableName string, backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(tableName, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seq BIGINT AUTO_INCREMENT PRIMARY KEY,
				mutation_id VARCHAR(64) NOT NULL UNIQUE,
				queue_tag VARCHAR(255) NOT NULL,
				endpoint TEXT NOT NULL,
				method VARCHAR(16) NOT NULL,
				body LONGBLOB,
				enqueued_at BIGINT NOT NULL,
				attempts INT NOT NULL DEFAULT 0
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seq BIGSERIAL PRIMARY KEY,
				mutation_id TEXT NOT NULL UNIQUE,
				queue_tag TEXT NOT NULL,
				endpoint TEXT NOT NULL,
				method TEXT NOT NULL,
				body BYTEA,
				enqueued_at BIGINT NOT NULL,
				attempts INTEGER NOT NULL DEFAULT 0
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				mutation_id TEXT NOT NULL UNIQUE,
				queue_tag TEXT NOT NULL,
				endpoint TEXT NOT NULL,
				method TEXT NOT NULL,
				body BLOB,
				enqueued_at INTEGER NOT NULL,
				attempts INTEGER NOT NULL DEFAULT 0
			);
		`, quotedTableName)
	}
}

// Enqueue appends a mutation to its queue tag. Without a durable backend
// accepting the mutation would silently drop it, so enqueue refuses instead.
func (ms *MutationStoreImpl) Enqueue(ctx context.Context, m schema.DeferredMutation) error {
	if ms.backend == schema.NoneBackend || ms.db == nil {
		return fmt.Errorf("cannot defer mutation %s: %w", m.ID, contract.ErrQueueUnavailable)
	}

	quotedTableName := quoteTableName(ms.tableName, ms.backend)
	var query string
	switch ms.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`INSERT INTO %s (mutation_id, queue_tag, endpoint, method, body, enqueued_at, attempts)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`INSERT INTO %s (mutation_id, queue_tag, endpoint, method, body, enqueued_at, attempts)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, quotedTableName)
	}

	_, err := ms.db.ExecContext(ctx, query,
		m.ID, m.QueueTag, m.Endpoint, m.Method, m.Body, m.EnqueuedAt.Unix(), m.Attempts)
	if err != nil {
		return fmt.Errorf("failed to enqueue mutation %s: %w", m.ID, err)
	}
	return nil
}

// List returns the pending mutations for a tag in enqueue order.
func (ms *MutationStoreImpl) List(ctx context.Context, tag string) ([]schema.DeferredMutation, error) {
	if ms.backend == schema.NoneBackend || ms.db == nil {
		return nil, nil
	}

	quotedTableName := quoteTableName(ms.tableName, ms.backend)
	var query string
	switch ms.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`SELECT mutation_id, queue_tag, endpoint, method, body, enqueued_at, attempts
			FROM %s WHERE queue_tag = $1 ORDER BY seq`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`SELECT mutation_id, queue_tag, endpoint, method, body, enqueued_at, attempts
			FROM %s WHERE queue_tag = ? ORDER BY seq`, quotedTableName)
	}

	rows, err := ms.db.QueryContext(ctx, query, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to list mutations for tag %s: %w", tag, err)
	}
	defer func() { _ = rows.Close() }()

	var mutations []schema.DeferredMutation
	for rows.Next() {
		var m schema.DeferredMutation
		var enqueuedAt int64
		if err := rows.Scan(&m.ID, &m.QueueTag, &m.Endpoint, &m.Method, &m.Body, &enqueuedAt, &m.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan mutation: %w", err)
		}
		m.EnqueuedAt = time.Unix(enqueuedAt, 0)
		mutations = append(mutations, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mutations: %w", err)
	}
	return mutations, nil
}

// Remove deletes a mutation by id.
func (ms *MutationStoreImpl) Remove(ctx context.Context, id string) error {
	if ms.backend == schema.NoneBackend || ms.db == nil {
		return contract.ErrMutationNotFound
	}

	quotedTableName := quoteTableName(ms.tableName, ms.backend)
	var query string
	switch ms.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`DELETE FROM %s WHERE mutation_id = $1`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`DELETE FROM %s WHERE mutation_id = ?`, quotedTableName)
	}

	result, err := ms.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to remove mutation %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check removal of mutation %s: %w", id, err)
	}
	if affected == 0 {
		return contract.ErrMutationNotFound
	}
	return nil
}

// IncrementAttempts bumps the attempt counter of a mutation in place.
func (ms *MutationStoreImpl) IncrementAttempts(ctx context.Context, id string) error {
	if ms.backend == schema.NoneBackend || ms.db == nil {
		return contract.ErrMutationNotFound
	}

	quotedTableName := quoteTableName(ms.tableName, ms.backend)
	var query string
	switch ms.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`UPDATE %s SET attempts = attempts + 1 WHERE mutation_id = $1`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`UPDATE %s SET attempts = attempts + 1 WHERE mutation_id = ?`, quotedTableName)
	}

	result, err := ms.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment attempts for mutation %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check increment for mutation %s: %w", id, err)
	}
	if affected == 0 {
		return contract.ErrMutationNotFound
	}
	return nil
}

// ListTags returns every queue tag with at least one pending mutation.
func (ms *MutationStoreImpl) ListTags(ctx context.Context) ([]string, error) {
	if ms.backend == schema.NoneBackend || ms.db == nil {
		return nil, nil
	}

	quotedTableName := quoteTableName(ms.tableName, ms.backend)
	query := fmt.Sprintf(`SELECT DISTINCT queue_tag FROM %s ORDER BY queue_tag`, quotedTableName)

	rows, err := ms.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan queue tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue tags: %w", err)
	}
	return tags, nil
}

// Close closes the underlying DB connection.
func (ms *MutationStoreImpl) Close() error {
	if ms.db != nil {
		return ms.db.Close()
	}
	return nil
}

// GetStatus returns status information about the mutation queue.
func (ms *MutationStoreImpl) GetStatus() (schema.QueueStatus, error) {
	status := schema.QueueStatus{
		Backend:   string(ms.backend),
		Connected: ms.db != nil,
		Tags:      make(map[string]int64),
	}

	if ms.backend == schema.NoneBackend || ms.db == nil {
		return status, nil
	}

	quotedTableName := quoteTableName(ms.tableName, ms.backend)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedTableName)
	row := ms.db.QueryRow(countQuery)
	if err := row.Scan(&status.PendingMutations); err != nil {
		return status, fmt.Errorf("failed to get pending count: %w", err)
	}

	if status.PendingMutations == 0 {
		return status, nil
	}

	// Entries at the attempt ceiling are retained but skipped by replay.
	if ms.maxAttempts > 0 {
		var exhaustedQuery string
		switch ms.backend {
		case schema.PostgreSQLBackend:
			exhaustedQuery = fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE attempts >= $1", quotedTableName)
		default:
			exhaustedQuery = fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE attempts >= ?", quotedTableName)
		}
		row = ms.db.QueryRow(exhaustedQuery, ms.maxAttempts)
		if err := row.Scan(&status.Exhausted); err != nil {
			return status, fmt.Errorf("failed to get exhausted count: %w", err)
		}
	}

	rangeQuery := fmt.Sprintf("SELECT MIN(enqueued_at), MAX(enqueued_at) FROM %s", quotedTableName)
	row = ms.db.QueryRow(rangeQuery)
	var oldestTs, newestTs int64
	if err := row.Scan(&oldestTs, &newestTs); err != nil {
		return status, fmt.Errorf("failed to get enqueue time range: %w", err)
	}
	status.OldestEnqueuedAt = time.Unix(oldestTs, 0)
	status.NewestEnqueuedAt = time.Unix(newestTs, 0)

	tagQuery := fmt.Sprintf("SELECT queue_tag, COUNT(*) FROM %s GROUP BY queue_tag", quotedTableName)
	rows, err := ms.db.Query(tagQuery)
	if err != nil {
		return status, fmt.Errorf("failed to get tag counts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var tag string
		var count int64
		if err := rows.Scan(&tag, &count); err != nil {
			return status, fmt.Errorf("failed to scan tag count: %w", err)
		}
		status.Tags[tag] = count
	}
	if err := rows.Err(); err != nil {
		return status, fmt.Errorf("error iterating tag counts: %w", err)
	}

	return status, nil
}
