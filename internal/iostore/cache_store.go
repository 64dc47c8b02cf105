package iostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"   // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
)

// CacheStoreImpl handles namespaced cache storage using various database backends.
type CacheStoreImpl struct {
	db         *sql.DB
	tableName  string
	backend    schema.DatabaseBackend
	driverName string
	connStr    string
}

var _ contract.CacheStore = &CacheStoreImpl{} // Compile-time check

// NewCacheStore initializes and returns a new CacheStore based on the backend type.
func NewCacheStore(tableName string, backend schema.DatabaseBackend, connStr string) (contract.CacheStore, error) {
	// Validate table name to prevent SQL injection
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}

	if backend == schema.NoneBackend {
		// Return a no-op store for disabled caching
		return &CacheStoreImpl{
			db:        nil,
			tableName: tableName,
			backend:   backend,
			connStr:   connStr,
		}, nil
	}

	db, driverName, err := openBackendDB(backend, connStr, contract.GetCacheDBFilePath())
	if err != nil {
		return nil, err
	}

	// Create the table schema
	query := getCreateCacheTableQuery(tableName, backend)
	if _, err := db.Exec(query); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	return &CacheStoreImpl{
		db:         db,
		tableName:  tableName,
		backend:    backend,
		driverName: driverName,
		connStr:    connStr,
	}, nil
}

// getCreateCacheTableQuery returns the CREATE TABLE query for the given backend.
// Entries are partitioned by namespace so concurrent generations never touch
// each other's rows.
func getCreateCacheTableQuery(tableName string, backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(tableName, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				namespace VARCHAR(255) NOT NULL,
				entry_key VARCHAR(255) NOT NULL,
				payload LONGBLOB NOT NULL,
				stored_at BIGINT NOT NULL,
				PRIMARY KEY (namespace, entry_key)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				namespace TEXT NOT NULL,
				entry_key TEXT NOT NULL,
				payload BYTEA NOT NULL,
				stored_at BIGINT NOT NULL,
				PRIMARY KEY (namespace, entry_key)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				namespace TEXT NOT NULL,
				entry_key TEXT NOT NULL,
				payload BLOB NOT NULL,
				stored_at INTEGER NOT NULL,
				PRIMARY KEY (namespace, entry_key)
			);
		`, quotedTableName)
	}
}

// Put inserts or replaces a payload under (namespace, key). Entries are
// last-write-wins; there is no built-in mutual exclusion per key.
func (cs *CacheStoreImpl) Put(ctx context.Context, namespace, key string, payload []byte) error {
	// Skip for NoneBackend
	if cs.backend == schema.NoneBackend || cs.db == nil {
		return nil
	}

	query := cs.getUpsertQuery()
	_, err := cs.db.ExecContext(ctx, query, namespace, key, payload, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to put cache entry %s/%s: %w", namespace, key, err)
	}
	return nil
}

// getUpsertQuery returns the UPSERT query for the backend.
func (cs *CacheStoreImpl) getUpsertQuery() string {
	quotedTableName := quoteTableName(cs.tableName, cs.backend)
	switch cs.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (namespace, entry_key, payload, stored_at) VALUES (?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE payload = new.payload, stored_at = new.stored_at`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (namespace, entry_key, payload, stored_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (namespace, entry_key) DO UPDATE SET payload = EXCLUDED.payload, stored_at = EXCLUDED.stored_at`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (namespace, entry_key, payload, stored_at) VALUES (?, ?, ?, ?)`, quotedTableName)
	}
}

// Get retrieves a payload by (namespace, key).
func (cs *CacheStoreImpl) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	// Report a miss for NoneBackend
	if cs.backend == schema.NoneBackend || cs.db == nil {
		return nil, contract.ErrCacheMiss
	}

	quotedTableName := quoteTableName(cs.tableName, cs.backend)
	var query string
	switch cs.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`SELECT payload FROM %s WHERE namespace = $1 AND entry_key = $2`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`SELECT payload FROM %s WHERE namespace = ? AND entry_key = ?`, quotedTableName)
	}

	var payload []byte
	row := cs.db.QueryRowContext(ctx, query, namespace, key)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contract.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache entry %s/%s: %w", namespace, key, err)
	}
	return payload, nil
}

// Delete removes a single entry. Deleting a missing entry is not an error.
func (cs *CacheStoreImpl) Delete(ctx context.Context, namespace, key string) error {
	if cs.backend == schema.NoneBackend || cs.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(cs.tableName, cs.backend)
	var query string
	switch cs.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`DELETE FROM %s WHERE namespace = $1 AND entry_key = $2`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`DELETE FROM %s WHERE namespace = ? AND entry_key = ?`, quotedTableName)
	}

	if _, err := cs.db.ExecContext(ctx, query, namespace, key); err != nil {
		return fmt.Errorf("failed to delete cache entry %s/%s: %w", namespace, key, err)
	}
	return nil
}

// ListKeys returns every key in a namespace in insertion-time order.
func (cs *CacheStoreImpl) ListKeys(ctx context.Context, namespace string) ([]string, error) {
	if cs.backend == schema.NoneBackend || cs.db == nil {
		return nil, nil
	}

	quotedTableName := quoteTableName(cs.tableName, cs.backend)
	var query string
	switch cs.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`SELECT entry_key FROM %s WHERE namespace = $1 ORDER BY stored_at, entry_key`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`SELECT entry_key FROM %s WHERE namespace = ? ORDER BY stored_at, entry_key`, quotedTableName)
	}

	rows, err := cs.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys for namespace %s: %w", namespace, err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keys: %w", err)
	}
	return keys, nil
}

// ListNamespaces returns every known namespace name.
func (cs *CacheStoreImpl) ListNamespaces(ctx context.Context) ([]string, error) {
	if cs.backend == schema.NoneBackend || cs.db == nil {
		return nil, nil
	}

	quotedTableName := quoteTableName(cs.tableName, cs.backend)
	query := fmt.Sprintf(`SELECT DISTINCT namespace FROM %s ORDER BY namespace`, quotedTableName)

	rows, err := cs.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var namespaces []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("failed to scan namespace: %w", err)
		}
		namespaces = append(namespaces, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating namespaces: %w", err)
	}
	return namespaces, nil
}

// DeleteNamespace removes a namespace and all of its entries.
func (cs *CacheStoreImpl) DeleteNamespace(ctx context.Context, namespace string) error {
	if cs.backend == schema.NoneBackend || cs.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(cs.tableName, cs.backend)
	var query string
	switch cs.backend {
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf(`DELETE FROM %s WHERE namespace = $1`, quotedTableName)
	default: // SQLite and MySQL
		query = fmt.Sprintf(`DELETE FROM %s WHERE namespace = ?`, quotedTableName)
	}

	if _, err := cs.db.ExecContext(ctx, query, namespace); err != nil {
		return fmt.Errorf("failed to delete namespace %s: %w", namespace, err)
	}
	return nil
}

// Close closes the underlying DB connection.
func (cs *CacheStoreImpl) Close() error {
	if cs.db != nil {
		return cs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the cache store.
func (cs *CacheStoreImpl) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:   string(cs.backend),
		Connected: cs.db != nil,
	}

	if cs.backend == schema.NoneBackend || cs.db == nil {
		return status, nil
	}

	quotedTableName := quoteTableName(cs.tableName, cs.backend)

	// Get namespace and entry counts
	countQuery := fmt.Sprintf("SELECT COUNT(DISTINCT namespace), COUNT(*) FROM %s", quotedTableName)
	row := cs.db.QueryRow(countQuery)
	if err := row.Scan(&status.Namespaces, &status.TotalEntries); err != nil {
		return status, fmt.Errorf("failed to get entry counts: %w", err)
	}

	if status.TotalEntries == 0 {
		return status, nil
	}

	// Get last entry time
	lastQuery := fmt.Sprintf("SELECT MAX(stored_at) FROM %s", quotedTableName)
	row = cs.db.QueryRow(lastQuery)
	var lastTs int64
	if err := row.Scan(&lastTs); err != nil {
		return status, fmt.Errorf("failed to get last entry time: %w", err)
	}
	status.LastEntryTime = time.Unix(lastTs, 0)

	// Get oldest entry time
	oldestQuery := fmt.Sprintf("SELECT MIN(stored_at) FROM %s", quotedTableName)
	row = cs.db.QueryRow(oldestQuery)
	var oldestTs int64
	if err := row.Scan(&oldestTs); err != nil {
		return status, fmt.Errorf("failed to get oldest entry time: %w", err)
	}
	status.OldestEntryTime = time.Unix(oldestTs, 0)

	// Estimate table size (approximate)
	// For SQLite, use page_count * page_size
	// For others, use database-specific size queries with rough fallbacks
	switch cs.backend {
	case schema.SQLiteBackend:
		sizeQuery := "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()"
		row = cs.db.QueryRow(sizeQuery)
		if err := row.Scan(&status.TableSizeBytes); err != nil {
			// If pragma fails, skip size
			status.TableSizeBytes = 0
		}

	case schema.MySQLBackend:
		// Fallback rough estimate if information_schema query fails
		status.TableSizeBytes = status.TotalEntries * 1000

		cfg, err := mysql.ParseDSN(cs.connStr)
		if err != nil {
			break
		}
		dbName := cfg.DBName
		if dbName == "" {
			break
		}
		sizeQuery := "SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?"
		row := cs.db.QueryRow(sizeQuery, dbName, cs.tableName)
		if err := row.Scan(&status.TableSizeBytes); err != nil {
			status.TableSizeBytes = status.TotalEntries * 1000
		}

	case schema.PostgreSQLBackend:
		sizeQuery := "SELECT pg_total_relation_size($1)"
		row = cs.db.QueryRow(sizeQuery, cs.tableName)
		if err := row.Scan(&status.TableSizeBytes); err != nil {
			status.TableSizeBytes = status.TotalEntries * 1000 // Fallback rough estimate
		}

	default:
		status.TableSizeBytes = status.TotalEntries * 1000 // Rough estimate
	}

	return status, nil
}
