package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// LifecycleState represents a phase of the engine lifecycle.
	LifecycleState string

	// DatabaseBackend represents the database backend for durable storage.
	DatabaseBackend string

	// ReplayTrigger identifies what initiated a replay run.
	ReplayTrigger string

	// MutationOutcome is the per-mutation result of one replay attempt.
	MutationOutcome string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All lifecycle states, in transition order.
const (
	Installing LifecycleState = "installing"
	Waiting    LifecycleState = "waiting"
	Activating LifecycleState = "activating"
	Activated  LifecycleState = "activated"
	Redundant  LifecycleState = "redundant"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All replay triggers.
const (
	ConnectivityTrigger ReplayTrigger = "connectivity" // onOnline transition (push model)
	SyncTrigger         ReplayTrigger = "sync"         // host-delivered sync signal (pull model)
	ManualTrigger       ReplayTrigger = "manual"       // operator-initiated via CLI/API
)

// All per-mutation replay outcomes.
const (
	OutcomeSuccess MutationOutcome = "success"
	OutcomeFailure MutationOutcome = "failure"
	OutcomeSkipped MutationOutcome = "skipped" // attempt ceiling reached
)

// Notification defaults used when a push payload omits fields.
const (
	DefaultNotificationTitle = "Outpost"
	DefaultNotificationBody  = "You have a new update."
)

// DefaultQueueTag is the queue tag used when the caller does not choose one.
const DefaultQueueTag = "outpost-mutations"

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
