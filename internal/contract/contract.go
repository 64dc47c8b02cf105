// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"net/http"
	"time"

	"github.com/outpostlabs/outpost/schema"
)

// CacheStore defines the interface for namespaced cache storage.
// This allows mocking the store for testing.
type CacheStore interface {
	// Put inserts or replaces a payload under (namespace, key).
	Put(ctx context.Context, namespace, key string, payload []byte) error

	// Get retrieves a payload by (namespace, key). Returns ErrCacheMiss when
	// no entry exists.
	Get(ctx context.Context, namespace, key string) ([]byte, error)

	// Delete removes a single entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, namespace, key string) error

	// ListKeys returns every key in a namespace.
	ListKeys(ctx context.Context, namespace string) ([]string, error)

	// ListNamespaces returns every known namespace name.
	ListNamespaces(ctx context.Context) ([]string, error)

	// DeleteNamespace removes a namespace and all of its entries.
	DeleteNamespace(ctx context.Context, namespace string) error

	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// MutationStore defines the interface for the persisted deferred mutation
// queue. Ordering is FIFO per queue tag.
type MutationStore interface {
	// Enqueue appends a mutation to its queue tag.
	Enqueue(ctx context.Context, m schema.DeferredMutation) error

	// List returns the pending mutations for a tag in enqueue order.
	List(ctx context.Context, tag string) ([]schema.DeferredMutation, error)

	// Remove deletes a mutation by id. Returns ErrMutationNotFound when absent.
	Remove(ctx context.Context, id string) error

	// IncrementAttempts bumps the attempt counter of a mutation in place.
	IncrementAttempts(ctx context.Context, id string) error

	// ListTags returns every queue tag with at least one pending mutation.
	ListTags(ctx context.Context) ([]string, error)

	GetStatus() (schema.QueueStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking replay runs and storing
// per-mutation outcomes.
type HistoryStore interface {
	// BeginRun creates a new replay run and returns its unique ID.
	BeginRun(trigger schema.ReplayTrigger, startTime time.Time) (int64, error)

	// EndRun updates the replay run with completion data.
	EndRun(runID int64, endTime time.Time, summary schema.ReplaySummary) error

	// RecordOutcome stores the result of one replay attempt.
	RecordOutcome(runID int64, m schema.DeferredMutation, outcome schema.MutationOutcome, occurredAt time.Time) error

	// GetAllRuns returns every recorded replay run.
	GetAllRuns() ([]schema.ReplayRunRecord, error)

	// GetAllOutcomes returns every recorded mutation outcome.
	GetAllOutcomes() ([]schema.MutationOutcomeRecord, error)

	GetStatus() (schema.HistoryStatus, error)
	Close() error
}

// StoreManager defines the interface for managing the durable stores.
// This allows the storage layer to be mocked for testing.
type StoreManager interface {
	GetCacheStore() CacheStore
	GetMutationStore() MutationStore
	GetHistoryStore() HistoryStore
}

// NetworkClient issues upstream HTTP requests on behalf of the engine.
// This allows the retrieval and replay logic to be tested without a live
// network.
type NetworkClient interface {
	// Do performs one HTTP request and drains the response. A non-2xx status
	// is NOT an error; transport-level failures are.
	Do(ctx context.Context, method, url string, body []byte, header http.Header) (*schema.CachedResponse, error)
}

// Notifier renders system notifications on behalf of the dispatcher.
type Notifier interface {
	// Notify renders one notification. A render failure is terminal for that
	// notification.
	Notify(ctx context.Context, n schema.NotificationPayload) error

	// PermissionGranted reports whether the host allows notifications at all.
	PermissionGranted() bool
}

// HostOpener instructs the host to open or focus a browsing context.
type HostOpener interface {
	OpenURL(ctx context.Context, url string) error
}

// InstallPrompter shows the host's install prompt for a stored signal and
// reports the user choice.
type InstallPrompter interface {
	Prompt(ctx context.Context, sig schema.InstallSignal) (accepted bool, err error)
}
