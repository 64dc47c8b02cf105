// Package schema holds the shared data model for the outpost engine.
package schema

import (
	"net/http"
	"time"
)

// CacheNamespace is a versioned partition of the cache store. Exactly one
// namespace is current at any time; all others are stale and get evicted
// during activation.
type CacheNamespace struct {
	Name       string `json:"name"`
	Generation int    `json:"generation"`
}

// CacheEntry is one stored payload. Entries are immutable once written;
// overwrites replace in place. There is no implicit expiry.
type CacheEntry struct {
	Key      string    `json:"key"`
	Payload  []byte    `json:"-"`
	SizeOf   int64     `json:"size_bytes"`
	StoredAt time.Time `json:"stored_at"`
}

// CachedResponse is the serialized form of an upstream HTTP response, stored
// as a cache payload and returned to intercepted callers.
type CachedResponse struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	FinalURL string      `json:"final_url"` // URL after redirects, for same-origin checks
}

// DeferredMutation is a write request captured for later replay because it
// could not be completed immediately. It is removed only on confirmed success
// or explicit cancellation.
type DeferredMutation struct {
	ID         string    `json:"id"`
	QueueTag   string    `json:"queue_tag"`
	Endpoint   string    `json:"endpoint"`
	Method     string    `json:"method"`
	Body       []byte    `json:"-"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempts   int       `json:"attempts"`
}

// ConnectivityState is the process-wide online/offline snapshot. It is
// updated only by the connectivity monitor.
type ConnectivityState struct {
	Online           bool      `json:"online"`
	LastTransitionAt time.Time `json:"last_transition_at"`
}

// NotificationPayload is the parsed form of a host-delivered push payload.
// It exists only for the duration of rendering one notification.
type NotificationPayload struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	IconRef     string `json:"icon"`
	DeepLinkURL string `json:"url"`
}

// InstallSignal is the opaque installability signal delivered by the host.
// The broker retains only the most recent un-consumed signal.
type InstallSignal struct {
	ReceivedAt time.Time `json:"received_at"`
	Platforms  []string  `json:"platforms,omitempty"`
}

// ReplaySummary aggregates the outcome counts of one replay run.
type ReplaySummary struct {
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
	Skipped   int `json:"skipped"`
}
