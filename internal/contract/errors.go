package contract

import "errors"

// Error taxonomy for the engine. Storage and notification failures are
// recovered locally (logged, degraded mode); network fetch failures with no
// cached fallback surface to the caller as hard failures.
var (
	// ErrCacheMiss indicates no entry exists for the requested key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheOpen indicates the storage backend is unavailable or over
	// quota. Callers degrade to network-only for that operation.
	ErrCacheOpen = errors.New("cache storage unavailable")

	// ErrNetworkFetch indicates an upstream request failed at the transport
	// level with no cache entry to fall back on.
	ErrNetworkFetch = errors.New("network fetch failed")

	// ErrMutationNotFound indicates the queue holds no mutation with the
	// given id.
	ErrMutationNotFound = errors.New("mutation not found")

	// ErrQueueUnavailable indicates no durable queue backend is configured.
	// Deferring a write would lose it, so the caller gets a hard failure
	// instead of a queue id.
	ErrQueueUnavailable = errors.New("mutation queue unavailable")

	// ErrInstallFailed indicates the all-or-nothing precache of the install
	// manifest did not complete. The previous generation stays current.
	ErrInstallFailed = errors.New("install precache failed")

	// ErrNotActivated indicates an operation that requires an activated
	// engine was invoked too early.
	ErrNotActivated = errors.New("engine not activated")
)
