package schema

import "net/http"

// EventKind enumerates the host-delivered event types the engine dispatches.
type EventKind string

// All event kinds.
const (
	InstallKind           EventKind = "install"
	ActivateKind          EventKind = "activate"
	RequestKind           EventKind = "request"
	PushKind              EventKind = "push"
	SyncKind              EventKind = "sync"
	NotificationClickKind EventKind = "notification-click"
	ConnectivityKind      EventKind = "connectivity"
	InstallPromptKind     EventKind = "install-prompt"
)

// Event is one host-delivered event. The engine handles events one at a time
// on a single dispatch goroutine; request resolution may suspend without
// blocking the loop.
type Event interface {
	Kind() EventKind
}

// InstallEvent asks the engine to run the install phase for the configured
// generation (precache manifest, all-or-nothing).
type InstallEvent struct{}

// Kind implements Event.
func (InstallEvent) Kind() EventKind { return InstallKind }

// ActivateEvent asks the engine to activate the configured generation and
// evict every stale namespace.
type ActivateEvent struct{}

// Kind implements Event.
func (ActivateEvent) Kind() EventKind { return ActivateKind }

// RequestOutcome is the resolution of one intercepted request. Exactly one of
// Response or Err is meaningful; QueuedID is set when a mutation was deferred.
type RequestOutcome struct {
	Response  *CachedResponse
	FromCache bool
	QueuedID  string
	Err       error
}

// RequestEvent is an intercepted outbound request. The engine must always
// resolve Reply with some outcome; it never leaves a request unhandled.
type RequestEvent struct {
	Request *http.Request
	Reply   chan RequestOutcome
}

// Kind implements Event.
func (RequestEvent) Kind() EventKind { return RequestKind }

// PushEvent carries a raw host-delivered push payload.
type PushEvent struct {
	Payload []byte
}

// Kind implements Event.
func (PushEvent) Kind() EventKind { return PushKind }

// SyncEvent is an explicit replay signal (pull model).
type SyncEvent struct {
	Tag string
}

// Kind implements Event.
func (SyncEvent) Kind() EventKind { return SyncKind }

// NotificationClickEvent reports a user click on a rendered notification.
type NotificationClickEvent struct {
	Notification NotificationPayload
}

// Kind implements Event.
func (NotificationClickEvent) Kind() EventKind { return NotificationClickKind }

// ConnectivityEvent reports the host platform's connectivity signal.
type ConnectivityEvent struct {
	Online bool
}

// Kind implements Event.
func (ConnectivityEvent) Kind() EventKind { return ConnectivityKind }

// InstallPromptEvent delivers an installability signal to the broker.
type InstallPromptEvent struct {
	Signal InstallSignal
}

// Kind implements Event.
func (InstallPromptEvent) Kind() EventKind { return InstallPromptKind }
