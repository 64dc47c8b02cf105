package core

import (
	"sync"
	"time"

	"github.com/outpostlabs/outpost/schema"
)

// SubscriberHandle identifies one connectivity subscription.
type SubscriberHandle int

type connectivitySubscriber struct {
	onOnline  func()
	onOffline func()
}

// Monitor holds the process-wide connectivity state. It performs no probing
// of its own; the host feeds it transitions via SetOnline. Exactly one
// callback fires per genuine transition.
type Monitor struct {
	mu          sync.Mutex
	online      bool
	lastChange  time.Time
	nextHandle  SubscriberHandle
	subscribers map[SubscriberHandle]connectivitySubscriber
}

// NewMonitor creates a Monitor that starts online.
func NewMonitor() *Monitor {
	return &Monitor{
		online:      true,
		subscribers: make(map[SubscriberHandle]connectivitySubscriber),
	}
}

// IsOnline returns the current connectivity belief.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// State returns a snapshot of the connectivity singleton.
func (m *Monitor) State() schema.ConnectivityState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return schema.ConnectivityState{
		Online:           m.online,
		LastTransitionAt: m.lastChange,
	}
}

// SetOnline records a host-delivered connectivity signal. Repeated signals
// with the same value are absorbed without firing callbacks.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	m.lastChange = time.Now()

	// Snapshot under lock, fire outside it so callbacks may re-enter
	callbacks := make([]func(), 0, len(m.subscribers))
	for _, sub := range m.subscribers {
		if online && sub.onOnline != nil {
			callbacks = append(callbacks, sub.onOnline)
		}
		if !online && sub.onOffline != nil {
			callbacks = append(callbacks, sub.onOffline)
		}
	}
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

// Subscribe registers transition callbacks. Either may be nil.
func (m *Monitor) Subscribe(onOnline, onOffline func()) SubscriberHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHandle++
	handle := m.nextHandle
	m.subscribers[handle] = connectivitySubscriber{
		onOnline:  onOnline,
		onOffline: onOffline,
	}
	return handle
}

// Unsubscribe removes a subscription. Unknown handles are ignored.
func (m *Monitor) Unsubscribe(handle SubscriberHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, handle)
}
