package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonitor_StartsOnline(t *testing.T) {
	m := NewMonitor()
	assert.True(t, m.IsOnline())
	assert.True(t, m.State().Online)
	assert.True(t, m.State().LastTransitionAt.IsZero())
}

func TestMonitor_TransitionsFireOnce(t *testing.T) {
	m := NewMonitor()

	var onlineCalls, offlineCalls int
	m.Subscribe(func() { onlineCalls++ }, func() { offlineCalls++ })

	// Duplicate signals are absorbed
	m.SetOnline(true)
	m.SetOnline(true)
	assert.Equal(t, 0, onlineCalls)
	assert.Equal(t, 0, offlineCalls)

	m.SetOnline(false)
	m.SetOnline(false)
	assert.Equal(t, 1, offlineCalls)
	assert.False(t, m.IsOnline())
	assert.False(t, m.State().LastTransitionAt.IsZero())

	m.SetOnline(true)
	assert.Equal(t, 1, onlineCalls)
	assert.True(t, m.IsOnline())
}

func TestMonitor_Unsubscribe(t *testing.T) {
	m := NewMonitor()

	var calls int
	handle := m.Subscribe(func() { calls++ }, nil)

	m.SetOnline(false)
	m.SetOnline(true)
	assert.Equal(t, 1, calls)

	m.Unsubscribe(handle)
	m.SetOnline(false)
	m.SetOnline(true)
	assert.Equal(t, 1, calls)

	// Unknown handles are ignored
	m.Unsubscribe(SubscriberHandle(999))
}

func TestMonitor_NilCallbacks(t *testing.T) {
	m := NewMonitor()
	m.Subscribe(nil, nil)

	// Must not panic
	m.SetOnline(false)
	m.SetOnline(true)
}
