package core

import (
	"context"
	"testing"
	"time"

	"github.com/outpostlabs/outpost/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_EmptySlot(t *testing.T) {
	prompter := &fakePrompter{accepted: true}
	b := NewBroker(prompter)

	assert.False(t, b.CanInstall())

	// No signal means no prompt and no error
	accepted, err := b.ShowPrompt(context.Background())
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, 0, prompter.timesShown())
}

func TestBroker_SignalConsumedByPrompt(t *testing.T) {
	prompter := &fakePrompter{accepted: true}
	b := NewBroker(prompter)

	b.OnInstallabilitySignal(schema.InstallSignal{ReceivedAt: time.Now()})
	assert.True(t, b.CanInstall())

	accepted, err := b.ShowPrompt(context.Background())
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, 1, prompter.timesShown())

	// The slot is spent: no re-prompt from the same signal
	assert.False(t, b.CanInstall())
	accepted, err = b.ShowPrompt(context.Background())
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, 1, prompter.timesShown())
}

func TestBroker_DismissalStillConsumes(t *testing.T) {
	prompter := &fakePrompter{accepted: false}
	b := NewBroker(prompter)

	b.OnInstallabilitySignal(schema.InstallSignal{ReceivedAt: time.Now()})

	accepted, err := b.ShowPrompt(context.Background())
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.False(t, b.CanInstall())
}

func TestBroker_NewerSignalReplacesOlder(t *testing.T) {
	prompter := &fakePrompter{accepted: true}
	b := NewBroker(prompter)

	b.OnInstallabilitySignal(schema.InstallSignal{ReceivedAt: time.Now(), Platforms: []string{"old"}})
	b.OnInstallabilitySignal(schema.InstallSignal{ReceivedAt: time.Now(), Platforms: []string{"new"}})
	assert.True(t, b.CanInstall())

	// Only one prompt comes out of two signals
	_, err := b.ShowPrompt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, prompter.timesShown())
	assert.False(t, b.CanInstall())
}

func TestBroker_NewSignalReopensSlot(t *testing.T) {
	prompter := &fakePrompter{accepted: true}
	b := NewBroker(prompter)

	b.OnInstallabilitySignal(schema.InstallSignal{ReceivedAt: time.Now()})
	_, err := b.ShowPrompt(context.Background())
	require.NoError(t, err)

	b.OnInstallabilitySignal(schema.InstallSignal{ReceivedAt: time.Now()})
	assert.True(t, b.CanInstall())

	accepted, err := b.ShowPrompt(context.Background())
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, 2, prompter.timesShown())
}
