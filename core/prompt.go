package core

import (
	"context"
	"sync"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
)

// Broker holds the single install-prompt slot. Signals are consumed by
// ShowPrompt; once consumed, prompting is unavailable until the host delivers
// a new signal.
type Broker struct {
	mu       sync.Mutex
	signal   *schema.InstallSignal
	prompter contract.InstallPrompter
}

// NewBroker creates a Broker with an empty slot.
func NewBroker(prompter contract.InstallPrompter) *Broker {
	return &Broker{prompter: prompter}
}

// OnInstallabilitySignal stores the latest un-consumed signal. A newer
// signal replaces an older unconsumed one.
func (b *Broker) OnInstallabilitySignal(sig schema.InstallSignal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signal = &sig
}

// CanInstall reports whether a prompt is currently available.
func (b *Broker) CanInstall() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.signal != nil
}

// ShowPrompt consumes the slot and shows the host prompt. With no stored
// signal it reports false without error; there is no re-prompt from the same
// signal.
func (b *Broker) ShowPrompt(ctx context.Context) (bool, error) {
	b.mu.Lock()
	sig := b.signal
	b.signal = nil // consumed regardless of the user choice
	b.mu.Unlock()

	if sig == nil {
		return false, nil
	}
	return b.prompter.Prompt(ctx, *sig)
}
