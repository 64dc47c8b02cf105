package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
)

// Lifecycle drives one generation of the engine through its states:
// Installing, Waiting, Activating, Activated, Redundant. Transitions only
// move forward; a failed install leaves the previous generation current.
type Lifecycle struct {
	mu     sync.RWMutex
	cfg    *contract.Config
	store  contract.CacheStore
	client contract.NetworkClient
	state  schema.LifecycleState
}

// NewLifecycle creates a lifecycle manager in the Installing state.
func NewLifecycle(cfg *contract.Config, store contract.CacheStore, client contract.NetworkClient) *Lifecycle {
	return &Lifecycle{
		cfg:    cfg,
		store:  store,
		client: client,
		state:  schema.Installing,
	}
}

// Namespace returns the cache namespace for the configured generation.
func (l *Lifecycle) Namespace() string {
	return NamespaceName(l.cfg.ProductName, l.cfg.Generation)
}

// NamespaceName builds the canonical namespace for a product generation.
func NamespaceName(product string, generation int) string {
	return fmt.Sprintf("%s-v%d", product, generation)
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() schema.LifecycleState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Install runs the install phase: fetch every manifest member and store it in
// the new namespace. All-or-nothing; any member failing discards the new
// namespace and the install fails. There is no partial precache and no retry.
func (l *Lifecycle) Install(ctx context.Context) error {
	l.mu.Lock()
	if l.state != schema.Installing {
		state := l.state
		l.mu.Unlock()
		return fmt.Errorf("install requires the installing state, currently %s", state)
	}
	l.mu.Unlock()

	namespace := l.Namespace()

	for _, member := range l.cfg.PrecacheManifest {
		if err := l.precacheOne(ctx, namespace, member); err != nil {
			// Discard everything stored so far; the previous generation
			// stays current
			if cleanupErr := l.store.DeleteNamespace(ctx, namespace); cleanupErr != nil {
				contract.LogWarn("failed to discard partial namespace "+namespace, cleanupErr)
			}
			return fmt.Errorf("%w: manifest member %s: %v", contract.ErrInstallFailed, member, err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cfg.SkipWaiting {
		l.state = schema.Activating
	} else {
		l.state = schema.Waiting
	}
	return nil
}

// precacheOne fetches one manifest member and stores it under its cache key.
// Any non-200 counts as failure during install.
func (l *Lifecycle) precacheOne(ctx context.Context, namespace, member string) error {
	resp, err := l.client.Do(ctx, "GET", member, nil, nil)
	if err != nil {
		return err
	}
	if resp.Status != 200 {
		return fmt.Errorf("unexpected status %d", resp.Status)
	}

	key, err := RequestCacheKey("GET", member)
	if err != nil {
		return err
	}
	payload, err := encodeResponse(resp)
	if err != nil {
		return err
	}
	return l.store.Put(ctx, namespace, key, payload)
}

// SkipWaiting promotes a waiting generation straight to Activating.
func (l *Lifecycle) SkipWaiting() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == schema.Waiting {
		l.state = schema.Activating
	}
}

// Activate takes ownership: every namespace other than the current one is
// deleted, then the state becomes Activated. Eviction is complete before the
// generation starts serving.
func (l *Lifecycle) Activate(ctx context.Context) error {
	l.mu.Lock()
	if l.state == schema.Waiting {
		l.state = schema.Activating
	}
	if l.state != schema.Activating {
		state := l.state
		l.mu.Unlock()
		return fmt.Errorf("activate requires the waiting or activating state, currently %s", state)
	}
	l.mu.Unlock()

	current := l.Namespace()
	namespaces, err := l.store.ListNamespaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list namespaces for eviction: %w", err)
	}

	for _, ns := range namespaces {
		if ns == current {
			continue
		}
		if err := l.store.DeleteNamespace(ctx, ns); err != nil {
			return fmt.Errorf("failed to evict stale namespace %s: %w", ns, err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = schema.Activated
	return nil
}

// Retire marks this generation Redundant after a newer one takes over.
func (l *Lifecycle) Retire() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = schema.Redundant
}

// RequireActivated returns ErrNotActivated unless the generation is serving.
func (l *Lifecycle) RequireActivated() error {
	if l.State() != schema.Activated {
		return contract.ErrNotActivated
	}
	return nil
}
