package core

import (
	"context"
	"net/http"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
)

// eventBuffer sizes the dispatch channel. Posting never blocks the host for
// bursts smaller than this.
const eventBuffer = 64

// Engine is the top-level coordinator. All host interaction arrives as typed
// events; the engine handles them one at a time on a single goroutine.
// Request events hand off to their own goroutine so a slow upstream never
// stalls lifecycle or push handling.
type Engine struct {
	cfg        *contract.Config
	mgr        contract.StoreManager
	monitor    *Monitor
	lifecycle  *Lifecycle
	resolver   *Resolver
	replayer   *Replayer
	dispatcher *Dispatcher
	broker     *Broker
	client     contract.NetworkClient

	events chan schema.Event
	done   chan struct{}
}

// NewEngine wires the engine components together.
func NewEngine(cfg *contract.Config, mgr contract.StoreManager, client contract.NetworkClient, notifier contract.Notifier, opener contract.HostOpener, prompter contract.InstallPrompter) *Engine {
	monitor := NewMonitor()
	lifecycle := NewLifecycle(cfg, mgr.GetCacheStore(), client)
	e := &Engine{
		cfg:       cfg,
		mgr:       mgr,
		monitor:   monitor,
		lifecycle: lifecycle,
		// The resolver binds to this generation's namespace up front. If the
		// install fails the namespace is discarded, but resolveRequest refuses
		// everything before Activated, so the empty namespace is never read.
		resolver:   NewResolver(cfg, mgr.GetCacheStore(), client, lifecycle.Namespace()),
		replayer:   NewReplayer(cfg, mgr.GetMutationStore(), mgr.GetHistoryStore(), client),
		dispatcher: NewDispatcher(cfg, notifier, opener),
		broker:     NewBroker(prompter),
		client:     client,
		events:     make(chan schema.Event, eventBuffer),
		done:       make(chan struct{}),
	}

	// Regained connectivity replays the queue. The callback fires on the
	// dispatch goroutine while it handles the connectivity event, so replay
	// stays serialized with lifecycle work.
	monitor.Subscribe(func() {
		if _, err := e.replayer.ReplayAll(context.Background(), schema.ConnectivityTrigger); err != nil {
			contract.LogWarn("replay on reconnect failed", err)
		}
	}, nil)

	return e
}

// Monitor exposes the connectivity monitor for host signal feeds.
func (e *Engine) Monitor() *Monitor { return e.monitor }

// Lifecycle exposes the lifecycle manager.
func (e *Engine) Lifecycle() *Lifecycle { return e.lifecycle }

// Replayer exposes the mutation queue owner.
func (e *Engine) Replayer() *Replayer { return e.replayer }

// Broker exposes the install-prompt broker.
func (e *Engine) Broker() *Broker { return e.broker }

// Dispatch posts one event for handling. It blocks only when the buffer is
// full or the engine has stopped.
func (e *Engine) Dispatch(ev schema.Event) {
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

// Run handles events until the context is canceled. It must be called
// exactly once.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.events:
			e.handle(ctx, ev)
		}
	}
}

// handle processes one event on the dispatch goroutine.
func (e *Engine) handle(ctx context.Context, ev schema.Event) {
	switch ev := ev.(type) {
	case schema.InstallEvent:
		if err := e.lifecycle.Install(ctx); err != nil {
			contract.LogWarn("install failed", err)
		}

	case schema.ActivateEvent:
		if err := e.lifecycle.Activate(ctx); err != nil {
			contract.LogWarn("activate failed", err)
		}

	case schema.RequestEvent:
		// Requests resolve on their own goroutine so the loop keeps serving
		go e.resolveRequest(ctx, ev)

	case schema.PushEvent:
		e.dispatcher.OnPushReceived(ctx, ev.Payload)

	case schema.SyncEvent:
		tag := ev.Tag
		if tag == "" {
			tag = e.cfg.QueueTag
		}
		if _, err := e.replayer.ReplayTag(ctx, schema.SyncTrigger, tag); err != nil {
			contract.LogWarn("sync replay failed", err)
		}

	case schema.NotificationClickEvent:
		if err := e.dispatcher.OnNotificationClicked(ctx, ev.Notification); err != nil {
			contract.LogWarn("failed to open notification target", err)
		}

	case schema.ConnectivityEvent:
		// Subscribed callbacks (queue replay) fire inside SetOnline
		e.monitor.SetOnline(ev.Online)

	case schema.InstallPromptEvent:
		e.broker.OnInstallabilitySignal(ev.Signal)
	}
}

// resolveRequest answers one intercepted request. Reads go cache-first;
// writes go upstream, and an unreachable upstream defers the write into the
// queue instead of failing it.
func (e *Engine) resolveRequest(ctx context.Context, ev schema.RequestEvent) {
	req := ev.Request

	// Interception begins only once the generation is serving
	if err := e.lifecycle.RequireActivated(); err != nil {
		ev.Reply <- schema.RequestOutcome{Err: err}
		return
	}

	if isMutation(req.Method) {
		e.resolveMutation(ctx, ev)
		return
	}

	resp, fromCache, err := e.resolver.Resolve(ctx, req)
	ev.Reply <- schema.RequestOutcome{
		Response:  resp,
		FromCache: fromCache,
		Err:       err,
	}
}

// resolveMutation sends a write upstream, deferring it on transport failure.
func (e *Engine) resolveMutation(ctx context.Context, ev schema.RequestEvent) {
	req := ev.Request

	var body []byte
	if req.Body != nil {
		b, err := readAllAndClose(req.Body)
		if err != nil {
			ev.Reply <- schema.RequestOutcome{Err: err}
			return
		}
		body = b
	}

	resp, err := e.client.Do(ctx, req.Method, req.URL.String(), body, req.Header)
	if err == nil {
		ev.Reply <- schema.RequestOutcome{Response: resp}
		return
	}

	// Upstream unreachable: capture the write for replay
	id, qErr := e.replayer.Enqueue(ctx, req.URL.String(), req.Method, body)
	if qErr != nil {
		ev.Reply <- schema.RequestOutcome{Err: qErr}
		return
	}
	ev.Reply <- schema.RequestOutcome{QueuedID: id}
}

// isMutation reports whether a method carries a state change worth deferring.
func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
