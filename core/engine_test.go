package core

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineHarness struct {
	engine   *Engine
	client   *fakeNetClient
	notifier *fakeNotifier
	opener   *fakeOpener
	prompter *fakePrompter
	mgr      *testStoreManager
	cancel   context.CancelFunc
}

func newEngineHarness(t *testing.T, cfg *contract.Config) *engineHarness {
	t.Helper()

	mgr := &testStoreManager{
		cache:     newTestCacheStore(t),
		mutations: newTestMutationStore(t, cfg.ReplayMaxAttempts),
	}
	client := newFakeNetClient()
	notifier := &fakeNotifier{granted: true}
	opener := &fakeOpener{}
	prompter := &fakePrompter{accepted: true}

	engine := NewEngine(cfg, mgr, client, notifier, opener, prompter)

	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx)
	t.Cleanup(cancel)

	return &engineHarness{
		engine:   engine,
		client:   client,
		notifier: notifier,
		opener:   opener,
		prompter: prompter,
		mgr:      mgr,
		cancel:   cancel,
	}
}

// activate drives the engine through install and activation.
func (h *engineHarness) activate(t *testing.T) {
	t.Helper()
	h.engine.Dispatch(schema.InstallEvent{})
	h.engine.Dispatch(schema.ActivateEvent{})
	require.Eventually(t, func() bool {
		return h.engine.Lifecycle().State() == schema.Activated
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_InstallAndActivate(t *testing.T) {
	cfg := configWithManifest(t, "/,/app.js")
	h := newEngineHarness(t, cfg)
	h.client.serve("GET", "https://app.example.com/", 200, "index")
	h.client.serve("GET", "https://app.example.com/app.js", 200, "js")

	h.activate(t)

	keys, err := h.mgr.cache.ListKeys(context.Background(), "demo-v2")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestEngine_RequestBeforeActivationRefused(t *testing.T) {
	cfg := configWithManifest(t, "")
	h := newEngineHarness(t, cfg)
	h.client.serve("GET", "https://app.example.com/page", 200, "hello")

	// No activation: the engine must not serve requests yet
	req, err := http.NewRequest(http.MethodGet, "https://app.example.com/page", nil)
	require.NoError(t, err)
	reply := make(chan schema.RequestOutcome, 1)
	h.engine.Dispatch(schema.RequestEvent{Request: req, Reply: reply})

	select {
	case outcome := <-reply:
		assert.ErrorIs(t, outcome.Err, contract.ErrNotActivated)
		assert.Nil(t, outcome.Response)
	case <-time.After(2 * time.Second):
		t.Fatal("no reply from engine")
	}
}

func TestEngine_RequestAfterFailedInstallRefused(t *testing.T) {
	cfg := configWithManifest(t, "/missing.js")
	h := newEngineHarness(t, cfg)
	// The manifest member 404s, so the install fails and the new namespace
	// is discarded
	h.engine.Dispatch(schema.InstallEvent{})

	req, err := http.NewRequest(http.MethodGet, "https://app.example.com/page", nil)
	require.NoError(t, err)
	reply := make(chan schema.RequestOutcome, 1)
	h.engine.Dispatch(schema.RequestEvent{Request: req, Reply: reply})

	// The discarded namespace must never serve a read
	select {
	case outcome := <-reply:
		assert.ErrorIs(t, outcome.Err, contract.ErrNotActivated)
	case <-time.After(2 * time.Second):
		t.Fatal("no reply from engine")
	}
	assert.NotEqual(t, schema.Activated, h.engine.Lifecycle().State())
}

func TestEngine_RequestThroughTransport(t *testing.T) {
	cfg := configWithManifest(t, "")
	h := newEngineHarness(t, cfg)
	h.client.serve("GET", "https://app.example.com/page", 200, "hello")
	h.activate(t)

	httpClient := &http.Client{Transport: NewTransport(h.engine)}

	resp, err := httpClient.Get("https://app.example.com/page")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "miss", resp.Header.Get("Outpost-Cache"))

	// Second fetch is a cache hit
	resp, err = httpClient.Get("https://app.example.com/page")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "hit", resp.Header.Get("Outpost-Cache"))
}

func TestEngine_OfflineWriteIsQueued(t *testing.T) {
	cfg := configWithManifest(t, "")
	h := newEngineHarness(t, cfg)
	h.activate(t)
	h.client.setOffline(true)

	httpClient := &http.Client{Transport: NewTransport(h.engine)}

	req, err := http.NewRequest(http.MethodPost, "https://app.example.com/api/notes", nil)
	require.NoError(t, err)
	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	queuedID := resp.Header.Get("Outpost-Queued-Id")
	assert.NotEmpty(t, queuedID)

	pending, err := h.mgr.mutations.List(context.Background(), schema.DefaultQueueTag)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, queuedID, pending[0].ID)
}

func TestEngine_ReconnectReplaysQueue(t *testing.T) {
	cfg := configWithManifest(t, "")
	h := newEngineHarness(t, cfg)
	h.activate(t)

	// Go offline and queue a write
	h.engine.Dispatch(schema.ConnectivityEvent{Online: false})
	h.client.setOffline(true)

	httpClient := &http.Client{Transport: NewTransport(h.engine)}
	req, err := http.NewRequest(http.MethodPost, "https://app.example.com/api/notes", nil)
	require.NoError(t, err)
	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	// Come back online; the queue drains via the connectivity subscription
	h.client.setOffline(false)
	h.client.serve("POST", "https://app.example.com/api/notes", 201, "created")
	h.engine.Dispatch(schema.ConnectivityEvent{Online: true})

	require.Eventually(t, func() bool {
		pending, err := h.mgr.mutations.List(context.Background(), schema.DefaultQueueTag)
		return err == nil && len(pending) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_SyncEventReplaysQueue(t *testing.T) {
	cfg := configWithManifest(t, "")
	h := newEngineHarness(t, cfg)
	h.activate(t)

	h.client.setOffline(true)
	httpClient := &http.Client{Transport: NewTransport(h.engine)}
	req, err := http.NewRequest(http.MethodPut, "https://app.example.com/api/settings", nil)
	require.NoError(t, err)
	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	h.client.setOffline(false)
	h.client.serve("PUT", "https://app.example.com/api/settings", 200, "ok")
	h.engine.Dispatch(schema.SyncEvent{})

	require.Eventually(t, func() bool {
		pending, err := h.mgr.mutations.List(context.Background(), schema.DefaultQueueTag)
		return err == nil && len(pending) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_PushRendersNotification(t *testing.T) {
	cfg := configWithManifest(t, "")
	h := newEngineHarness(t, cfg)

	h.engine.Dispatch(schema.PushEvent{Payload: []byte(`{"title":"Ping"}`)})

	require.Eventually(t, func() bool {
		h.notifier.mu.Lock()
		defer h.notifier.mu.Unlock()
		return len(h.notifier.rendered) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_NotificationClickOpensURL(t *testing.T) {
	cfg := configWithManifest(t, "")
	h := newEngineHarness(t, cfg)

	h.engine.Dispatch(schema.NotificationClickEvent{
		Notification: schema.NotificationPayload{DeepLinkURL: "https://app.example.com/deep"},
	})

	require.Eventually(t, func() bool {
		h.opener.mu.Lock()
		defer h.opener.mu.Unlock()
		return len(h.opener.opened) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_InstallPromptSignal(t *testing.T) {
	cfg := configWithManifest(t, "")
	h := newEngineHarness(t, cfg)

	h.engine.Dispatch(schema.InstallPromptEvent{Signal: schema.InstallSignal{ReceivedAt: time.Now()}})

	require.Eventually(t, func() bool {
		return h.engine.Broker().CanInstall()
	}, 2*time.Second, 10*time.Millisecond)

	accepted, err := h.engine.Broker().ShowPrompt(context.Background())
	require.NoError(t, err)
	assert.True(t, accepted)
}
