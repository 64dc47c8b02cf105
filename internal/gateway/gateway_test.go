package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/outpostlabs/outpost/core"
	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/internal/iostore"
	"github.com/outpostlabs/outpost/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient serves canned responses keyed by "METHOD URL" and fails every
// request while offline is set.
type stubClient struct {
	mu        sync.Mutex
	responses map[string]*schema.CachedResponse
	offline   bool
}

var errUpstreamDown = errors.New("upstream unreachable")

func newStubClient() *stubClient {
	return &stubClient{responses: make(map[string]*schema.CachedResponse)}
}

func (s *stubClient) serve(method, url string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[method+" "+url] = &schema.CachedResponse{
		Status:   status,
		Header:   http.Header{"Content-Type": []string{"text/plain"}},
		Body:     []byte(body),
		FinalURL: url,
	}
}

func (s *stubClient) setOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}

func (s *stubClient) Do(_ context.Context, method, url string, _ []byte, _ http.Header) (*schema.CachedResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return nil, errUpstreamDown
	}
	if resp, ok := s.responses[method+" "+url]; ok {
		return resp, nil
	}
	return &schema.CachedResponse{Status: http.StatusNotFound, FinalURL: url}, nil
}

var _ contract.NetworkClient = &stubClient{} // Compile-time check

type stubNotifier struct{}

func (stubNotifier) Notify(context.Context, schema.NotificationPayload) error { return nil }
func (stubNotifier) PermissionGranted() bool                                  { return true }

type stubOpener struct{}

func (stubOpener) OpenURL(context.Context, string) error { return nil }

type stubPrompter struct{ accepted bool }

func (p stubPrompter) Prompt(context.Context, schema.InstallSignal) (bool, error) {
	return p.accepted, nil
}

// storeManager bundles per-test stores behind the manager interface.
type storeManager struct {
	cache     contract.CacheStore
	mutations contract.MutationStore
	history   contract.HistoryStore
}

func (m *storeManager) GetCacheStore() contract.CacheStore       { return m.cache }
func (m *storeManager) GetMutationStore() contract.MutationStore { return m.mutations }
func (m *storeManager) GetHistoryStore() contract.HistoryStore   { return m.history }

type gatewayHarness struct {
	server *httptest.Server
	client *stubClient
	mgr    *storeManager
}

func newGatewayHarness(t *testing.T) *gatewayHarness {
	t.Helper()

	cfg := &contract.Config{}
	input := &contract.ConfigRawInput{
		Product:        "demo",
		Generation:     1,
		Origin:         "https://app.example.com",
		CacheBackend:   "sqlite",
		HistoryBackend: "none",
		Color:          "false",
	}
	require.NoError(t, contract.ProcessAndValidate(cfg, input))

	cache, err := iostore.NewCacheStore("outpost_cache_entries", schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	mutations, err := iostore.NewMutationStore("outpost_outbox", schema.SQLiteBackend, ":memory:", cfg.ReplayMaxAttempts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mutations.Close() })

	history, err := iostore.NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = history.Close() })

	mgr := &storeManager{cache: cache, mutations: mutations, history: history}
	client := newStubClient()
	engine := core.NewEngine(cfg, mgr, client, stubNotifier{}, stubOpener{}, stubPrompter{accepted: true})

	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx)
	t.Cleanup(cancel)

	server := httptest.NewServer(NewGateway(cfg, engine, mgr).Router())
	t.Cleanup(server.Close)

	return &gatewayHarness{server: server, client: client, mgr: mgr}
}

func (h *gatewayHarness) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(h.server.URL + path)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, body
}

func (h *gatewayHarness) post(t *testing.T, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(h.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, raw
}

// activate drives the engine to the activated state via event endpoints.
func (h *gatewayHarness) activate(t *testing.T) {
	t.Helper()
	resp, _ := h.post(t, "/events/install", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp, _ = h.post(t, "/events/activate", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		_, body := h.get(t, "/v1/lifecycle")
		var state map[string]string
		if err := json.Unmarshal(body, &state); err != nil {
			return false
		}
		return state["state"] == string(schema.Activated)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGatewayHealth(t *testing.T) {
	h := newGatewayHarness(t)

	resp, body := h.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.Equal(t, "ok", parsed["status"])
	assert.Equal(t, string(schema.Installing), parsed["state"])
}

func TestGatewayProxyCacheFirst(t *testing.T) {
	h := newGatewayHarness(t)
	h.activate(t)
	h.client.serve("GET", "https://app.example.com/api/items", 200, `["a","b"]`)

	resp, body := h.get(t, "/proxy/api/items")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "miss", resp.Header.Get("Outpost-Cache"))
	assert.Equal(t, `["a","b"]`, string(body))

	// Second read is served from cache even with the upstream gone
	h.client.setOffline(true)
	resp, body = h.get(t, "/proxy/api/items")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hit", resp.Header.Get("Outpost-Cache"))
	assert.Equal(t, `["a","b"]`, string(body))
}

func TestGatewayProxyOfflineMissFails(t *testing.T) {
	h := newGatewayHarness(t)
	h.activate(t)
	h.client.setOffline(true)

	resp, _ := h.get(t, "/proxy/api/never-seen")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestGatewayOfflineWriteQueuesAndReplays(t *testing.T) {
	h := newGatewayHarness(t)
	h.activate(t)
	h.client.setOffline(true)

	resp, _ := h.post(t, "/proxy/api/orders", `{"sku":"x"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	queuedID := resp.Header.Get("Outpost-Queued-Id")
	require.NotEmpty(t, queuedID)

	// The queue listing shows the deferred write
	_, body := h.get(t, "/v1/queue")
	var listing struct {
		Tag       string                    `json:"tag"`
		Mutations []schema.DeferredMutation `json:"mutations"`
	}
	require.NoError(t, json.Unmarshal(body, &listing))
	require.Len(t, listing.Mutations, 1)
	assert.Equal(t, queuedID, listing.Mutations[0].ID)
	assert.Equal(t, "https://app.example.com/api/orders", listing.Mutations[0].Endpoint)

	// Manual replay with the upstream back drains the queue
	h.client.setOffline(false)
	h.client.serve("POST", "https://app.example.com/api/orders", 201, "created")

	resp, body = h.post(t, "/v1/queue/replay", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary schema.ReplaySummary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, 1, summary.Successes)

	_, body = h.get(t, "/v1/queue")
	require.NoError(t, json.Unmarshal(body, &listing))
	assert.Empty(t, listing.Mutations)
}

func TestGatewayQueueCancel(t *testing.T) {
	h := newGatewayHarness(t)
	h.activate(t)
	h.client.setOffline(true)

	resp, _ := h.post(t, "/proxy/api/orders", `{"sku":"x"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	queuedID := resp.Header.Get("Outpost-Queued-Id")

	req, err := http.NewRequest(http.MethodDelete, h.server.URL+"/v1/queue/"+queuedID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.NoError(t, delResp.Body.Close())
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	// Canceling again reports the entry as gone
	delResp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.NoError(t, delResp.Body.Close())
	assert.Equal(t, http.StatusNotFound, delResp.StatusCode)
}

func TestGatewayConnectivityEndpoints(t *testing.T) {
	h := newGatewayHarness(t)

	resp, _ := h.post(t, "/events/connectivity", "not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.post(t, "/events/connectivity", `{"online": false}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		_, body := h.get(t, "/v1/connectivity")
		var state schema.ConnectivityState
		if err := json.Unmarshal(body, &state); err != nil {
			return false
		}
		return !state.Online
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGatewayInstallPromptFlow(t *testing.T) {
	h := newGatewayHarness(t)

	_, body := h.get(t, "/v1/install-prompt")
	var state map[string]bool
	require.NoError(t, json.Unmarshal(body, &state))
	assert.False(t, state["can_install"])

	resp, _ := h.post(t, "/events/install-prompt", `{"platforms":["web"]}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		_, body := h.get(t, "/v1/install-prompt")
		if err := json.Unmarshal(body, &state); err != nil {
			return false
		}
		return state["can_install"]
	}, 2*time.Second, 10*time.Millisecond)

	resp, body = h.post(t, "/v1/install-prompt/show", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var choice map[string]bool
	require.NoError(t, json.Unmarshal(body, &choice))
	assert.True(t, choice["accepted"])

	// The signal slot is consumed by showing the prompt
	_, body = h.get(t, "/v1/install-prompt")
	require.NoError(t, json.Unmarshal(body, &state))
	assert.False(t, state["can_install"])
}

func TestGatewayStatusEndpoints(t *testing.T) {
	h := newGatewayHarness(t)

	resp, body := h.get(t, "/v1/cache/status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var cacheStatus schema.CacheStatus
	require.NoError(t, json.Unmarshal(body, &cacheStatus))
	assert.True(t, cacheStatus.Connected)

	resp, body = h.get(t, "/v1/queue/status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var queueStatus schema.QueueStatus
	require.NoError(t, json.Unmarshal(body, &queueStatus))
	assert.True(t, queueStatus.Connected)

	resp, body = h.get(t, "/v1/history/status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var historyStatus schema.HistoryStatus
	require.NoError(t, json.Unmarshal(body, &historyStatus))
	assert.True(t, historyStatus.Connected)
}
