package core

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
)

// fakeNetClient serves canned responses keyed by "METHOD URL" and records
// every call. Unknown requests fail with errUpstreamDown when offline is set,
// otherwise return 404.
type fakeNetClient struct {
	mu        sync.Mutex
	responses map[string]*schema.CachedResponse
	offline   bool
	calls     []string
}

var errUpstreamDown = errors.New("upstream unreachable")

func newFakeNetClient() *fakeNetClient {
	return &fakeNetClient{responses: make(map[string]*schema.CachedResponse)}
}

func (f *fakeNetClient) serve(method, url string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method+" "+url] = &schema.CachedResponse{
		Status:   status,
		Header:   http.Header{"Content-Type": []string{"text/plain"}},
		Body:     []byte(body),
		FinalURL: url,
	}
}

func (f *fakeNetClient) setOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = offline
}

func (f *fakeNetClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeNetClient) Do(_ context.Context, method, url string, _ []byte, _ http.Header) (*schema.CachedResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method+" "+url)
	if f.offline {
		return nil, errUpstreamDown
	}
	if resp, ok := f.responses[method+" "+url]; ok {
		return resp, nil
	}
	return &schema.CachedResponse{Status: http.StatusNotFound, FinalURL: url}, nil
}

var _ contract.NetworkClient = &fakeNetClient{} // Compile-time check

// fakeNotifier records rendered notifications.
type fakeNotifier struct {
	mu        sync.Mutex
	granted   bool
	renderErr error
	rendered  []schema.NotificationPayload
}

func (f *fakeNotifier) Notify(_ context.Context, n schema.NotificationPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renderErr != nil {
		return f.renderErr
	}
	f.rendered = append(f.rendered, n)
	return nil
}

func (f *fakeNotifier) PermissionGranted() bool { return f.granted }

var _ contract.Notifier = &fakeNotifier{} // Compile-time check

// fakeOpener records opened URLs.
type fakeOpener struct {
	mu     sync.Mutex
	opened []string
}

func (f *fakeOpener) OpenURL(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, url)
	return nil
}

var _ contract.HostOpener = &fakeOpener{} // Compile-time check

// fakePrompter answers install prompts with a fixed choice.
type fakePrompter struct {
	mu       sync.Mutex
	accepted bool
	shown    int
}

func (f *fakePrompter) Prompt(_ context.Context, _ schema.InstallSignal) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown++
	return f.accepted, nil
}

func (f *fakePrompter) timesShown() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shown
}

var _ contract.InstallPrompter = &fakePrompter{} // Compile-time check

// testStoreManager bundles per-test stores behind the manager interface.
type testStoreManager struct {
	cache     contract.CacheStore
	mutations contract.MutationStore
	history   contract.HistoryStore
}

func (m *testStoreManager) GetCacheStore() contract.CacheStore       { return m.cache }
func (m *testStoreManager) GetMutationStore() contract.MutationStore { return m.mutations }
func (m *testStoreManager) GetHistoryStore() contract.HistoryStore   { return m.history }

var _ contract.StoreManager = &testStoreManager{} // Compile-time check

// testConfig returns a validated config pointing at the fake origin.
func testConfig() *contract.Config {
	cfg := &contract.Config{}
	input := &contract.ConfigRawInput{
		Product:        "demo",
		Generation:     1,
		Origin:         "https://app.example.com",
		CacheBackend:   "sqlite",
		HistoryBackend: "none",
		Color:          "false",
	}
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		panic(err)
	}
	return cfg
}
