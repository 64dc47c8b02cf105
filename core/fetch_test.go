package core

import (
	"context"
	"net/http"
	"testing"

	"github.com/outpostlabs/outpost/internal/iostore"
	"github.com/outpostlabs/outpost/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, client *fakeNetClient) *Resolver {
	t.Helper()
	store, err := iostore.NewCacheStore("outpost_cache_entries", schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewResolver(testConfig(), store, client, "demo-v1")
}

func mustRequest(t *testing.T, method, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	return req
}

func TestResolver_MissThenHit(t *testing.T) {
	client := newFakeNetClient()
	client.serve("GET", "https://app.example.com/page", 200, "hello")
	resolver := newTestResolver(t, client)

	ctx := context.Background()
	req := mustRequest(t, "GET", "https://app.example.com/page")

	// First request misses and goes upstream
	resp, fromCache, err := resolver.Resolve(ctx, req)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, []byte("hello"), resp.Body)
	assert.Equal(t, 1, client.callCount())

	// Second request is served from the cache without touching the network
	resp, fromCache, err = resolver.Resolve(ctx, mustRequest(t, "GET", "https://app.example.com/page"))
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, []byte("hello"), resp.Body)
	assert.Equal(t, 1, client.callCount())
}

func TestResolver_HitSurvivesOffline(t *testing.T) {
	client := newFakeNetClient()
	client.serve("GET", "https://app.example.com/page", 200, "hello")
	resolver := newTestResolver(t, client)

	ctx := context.Background()
	_, _, err := resolver.Resolve(ctx, mustRequest(t, "GET", "https://app.example.com/page"))
	require.NoError(t, err)

	client.setOffline(true)

	resp, fromCache, err := resolver.Resolve(ctx, mustRequest(t, "GET", "https://app.example.com/page"))
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, []byte("hello"), resp.Body)
}

func TestResolver_OfflineMissFails(t *testing.T) {
	client := newFakeNetClient()
	client.setOffline(true)
	resolver := newTestResolver(t, client)

	_, _, err := resolver.Resolve(context.Background(), mustRequest(t, "GET", "https://app.example.com/page"))
	assert.Error(t, err)
}

func TestResolver_NonSuccessNotCached(t *testing.T) {
	client := newFakeNetClient()
	client.serve("GET", "https://app.example.com/flaky", 503, "down")
	resolver := newTestResolver(t, client)

	ctx := context.Background()
	resp, fromCache, err := resolver.Resolve(ctx, mustRequest(t, "GET", "https://app.example.com/flaky"))
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 503, resp.Status)

	// The 503 was not stored, so the next request goes upstream again
	_, fromCache, err = resolver.Resolve(ctx, mustRequest(t, "GET", "https://app.example.com/flaky"))
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 2, client.callCount())
}

func TestResolver_CrossOriginNotCached(t *testing.T) {
	client := newFakeNetClient()
	client.serve("GET", "https://cdn.other.com/lib.js", 200, "lib")
	resolver := newTestResolver(t, client)

	ctx := context.Background()
	_, fromCache, err := resolver.Resolve(ctx, mustRequest(t, "GET", "https://cdn.other.com/lib.js"))
	require.NoError(t, err)
	assert.False(t, fromCache)

	_, fromCache, err = resolver.Resolve(ctx, mustRequest(t, "GET", "https://cdn.other.com/lib.js"))
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 2, client.callCount())
}

func TestResolver_EquivalentURLsShareEntry(t *testing.T) {
	client := newFakeNetClient()
	client.serve("GET", "https://app.example.com/list?a=1&b=2", 200, "data")
	resolver := newTestResolver(t, client)

	ctx := context.Background()
	_, _, err := resolver.Resolve(ctx, mustRequest(t, "GET", "https://app.example.com/list?a=1&b=2"))
	require.NoError(t, err)

	// Same identity, different query order: served from cache
	resp, fromCache, err := resolver.Resolve(ctx, mustRequest(t, "GET", "https://app.example.com/list?b=2&a=1"))
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, []byte("data"), resp.Body)
	assert.Equal(t, 1, client.callCount())
}
