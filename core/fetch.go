package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
)

// Resolver implements the cache-first retrieval strategy for intercepted
// requests. Reads never touch the network on a hit; misses go upstream and
// cacheable responses are written through.
type Resolver struct {
	cfg     *contract.Config
	store   contract.CacheStore
	client  contract.NetworkClient
	current string // active namespace
}

// NewResolver creates a Resolver bound to one namespace.
func NewResolver(cfg *contract.Config, store contract.CacheStore, client contract.NetworkClient, namespace string) *Resolver {
	return &Resolver{
		cfg:     cfg,
		store:   store,
		client:  client,
		current: namespace,
	}
}

// Resolve answers one intercepted request. The bool reports whether the
// response came from the cache.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (*schema.CachedResponse, bool, error) {
	key, err := RequestCacheKey(req.Method, req.URL.String())
	if err != nil {
		return nil, false, err
	}

	// Cache hit wins unconditionally
	if payload, err := r.store.Get(ctx, r.current, key); err == nil {
		resp, err := decodeResponse(payload)
		if err != nil {
			// A corrupt entry behaves like a miss
			contract.LogWarn("discarding undecodable cache entry", err)
		} else {
			return resp, true, nil
		}
	} else if !errors.Is(err, contract.ErrCacheMiss) {
		// Store read failures degrade to network, not to request failure
		contract.LogWarn("cache read failed, falling through to network", err)
	}

	var body []byte
	if req.Body != nil {
		body, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, false, fmt.Errorf("failed to read request body: %w", err)
		}
	}

	resp, err := r.client.Do(ctx, req.Method, req.URL.String(), body, req.Header)
	if err != nil {
		// No cache entry and no network: the failure propagates
		return nil, false, fmt.Errorf("%w: %v", contract.ErrNetworkFetch, err)
	}

	if r.isCacheable(req, resp) {
		payload, err := encodeResponse(resp)
		if err != nil {
			contract.LogWarn("failed to encode response for caching", err)
		} else if err := r.store.Put(ctx, r.current, key, payload); err != nil {
			// Write-through failure degrades; the response still flows
			contract.LogWarn("cache write failed", err)
		}
	}

	return resp, false, nil
}

// isCacheable reports whether a response may be written through: a 200 on a
// GET whose final URL is same-origin with the configured upstream.
func (r *Resolver) isCacheable(req *http.Request, resp *schema.CachedResponse) bool {
	if req.Method != http.MethodGet {
		return false
	}
	if resp.Status != http.StatusOK {
		return false
	}
	return sameOrigin(resp.FinalURL, r.cfg.OriginURL)
}

// sameOrigin reports whether a URL shares scheme and host with the origin.
func sameOrigin(rawURL string, origin *url.URL) bool {
	if origin == nil {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, origin.Scheme) && strings.EqualFold(u.Host, origin.Host)
}

// readAllAndClose drains and closes a request body.
func readAllAndClose(rc io.ReadCloser) ([]byte, error) {
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return b, nil
}

// encodeResponse serializes a response for durable storage.
func encodeResponse(resp *schema.CachedResponse) ([]byte, error) {
	return json.Marshal(resp)
}

// decodeResponse deserializes a stored response payload.
func decodeResponse(payload []byte) (*schema.CachedResponse, error) {
	var resp schema.CachedResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode cached response: %w", err)
	}
	return &resp, nil
}
