// Package netclient implements the upstream HTTP client used by the engine.
package netclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
)

// HTTPNetworkClient issues real HTTP requests with net/http.
type HTTPNetworkClient struct {
	client *http.Client
}

var _ contract.NetworkClient = &HTTPNetworkClient{} // Compile-time check

// NewHTTPNetworkClient returns a client backed by a dedicated http.Client.
// No request timeout is set; requests run to the platform default.
func NewHTTPNetworkClient() *HTTPNetworkClient {
	return &HTTPNetworkClient{client: &http.Client{}}
}

// NewWithClient wraps an existing http.Client. Used by tests to point the
// engine at an httptest server transport.
func NewWithClient(client *http.Client) *HTTPNetworkClient {
	return &HTTPNetworkClient{client: client}
}

// Do implements the NetworkClient interface. The response body is drained
// fully so the result can be persisted or replayed without holding a
// connection open.
func (c *HTTPNetworkClient) Do(ctx context.Context, method, url string, body []byte, header http.Header) (*schema.CachedResponse, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, url, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body for %s %s: %w", method, url, err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &schema.CachedResponse{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     payload,
		FinalURL: finalURL,
	}, nil
}
