package core

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/outpostlabs/outpost/schema"
)

// Transport adapts the engine into an http.RoundTripper so embedding hosts
// can route an http.Client through the cache and queue without touching the
// event API directly.
type Transport struct {
	engine *Engine
}

var _ http.RoundTripper = &Transport{} // Compile-time check

// NewTransport creates a RoundTripper backed by a running engine.
func NewTransport(engine *Engine) *Transport {
	return &Transport{engine: engine}
}

// RoundTrip dispatches the request as an event and waits for its outcome.
// A deferred mutation surfaces as 202 Accepted with the queue id in the
// Outpost-Queued-Id header.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	reply := make(chan schema.RequestOutcome, 1)
	t.engine.Dispatch(schema.RequestEvent{Request: req, Reply: reply})

	select {
	case <-req.Context().Done():
		return nil, req.Context().Err()
	case outcome := <-reply:
		return outcomeToResponse(req, outcome)
	}
}

// outcomeToResponse converts a request outcome into a standard http.Response.
func outcomeToResponse(req *http.Request, outcome schema.RequestOutcome) (*http.Response, error) {
	if outcome.Err != nil {
		return nil, outcome.Err
	}

	if outcome.QueuedID != "" {
		header := make(http.Header)
		header.Set("Outpost-Queued-Id", outcome.QueuedID)
		return &http.Response{
			StatusCode: http.StatusAccepted,
			Status:     fmt.Sprintf("%d %s", http.StatusAccepted, http.StatusText(http.StatusAccepted)),
			Header:     header,
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Request:    req,
		}, nil
	}

	resp := outcome.Response
	header := resp.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if outcome.FromCache {
		header.Set("Outpost-Cache", "hit")
	} else {
		header.Set("Outpost-Cache", "miss")
	}

	return &http.Response{
		StatusCode:    resp.Status,
		Status:        fmt.Sprintf("%d %s", resp.Status, http.StatusText(resp.Status)),
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}, nil
}
