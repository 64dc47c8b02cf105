package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
)

// writeJSONResponse encodes a JSON body with the right content type.
func writeJSONResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		contract.LogWarn("failed to encode response", err)
	}
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  string(g.engine.Lifecycle().State()),
	})
}

// handleProxy forwards a request through the cache-first engine. The path
// after /proxy is resolved against the configured origin.
func (g *Gateway) handleProxy(w http.ResponseWriter, r *http.Request) {
	target := g.cfg.Origin + strings.TrimPrefix(r.URL.Path, "/proxy")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	upstream, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		http.Error(w, "invalid proxy target: "+err.Error(), http.StatusBadRequest)
		return
	}
	upstream.Header = r.Header.Clone()

	resp, err := g.transport.RoundTrip(upstream)
	if err != nil {
		http.Error(w, "upstream unavailable: "+err.Error(), http.StatusBadGateway)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		contract.LogWarn("failed to stream proxy response", err)
	}
}

func (g *Gateway) handleInstallEvent(w http.ResponseWriter, r *http.Request) {
	g.engine.Dispatch(schema.InstallEvent{})
	w.WriteHeader(http.StatusAccepted)
}

func (g *Gateway) handleActivateEvent(w http.ResponseWriter, r *http.Request) {
	g.engine.Dispatch(schema.ActivateEvent{})
	w.WriteHeader(http.StatusAccepted)
}

func (g *Gateway) handlePushEvent(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	g.engine.Dispatch(schema.PushEvent{Payload: payload})
	w.WriteHeader(http.StatusAccepted)
}

func (g *Gateway) handleSyncEvent(w http.ResponseWriter, r *http.Request) {
	g.engine.Dispatch(schema.SyncEvent{Tag: r.URL.Query().Get("tag")})
	w.WriteHeader(http.StatusAccepted)
}

func (g *Gateway) handleConnectivityEvent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid connectivity payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	g.engine.Dispatch(schema.ConnectivityEvent{Online: body.Online})
	w.WriteHeader(http.StatusAccepted)
}

func (g *Gateway) handleInstallPromptEvent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Platforms []string `json:"platforms"`
	}
	// An empty body is a valid signal with no platform hints
	_ = json.NewDecoder(r.Body).Decode(&body)

	g.engine.Dispatch(schema.InstallPromptEvent{Signal: schema.InstallSignal{
		ReceivedAt: time.Now(),
		Platforms:  body.Platforms,
	}})
	w.WriteHeader(http.StatusAccepted)
}

func (g *Gateway) handleNotificationClickEvent(w http.ResponseWriter, r *http.Request) {
	var payload schema.NotificationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid notification payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	g.engine.Dispatch(schema.NotificationClickEvent{Notification: payload})
	w.WriteHeader(http.StatusAccepted)
}

func (g *Gateway) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"state":     string(g.engine.Lifecycle().State()),
		"namespace": g.engine.Lifecycle().Namespace(),
	})
}

func (g *Gateway) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, g.engine.Monitor().State())
}

func (g *Gateway) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	status, err := g.mgr.GetCacheStore().GetStatus()
	if err != nil {
		http.Error(w, "failed to read cache status: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, status)
}

func (g *Gateway) handleQueueList(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		tag = g.cfg.QueueTag
	}
	pending, err := g.mgr.GetMutationStore().List(r.Context(), tag)
	if err != nil {
		http.Error(w, "failed to list queue: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"tag":       tag,
		"mutations": pending,
	})
}

func (g *Gateway) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	status, err := g.mgr.GetMutationStore().GetStatus()
	if err != nil {
		http.Error(w, "failed to read queue status: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, status)
}

func (g *Gateway) handleQueueReplay(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		tag = g.cfg.QueueTag
	}
	summary, err := g.engine.Replayer().ReplayTag(r.Context(), schema.ManualTrigger, tag)
	if err != nil {
		http.Error(w, "replay failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, summary)
}

func (g *Gateway) handleQueueCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := g.engine.Replayer().Cancel(r.Context(), id); err != nil {
		if errors.Is(err, contract.ErrMutationNotFound) {
			http.Error(w, "mutation not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to cancel mutation: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleHistoryStatus(w http.ResponseWriter, r *http.Request) {
	status, err := g.mgr.GetHistoryStore().GetStatus()
	if err != nil {
		http.Error(w, "failed to read history status: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, status)
}

func (g *Gateway) handlePromptState(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]bool{
		"can_install": g.engine.Broker().CanInstall(),
	})
}

func (g *Gateway) handlePromptShow(w http.ResponseWriter, r *http.Request) {
	accepted, err := g.engine.Broker().ShowPrompt(r.Context())
	if err != nil {
		http.Error(w, "prompt failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]bool{"accepted": accepted})
}
