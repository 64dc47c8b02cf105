// Package gateway exposes the engine over HTTP for host applications.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/outpostlabs/outpost/core"
	"github.com/outpostlabs/outpost/internal/contract"
)

// shutdownGrace bounds how long in-flight requests may run after the serve
// context is canceled.
const shutdownGrace = 5 * time.Second

// Gateway routes host HTTP traffic into the engine: proxied origin requests,
// host event signals, and the control API.
type Gateway struct {
	cfg       *contract.Config
	engine    *core.Engine
	mgr       contract.StoreManager
	transport *core.Transport
}

// NewGateway creates a Gateway for a wired engine.
func NewGateway(cfg *contract.Config, engine *core.Engine, mgr contract.StoreManager) *Gateway {
	return &Gateway{
		cfg:       cfg,
		engine:    engine,
		mgr:       mgr,
		transport: core.NewTransport(engine),
	}
}

// Router builds the HTTP route table.
func (g *Gateway) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", g.handleHealth).Methods("GET")

	r.PathPrefix("/proxy/").HandlerFunc(g.handleProxy)

	r.HandleFunc("/events/install", g.handleInstallEvent).Methods("POST")
	r.HandleFunc("/events/activate", g.handleActivateEvent).Methods("POST")
	r.HandleFunc("/events/push", g.handlePushEvent).Methods("POST")
	r.HandleFunc("/events/sync", g.handleSyncEvent).Methods("POST")
	r.HandleFunc("/events/connectivity", g.handleConnectivityEvent).Methods("POST")
	r.HandleFunc("/events/install-prompt", g.handleInstallPromptEvent).Methods("POST")
	r.HandleFunc("/events/notification-click", g.handleNotificationClickEvent).Methods("POST")

	r.HandleFunc("/v1/lifecycle", g.handleLifecycle).Methods("GET")
	r.HandleFunc("/v1/connectivity", g.handleConnectivity).Methods("GET")
	r.HandleFunc("/v1/cache/status", g.handleCacheStatus).Methods("GET")
	r.HandleFunc("/v1/queue", g.handleQueueList).Methods("GET")
	r.HandleFunc("/v1/queue/status", g.handleQueueStatus).Methods("GET")
	r.HandleFunc("/v1/queue/replay", g.handleQueueReplay).Methods("POST")
	r.HandleFunc("/v1/queue/{id}", g.handleQueueCancel).Methods("DELETE")
	r.HandleFunc("/v1/history/status", g.handleHistoryStatus).Methods("GET")
	r.HandleFunc("/v1/install-prompt", g.handlePromptState).Methods("GET")
	r.HandleFunc("/v1/install-prompt/show", g.handlePromptShow).Methods("POST")

	return r
}

// Serve runs the HTTP listener until the context is canceled.
func (g *Gateway) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    g.cfg.ListenAddr,
		Handler: g.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
