// Package monitor exposes the operator surface over HTTP: the tuning
// parameter API, the live classification state, recent transitions and a
// quick tuning chart. Request handlers touch shared state only through the
// parameter store's atomic operations and the publisher's snapshots.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/carrybot-robotics/stairguard/internal/eventdb"
	"github.com/carrybot-robotics/stairguard/internal/monitoring"
	"github.com/carrybot-robotics/stairguard/internal/params"
	"github.com/carrybot-robotics/stairguard/internal/sampling"
	"github.com/carrybot-robotics/stairguard/internal/version"
)

// WebServer handles the HTTP interface for tuning and observing the
// classifier.
type WebServer struct {
	address   string
	store     *params.Store
	publisher *sampling.Publisher
	db        *eventdb.DB // may be nil
	hub       *Hub
	server    *http.Server
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address   string
	Store     *params.Store
	Publisher *sampling.Publisher
	DB        *eventdb.DB
}

// NewWebServer creates a web server with the provided configuration. The
// caller still has to Start it.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:   config.Address,
		store:     config.Store,
		publisher: config.Publisher,
		db:        config.DB,
		hub:       NewHub(),
	}
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}
	return ws
}

// Hub returns the websocket hub so the publisher can be wired to it.
func (ws *WebServer) Hub() *Hub { return ws.hub }

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Start begins serving in a goroutine and blocks until ctx is cancelled,
// then shuts down gracefully, draining in-flight requests. A failed bind is
// returned through errc so main can treat it as fatal.
func (ws *WebServer) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	go ws.hub.Run(ctx)

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/params", ws.handleParams)
	mux.HandleFunc("/state", ws.handleState)
	mux.HandleFunc("/transitions", ws.handleTransitions)
	mux.HandleFunc("/debug/chart", ws.handleChart)
	mux.HandleFunc("/ws", ws.handleWebsocket)

	return mux
}

// handleHealth handles the health check endpoint.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "stairguard", "version": "%s", "timestamp": "%s"}`,
		version.String(), time.Now().UTC().Format(time.RFC3339))
}

// handleParams serves the tuning API:
//
//	GET  -> the full current parameter set as a flat JSON object
//	POST -> partial JSON object; responds {applied: {...}, rejected: {...}}
//
// Each applied key is audited and persisted by the store's observers before
// the response is written, so a 200 means the change is durable.
func (ws *WebServer) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ws.store.Snapshot())

	case http.MethodPost:
		var partial map[string]any
		if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
			ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
			return
		}
		if len(partial) == 0 {
			ws.writeJSONError(w, http.StatusBadRequest, "empty update")
			return
		}
		res := ws.store.Update(partial, params.SourceNetwork)
		monitoring.Logf("network param update: %d applied, %d rejected", len(res.Applied), len(res.Rejected))

		status := http.StatusOK
		if len(res.Applied) == 0 {
			// Nothing was acceptable; the body still carries per-key reasons.
			status = http.StatusUnprocessableEntity
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(res)

	default:
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleState returns the latest published classification state.
func (ws *WebServer) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	latest := ws.publisher.Latest()
	if latest.Cycle == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no classification published yet")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(latest)
}

// handleTransitions returns recent stable-label transitions from the event
// database.
//
// Query params:
//
//	limit (optional, default 50, max 1000)
func (ws *WebServer) handleTransitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "no event database configured")
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			limit = v
		}
	}
	transitions, err := ws.db.RecentTransitions(limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("query transitions: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transitions)
}

// Close shuts down the web server immediately.
func (ws *WebServer) Close() error {
	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}
