package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dishpatch/dishpatch/pkg/eventlog"
	"github.com/dishpatch/dishpatch/pkg/metrics"
)

// Hub is the connectivity view the health server needs
type Hub interface {
	IsConnected() bool
}

// HealthServer provides HTTP health check endpoints
type HealthServer struct {
	hub   Hub
	store eventlog.Store
	mux   *http.ServeMux
}

// NewHealthServer creates a new health check HTTP server
func NewHealthServer(hub Hub, store eventlog.Store) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		hub:   hub,
		store: store,
		mux:   mux,
	}

	// Register endpoints
	mux.HandleFunc("/health", hs.healthHandler)
	mux.HandleFunc("/ready", hs.readyHandler)
	mux.Handle("/metrics", metrics.Handler())

	return hs
}

// Start starts the health check HTTP server
func (hs *HealthServer) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      hs.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// healthHandler implements the /health endpoint
// This is a simple liveness check - returns 200 if the process is alive
func (hs *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// readyHandler implements the /ready endpoint
// Ready means the hub's transport is connected and the durable event
// log answers a ping; a hub that gave up reconnecting stays not-ready
// until the process restarts
func (hs *HealthServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checks := make(map[string]string)
	ready := true
	var message string

	if hs.hub != nil && hs.hub.IsConnected() {
		checks["pubsub"] = "connected"
	} else {
		checks["pubsub"] = "disconnected"
		ready = false
		message = "Transport not connected"
	}

	if hs.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := hs.store.Ping(ctx); err != nil {
			checks["eventlog"] = fmt.Sprintf("error: %v", err)
			ready = false
			if message == "" {
				message = "Event log not accessible"
			}
		} else {
			checks["eventlog"] = "ok"
		}
	} else {
		checks["eventlog"] = "not initialized"
		ready = false
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadyResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
		Message:   message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// GetHandler returns the HTTP handler for embedding in other servers
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}
