package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veridian-identity/setpoll/internal/handlers"
	"github.com/veridian-identity/setpoll/internal/middleware"
)

// NewRouter constructs a ServeMux with the poll API routes registered.
func NewRouter(h *handlers.AttemptsHandler) http.Handler {
	mux := http.NewServeMux()

	// Poll endpoint. The handler enforces POST itself so non-POST callers
	// get the endpoint's own error body rather than the mux default.
	mux.HandleFunc("/api/security_events", h.HandlePoll)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
