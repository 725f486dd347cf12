package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/akinalp/safespace/pkg"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	checks      map[string]HealthCheck
	connections func() int
}

// NewHealthHandler, constructor. connections reports live WebSocket
// connections.
func NewHealthHandler(checks map[string]HealthCheck, connections func() int) *HealthHandler {
	return &HealthHandler{checks: checks, connections: connections}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string, len(h.checks))
	ready := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			ready = false
		} else {
			deps[name] = "ok"
		}
	}

	body := map[string]any{"dependencies": deps}
	if h.connections != nil {
		body["connections"] = h.connections()
	}

	if !ready {
		body["status"] = "degraded"
		pkg.JSON(w, http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ok"
	pkg.JSON(w, http.StatusOK, body)
}
