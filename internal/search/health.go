package search

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/equipfind/equipfind/internal/catalog"
)

// Pinger is implemented by dependencies that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is one named dependency probe. A failing critical check makes the
// service unhealthy; any other failure only degrades it.
type Check struct {
	Name     string
	Critical bool
	Probe    func(ctx context.Context) error
}

// CatalogCheck probes the catalog with a single-row distinct query.
func CatalogCheck(cat catalog.Catalog) Check {
	return Check{
		Name:     "catalog",
		Critical: true,
		Probe: func(ctx context.Context) error {
			_, err := cat.Distinct(ctx, catalog.FieldType, 1)
			return err
		},
	}
}

// PingCheck probes p with Ping.
func PingCheck(name string, p Pinger, critical bool) Check {
	return Check{Name: name, Critical: critical, Probe: p.Ping}
}

// HealthChecker runs the configured checks.
type HealthChecker struct {
	checks []Check
}

// NewHealthChecker creates a new health checker.
func NewHealthChecker(checks ...Check) *HealthChecker {
	return &HealthChecker{checks: checks}
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status     string               `json:"status"` // healthy, degraded, unhealthy
	Timestamp  time.Time            `json:"timestamp"`
	Version    string               `json:"version,omitempty"`
	Uptime     string               `json:"uptime,omitempty"`
	Components map[string]Component `json:"components"`
}

// Component represents a component's health.
type Component struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// Check performs a full health check.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "healthy",
		Timestamp:  time.Now(),
		Components: make(map[string]Component, len(h.checks)),
	}

	for _, c := range h.checks {
		comp := runCheck(ctx, c)
		status.Components[c.Name] = comp
		if comp.Status == "healthy" {
			continue
		}
		if c.Critical {
			status.Status = "unhealthy"
		} else if status.Status == "healthy" {
			status.Status = "degraded"
		}
	}
	return status
}

func runCheck(ctx context.Context, c Check) Component {
	start := time.Now()
	err := c.Probe(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return Component{
			Status:  "unhealthy",
			Message: err.Error(),
			Latency: latency,
		}
	}
	return Component{
		Status:  "healthy",
		Message: "connected",
		Latency: latency,
	}
}

// HealthHandler handles health check HTTP requests.
type HealthHandler struct {
	checker   *HealthChecker
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(checker *HealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		checker:   checker,
		startTime: time.Now(),
		version:   version,
	}
}

// HandleHealth handles GET /healthz (liveness).
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReady handles GET /readyz. Degraded still counts as ready.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.checker.Check(ctx)
	status.Version = h.version
	status.Uptime = time.Since(h.startTime).Round(time.Second).String()

	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// HandleVersion handles GET /v1/version.
func (h *HealthHandler) HandleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"version":    h.version,
		"uptime":     time.Since(h.startTime).Round(time.Second).String(),
		"go_version": runtime.Version(),
	})
}

// RegisterRoutes registers health routes with the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.HandleFunc("GET /readyz", h.HandleReady)
	mux.HandleFunc("GET /v1/version", h.HandleVersion)
}
