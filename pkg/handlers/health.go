package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/config"
	"github.com/ekaya-inc/ekaya-canvas/pkg/logging"
)

// readinessTimeout bounds a single dependency check.
const readinessTimeout = 2 * time.Second

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// ReadyResponse lists the outcome of each dependency check.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthHandler handles liveness, readiness and ping endpoints.
type HealthHandler struct {
	cfg    *config.Config
	checks map[string]ReadinessCheck
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler with the given configuration.
func NewHealthHandler(cfg *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, checks: make(map[string]ReadinessCheck), logger: logger}
}

// WithCheck adds a named dependency to the readiness probe.
func (h *HealthHandler) WithCheck(name string, check ReadinessCheck) *HealthHandler {
	h.checks[name] = check
	return h
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready handles GET /ready. Every registered check must pass for a 200;
// failures are logged and reported by name only.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK

	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		err := check(ctx)
		cancel()

		if err != nil {
			h.logger.Warn("Readiness check failed",
				zap.String("check", name),
				zap.String("error", logging.SanitizeError(err)))
			resp.Checks[name] = "error"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	if err := WriteJSON(w, status, resp); err != nil {
		h.logger.Error("Failed to encode readiness response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "ekaya-canvas",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
