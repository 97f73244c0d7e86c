package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether one backing component is reachable.
type HealthCheck func(ctx context.Context) error

// Server exposes /metrics and /healthz on a side port, away from the
// gateway transport.
type Server struct {
	srv    *http.Server
	checks map[string]HealthCheck
}

// NewServer creates the side-port server. checks maps component names to
// their health probes; a nil map reports a bare "ok".
func NewServer(addr string, checks map[string]HealthCheck) *Server {
	s := &Server{checks: checks}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start binds the listener and serves in the background. A bind failure is
// returned synchronously so startup can abort.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("metrics listener on %s: %w", s.srv.Addr, err)
	}

	logging.Info("Metrics", "Serving /metrics and /healthz on %s", s.srv.Addr)
	go func() {
		if err := s.srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logging.Error("Metrics", err, "Metrics server error")
		}
	}()
	return nil
}

// Stop drains in-flight scrapes and closes the listener.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	components := make(map[string]any, len(s.checks))
	for name, check := range s.checks {
		component := map[string]any{"status": "up"}
		if err := check(ctx); err != nil {
			status = "degraded"
			component = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		}
		components[name] = component
	}

	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
