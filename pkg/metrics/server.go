package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/ransched/internal/logger"
)

// ServerConfig configures the /metrics HTTP endpoint.
type ServerConfig struct {
	Host string
	Port int
}

// Server serves the Prometheus scrape endpoint.
type Server struct {
	srv *http.Server
}

// NewServer builds the metrics HTTP server. Returns nil when the registry is
// not initialized.
func NewServer(cfg ServerConfig) *Server {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves until Shutdown is called. Blocks.
func (s *Server) Start() error {
	logger.Info("metrics server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
