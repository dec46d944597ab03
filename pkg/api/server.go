package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/marmos91/ransched/internal/logger"
	"github.com/marmos91/ransched/pkg/sched"
)

// Config holds admin API server settings.
type Config struct {
	Host string
	Port int
}

// Server is the admin API HTTP server.
type Server struct {
	srv *http.Server
}

// NewServer builds the admin API server around a scheduler.
func NewServer(cfg Config, s *sched.Scheduler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           NewRouter(s),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves until Shutdown is called. Blocks.
func (s *Server) Start() error {
	logger.Info("admin api listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
