package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/localpulse/jobs/pkg/handlers/health"
	"github.com/localpulse/jobs/pkg/logger"
	"github.com/localpulse/jobs/pkg/middleware"
)

// Server is the daemon's status endpoint: /health and /metrics
type Server struct {
	router *http.ServeMux
	addr   string
	logger *logger.Logger
	http   *http.Server
}

// New creates a status server. gatherer backs /metrics.
func New(addr string, log *logger.Logger, healthHandler *health.Handler, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		router: http.NewServeMux(),
		addr:   addr,
		logger: log,
	}

	s.router.HandleFunc("/health", middleware.RequestLogger(log, http.HandlerFunc(healthHandler.HealthCheck)))
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info().
		Str("action", "server_start").
		Str("addr", s.addr).
		Msg("Starting status server")

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "status server failed on %s", s.addr)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().
		Str("action", "server_stop").
		Msg("Stopping status server")
	return s.http.Shutdown(ctx)
}
