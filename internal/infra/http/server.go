package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"agentchat/internal/infra/metrics"
)

// StatusFunc reports what /health prints besides "OK", e.g. the active mode.
type StatusFunc func() map[string]string

// Server exposes /metrics and /health next to the REPL.
type Server struct {
	addr   string
	status StatusFunc
	log    *zerolog.Logger
	server *http.Server
}

func NewServer(addr string, status StatusFunc, logger *zerolog.Logger) *Server {
	return &Server{addr: addr, status: status, log: logger}
}

// Router builds the chi router; split out so tests can drive it with httptest.
func (s *Server) Router() chi.Router {
	metrics.MustRegister()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Str("addr", s.addr).Msg("metrics server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
	if s.status == nil {
		return
	}
	for k, v := range s.status() {
		fmt.Fprintf(w, " %s=%s", k, v)
	}
}
