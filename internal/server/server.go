// Package server exposes resolution over HTTP.
//
// Routes:
//
//	POST /v1/resolve   requirements (+ optional seed snapshot) -> snapshot
//	POST /v1/graph     snapshot -> DOT or SVG (?format=svg)
//	GET  /healthz      liveness and version
//	GET  /metrics      Prometheus metrics
//
// Errors are returned as {"code": ..., "message": ...} with the status
// derived from the error code.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/peergraph/pkg/pipeline"
)

const (
	maxBodyBytes    = 16 << 20
	requestTimeout  = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

// Server serves the API for one runner.
type Server struct {
	runner  *pipeline.Runner
	logger  *log.Logger
	metrics prometheus.Gatherer
	router  chi.Router
}

// New creates a server. metrics may be nil, in which case /metrics serves
// the default Prometheus registry.
func New(runner *pipeline.Runner, logger *log.Logger, metrics prometheus.Gatherer) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if metrics == nil {
		metrics = prometheus.DefaultGatherer
	}
	s := &Server{runner: runner, logger: logger, metrics: metrics}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Post("/resolve", s.handleResolve)
		r.Post("/graph", s.handleGraph)
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
