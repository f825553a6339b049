// Package server exposes the diagram pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz     liveness probe
//	GET  /version     build information
//	POST /v1/render   render the schema in the request body
//
// POST /v1/render accepts these query parameters:
//
//	format   output format (svg, png, pdf, dot, json); default svg
//	schema   body format (json, toml, yaml); default from Content-Type, else yaml
//	infer    "true" to link <entity>_id fields to their entity
//	rankdir  TB, LR, BT or RL
//	refresh  "true" to bypass cached results
//
// Errors are returned as JSON objects {"code": ..., "message": ...}.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/erdiagram/pkg/pipeline"
)

// Defaults for Config.
const (
	DefaultAddr           = "127.0.0.1:8080"
	DefaultMaxBodyBytes   = 1 << 20
	DefaultRequestTimeout = 30 * time.Second
	shutdownTimeout       = 10 * time.Second
)

// Config configures a Server.
type Config struct {
	Addr           string
	Runner         *pipeline.Runner
	Logger         *log.Logger
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

// Server is the HTTP front end of the pipeline.
type Server struct {
	cfg    Config
	router chi.Router
}

// New creates a server. Zero config fields take their defaults; a nil runner
// gets an uncached one.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(nil, nil, cfg.Logger)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	s := &Server{cfg: cfg}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Code: "NOT_FOUND", Message: "no route for " + r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Code: "INVALID_INPUT", Message: r.Method + " not allowed on " + r.URL.Path})
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		r.Post("/render", s.handleRender)
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.cfg.Addr }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.cfg.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
