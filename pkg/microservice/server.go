// Package microservice holds the HTTP plumbing shared by intseq services:
// lifecycle, health probes and the metrics endpoint.
package microservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ReadinessCheck reports why a dependency cannot serve traffic, or nil.
type ReadinessCheck func(ctx context.Context) error

// BaseServer serves a ServeMux with /healthz, /readyz and optionally
// /metrics already registered. Application handlers are added via Mux.
type BaseServer struct {
	logger zerolog.Logger
	addr   string
	mux    *http.ServeMux
	srv    *http.Server

	mu     sync.RWMutex
	bound  string
	checks map[string]ReadinessCheck
	ready  atomic.Bool
}

// NewBaseServer prepares a server for addr. If gatherer is not nil its
// metrics are served on /metrics.
func NewBaseServer(logger zerolog.Logger, addr string, gatherer prometheus.Gatherer) *BaseServer {
	s := &BaseServer{
		logger: logger.With().Str("component", "BaseServer").Logger(),
		addr:   addr,
		mux:    http.NewServeMux(),
		checks: make(map[string]ReadinessCheck),
	}
	s.mux.HandleFunc("GET /healthz", HealthzHandler)
	s.mux.HandleFunc("GET /readyz", s.readyz)
	if gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           accessLog(s.logger, s.mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Mux returns the router application handlers register on.
func (s *BaseServer) Mux() *http.ServeMux { return s.mux }

// AddReadinessCheck makes /readyz fail while check returns an error.
func (s *BaseServer) AddReadinessCheck(name string, check ReadinessCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Start binds the listener and serves in the background.
func (s *BaseServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.bound = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server failed.")
		}
	}()
	s.ready.Store(true)
	s.logger.Info().Str("address", ln.Addr().String()).Msg("HTTP server listening.")
	return nil
}

// Shutdown marks the server unready and drains connections until ctx ends.
func (s *BaseServer) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info().Msg("HTTP server stopped.")
	return nil
}

// GetHTTPPort returns ":port" for the bound listener, which differs from the
// configured address when it asked for port 0.
func (s *BaseServer) GetHTTPPort() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, port, err := net.SplitHostPort(s.bound); err == nil {
		return ":" + port
	}
	return s.addr
}

// HealthzHandler answers liveness probes.
func HealthzHandler(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("OK"))
}

func (s *BaseServer) readyz(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			s.logger.Warn().Err(err).Str("check", name).Msg("Readiness check failed.")
			http.Error(w, name+": "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	_, _ = w.Write([]byte("OK"))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// accessLog logs every request at debug level, and server errors at warn.
func accessLog(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		ev := logger.Debug()
		if rec.status >= http.StatusInternalServerError {
			ev = logger.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request.")
	})
}
