// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package observability provides HTTP endpoints for metrics and health checks.
package observability

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/hookbridge/internal/dispatch"
	"github.com/holomush/hookbridge/internal/timed"
)

// ReadinessChecker returns whether the bridge is ready to serve.
type ReadinessChecker func() bool

// Metrics contains bridge-level Prometheus metrics.
type Metrics struct {
	ScriptsLoaded prometheus.Gauge
	ScriptsFailed prometheus.Counter
}

// NewMetrics creates and registers bridge-level metrics, along with the
// dispatch and timed event collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScriptsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hookbridge_scripts_loaded",
				Help: "Number of scripts currently loaded",
			},
		),
		ScriptsFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hookbridge_script_load_failures_total",
				Help: "Total number of scripts that failed to load",
			},
		),
	}

	reg.MustRegister(m.ScriptsLoaded)
	reg.MustRegister(m.ScriptsFailed)
	dispatch.RegisterMetrics(reg)
	timed.RegisterMetrics(reg)

	return m
}

// Default bind retry policy.
const (
	defaultBindRetries = 5
	defaultBindBackoff = 50 * time.Millisecond
)

// Server provides HTTP endpoints for observability (metrics and health probes).
type Server struct {
	addr        string
	listener    net.Listener
	httpServer  *http.Server
	registry    *prometheus.Registry
	metrics     *Metrics
	isReady     ReadinessChecker
	logger      *slog.Logger
	bindRetries uint64
	bindBackoff time.Duration
	running     atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithBindRetry sets how often and how patiently binding the listen address
// is retried. Zero retries binds once.
func WithBindRetry(retries uint64, base time.Duration) Option {
	return func(s *Server) {
		s.bindRetries = retries
		s.bindBackoff = base
	}
}

// NewServer creates a new observability server.
// addr: listen address in "host:port" format (e.g., "127.0.0.1:9100", ":9100" for all interfaces).
func NewServer(addr string, readinessChecker ReadinessChecker, opts ...Option) *Server {
	// Create a new registry to avoid polluting the global one
	registry := prometheus.NewRegistry()

	// Register standard Go metrics
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		addr:        addr,
		registry:    registry,
		metrics:     NewMetrics(registry),
		isReady:     readinessChecker,
		bindRetries: defaultBindRetries,
		bindBackoff: defaultBindBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Metrics returns the custom metrics for recording application events.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Registry returns the registry served on /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Start begins serving observability endpoints. Binding the address is
// retried with exponential backoff until ctx ends or retries run out.
// It returns an error channel that will receive any errors from the HTTP server
// after it starts. The channel is closed when the server stops gracefully.
// Callers should monitor this channel to detect server failures.
func (s *Server) Start(ctx context.Context) (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := s.listen(ctx)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	// Kubernetes-style health probes
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	// Create buffered error channel so the goroutine doesn't block
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		// Use local httpSrv to avoid race with subsequent Start() calls
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the observability server.
func (s *Server) Stop(ctx context.Context) error {
	// Use CompareAndSwap to atomically transition from running to stopped.
	// This prevents a race where a concurrent Start() could succeed between
	// checking the running state and setting it to false.
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			// Restore running state on failure so the server can be stopped again
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}

	s.logger.Info("observability server stopped")
	return nil
}

func (s *Server) listen(ctx context.Context) (net.Listener, error) {
	var listener net.Listener
	var lc net.ListenConfig
	base := s.bindBackoff
	if base <= 0 {
		base = defaultBindBackoff
	}
	b := retry.WithMaxRetries(s.bindRetries, retry.NewExponential(base))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		l, err := lc.Listen(ctx, "tcp", s.addr)
		if err != nil {
			s.logger.Debug("observability bind failed", "addr", s.addr, "error", err)
			return retry.RetryableError(err)
		}
		listener = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listener, nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// handleLiveness returns 200 if the process is running.
// This is a simple check that the process is alive.
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}

// handleReadiness returns 200 if the service is ready to accept connections,
// or 503 if not ready.
func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if s.isReady == nil || s.isReady() {
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // health check write error is acceptable, client may disconnect
		w.Write([]byte("ok\n"))
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("not ready\n"))
}
