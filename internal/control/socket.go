// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package control serves HTTP over a Unix socket for inspecting and stopping
// a running bridge.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/hookbridge/internal/xdg"
)

// SocketName is the file name of the control socket in the runtime directory.
const SocketName = "hookbridge.sock"

// HealthResponse is returned by the /health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// StatusResponse is returned by the /status endpoint.
type StatusResponse struct {
	Running       bool       `json:"running"`
	PID           int        `json:"pid"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	EngineID      string     `json:"engine_id,omitempty"`
	EngineStarted *time.Time `json:"engine_started,omitempty"`
	Scripts       []string   `json:"scripts"`
	PendingTimers int        `json:"pending_timers"`
	Error         string     `json:"error,omitempty"`
}

// ShutdownResponse is returned by the /shutdown endpoint.
type ShutdownResponse struct {
	Message string `json:"message"`
}

// ShutdownFunc is called when shutdown is requested.
type ShutdownFunc func()

// StatusFunc fills the bridge-specific fields of a status response.
type StatusFunc func(ctx context.Context, resp *StatusResponse) error

// Server runs HTTP over a Unix socket for process management.
type Server struct {
	socketPath   string
	startTime    time.Time
	listener     net.Listener
	httpServer   *http.Server
	shutdownFunc ShutdownFunc
	status       StatusFunc
	logger       *slog.Logger
	running      atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithStatus sets the function consulted on every /status request.
func WithStatus(fn StatusFunc) Option {
	return func(s *Server) {
		s.status = fn
	}
}

// NewServer creates a control socket server listening at socketPath.
func NewServer(socketPath string, shutdownFunc ShutdownFunc, opts ...Option) *Server {
	s := &Server{
		socketPath:   socketPath,
		startTime:    time.Now(),
		shutdownFunc: shutdownFunc,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.running.Store(true)
	return s
}

// DefaultSocketPath returns the control socket path in the XDG runtime
// directory.
func DefaultSocketPath() string {
	return filepath.Join(xdg.RuntimeDir(), SocketName)
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening on the Unix socket.
func (s *Server) Start() error {
	errb := oops.In("control").With("path", s.socketPath)
	if s.socketPath == "" {
		return errb.Errorf("control socket path is empty")
	}

	if err := xdg.EnsureDir(filepath.Dir(s.socketPath)); err != nil {
		return errb.Wrapf(err, "create socket directory")
	}

	// Remove a stale socket left by a previous run.
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return errb.Wrapf(err, "remove existing socket")
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return errb.Wrapf(err, "listen on socket")
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		_ = listener.Close()
		return errb.Wrapf(err, "set socket permissions")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /shutdown", s.handleShutdown)

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("control socket server error", "path", s.socketPath, "error", err)
		}
	}()

	s.logger.Info("control socket listening", "path", s.socketPath)
	return nil
}

// Stop gracefully shuts down the control socket server and removes the
// socket file.
func (s *Server) Stop(ctx context.Context) error {
	s.running.Store(false)

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return oops.In("control").With("path", s.socketPath).Wrapf(err, "shutdown control server")
		}
	}

	// Close listener if httpServer didn't handle it
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("failed to close control socket listener", "path", s.socketPath, "error", err)
		}
	}

	if s.socketPath != "" && s.listener != nil {
		if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove control socket file", "path", s.socketPath, "error", err)
		}
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		s.logger.Error("failed to write health response", "error", err)
	}
}

// handleStatus reports process state plus whatever the StatusFunc adds. A
// failing StatusFunc answers 503 with the error in the body.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Running:       s.running.Load(),
		PID:           os.Getpid(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Scripts:       []string{},
	}
	code := http.StatusOK
	if s.status != nil {
		if err := s.status(r.Context(), &resp); err != nil {
			resp.Error = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	if err := writeJSON(w, code, resp); err != nil {
		s.logger.Error("failed to write status response", "error", err)
	}
}

func (s *Server) handleShutdown(w http.ResponseWriter, _ *http.Request) {
	resp := ShutdownResponse{
		Message: "shutdown initiated",
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		s.logger.Error("failed to write shutdown response", "error", err)
	}

	if s.shutdownFunc != nil {
		go s.shutdownFunc()
	}
}

// NewClient returns an HTTP client that dials socketPath for every request.
func NewClient(socketPath string, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
		Timeout: timeout,
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return oops.In("control").Wrapf(err, "encode JSON response")
	}
	return nil
}
