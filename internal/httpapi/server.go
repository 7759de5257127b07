// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

// Package httpapi exposes the authentication services over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/memberd/memberd/internal/auth"
	"github.com/memberd/memberd/internal/observability"
)

// Config holds the HTTP server settings.
type Config struct {
	// Addr is the listen address in "host:port" format.
	Addr string

	// RefreshCookieTTL is the Max-Age of the refresh token cookie. It should
	// match the refresh token lifetime.
	RefreshCookieTTL time.Duration
}

// Server serves the /auth API.
type Server struct {
	cfg        Config
	sessions   *auth.SessionService
	resets     *auth.PasswordResetService
	metrics    *observability.Metrics
	logger     *slog.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates an API server. metrics may be nil; counters are then
// skipped.
func NewServer(
	cfg Config,
	sessions *auth.SessionService,
	resets *auth.PasswordResetService,
	metrics *observability.Metrics,
	logger *slog.Logger,
) (*Server, error) {
	if sessions == nil {
		return nil, oops.Errorf("session service is required")
	}
	if resets == nil {
		return nil, oops.Errorf("password reset service is required")
	}
	if cfg.RefreshCookieTTL <= 0 {
		return nil, oops.Errorf("refresh cookie lifetime must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		resets:   resets,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

// Handler returns the route table. Exposed so tests can drive the API through
// httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/signup", s.handleSignup)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("POST /auth/token/refresh", s.handleRefresh)
	mux.HandleFunc("POST /auth/password/reset-request", s.handleResetRequest)
	mux.HandleFunc("POST /auth/password/verify-code", s.handleVerifyCode)
	mux.HandleFunc("POST /auth/password/change", s.handleChangePassword)

	return mux
}

// Start begins serving the API. It returns an error channel that receives any
// error from the HTTP server after startup; the channel is closed when the
// server stops gracefully.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
