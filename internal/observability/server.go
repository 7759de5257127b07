// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

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
)

// ReadinessChecker returns whether the service is ready to accept requests.
type ReadinessChecker func() bool

// Outcome labels for auth flow counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics contains the Prometheus counters for the authentication flows.
// A nil *Metrics is valid; all Record methods are no-ops on it.
type Metrics struct {
	signupsTotal     *prometheus.CounterVec
	loginsTotal      *prometheus.CounterVec
	refreshesTotal   *prometheus.CounterVec
	logoutsTotal     *prometheus.CounterVec
	resetStagesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the auth flow counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		signupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberd_signups_total",
				Help: "Total number of signup attempts by outcome",
			},
			[]string{"outcome"},
		),
		loginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberd_logins_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
		refreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberd_token_refreshes_total",
				Help: "Total number of refresh token rotations by outcome",
			},
			[]string{"outcome"},
		),
		logoutsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberd_logouts_total",
				Help: "Total number of logouts by outcome",
			},
			[]string{"outcome"},
		),
		resetStagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberd_password_reset_stages_total",
				Help: "Total number of password reset stage attempts by stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
	}

	reg.MustRegister(
		m.signupsTotal,
		m.loginsTotal,
		m.refreshesTotal,
		m.logoutsTotal,
		m.resetStagesTotal,
	)

	return m
}

// RecordSignup increments the signup counter.
func (m *Metrics) RecordSignup(outcome string) {
	if m == nil {
		return
	}
	m.signupsTotal.WithLabelValues(outcome).Inc()
}

// RecordLogin increments the login counter.
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(outcome).Inc()
}

// RecordRefresh increments the token rotation counter.
func (m *Metrics) RecordRefresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshesTotal.WithLabelValues(outcome).Inc()
}

// RecordLogout increments the logout counter.
func (m *Metrics) RecordLogout(outcome string) {
	if m == nil {
		return
	}
	m.logoutsTotal.WithLabelValues(outcome).Inc()
}

// RecordResetStage increments the reset stage counter. Stage is one of
// "request", "verify", "change".
func (m *Metrics) RecordResetStage(stage, outcome string) {
	if m == nil {
		return
	}
	m.resetStagesTotal.WithLabelValues(stage, outcome).Inc()
}

// Server provides HTTP endpoints for observability (metrics and health probes).
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
	isReady    ReadinessChecker
	running    atomic.Bool
}

// NewServer creates a new observability server.
// addr: listen address in "host:port" format (e.g., "127.0.0.1:9100", ":9100" for all interfaces).
func NewServer(addr string, readinessChecker ReadinessChecker) *Server {
	// Create a new registry to avoid polluting the global one
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics := NewMetrics(registry)

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  metrics,
		isReady:  readinessChecker,
	}
}

// Metrics returns the auth flow counters for recording application events.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins serving observability endpoints.
// It returns an error channel that will receive any errors from the HTTP server
// after it starts. The channel is closed when the server stops gracefully.
// Callers should monitor this channel to detect server failures.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()

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

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		// Use local httpSrv to avoid race with subsequent Start() calls
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the observability server.
func (s *Server) Stop(ctx context.Context) error {
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

	slog.Info("observability server stopped")
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

// handleLiveness returns 200 if the process is running.
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}

// handleReadiness returns 200 if the service is ready to accept requests,
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
