// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/memberd/memberd/internal/auth"
	"github.com/memberd/memberd/internal/config"
	"github.com/memberd/memberd/internal/httpapi"
	"github.com/memberd/memberd/internal/kv"
	"github.com/memberd/memberd/internal/member/postgres"
	"github.com/memberd/memberd/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// ConfigLoader builds the service configuration.
	// Default: config.Load
	ConfigLoader func(path string, flags *pflag.FlagSet) (*config.Config, error)

	// DatabaseFactory connects to PostgreSQL.
	// Default: store.Connect
	DatabaseFactory func(ctx context.Context, url string) (Database, error)

	// KVFactory connects to the Redis session/secret store.
	// Default: kv.Dial wrapped in kv.NewRedisStore
	KVFactory func(ctx context.Context, addr string) (KVConn, error)

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// APIServerFactory creates the auth API server.
	// Default: httpapi.NewServer
	APIServerFactory func(
		cfg httpapi.Config,
		sessions *auth.SessionService,
		resets *auth.PasswordResetService,
		metrics *observability.Metrics,
		logger *slog.Logger,
	) (APIServer, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

// Database interface wraps the pool methods used by the member repository.
type Database interface {
	postgres.DB
	Close()
}

// KVConn is a closable key-value store connection.
type KVConn interface {
	kv.Store
	Close() error
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Close() error
}

// APIServer interface wraps the methods used from httpapi.Server.
type APIServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}
