// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/memberd/memberd/internal/auth"
	"github.com/memberd/memberd/internal/config"
	"github.com/memberd/memberd/internal/httpapi"
	"github.com/memberd/memberd/internal/kv"
	"github.com/memberd/memberd/internal/logging"
	"github.com/memberd/memberd/internal/member/postgres"
	"github.com/memberd/memberd/internal/observability"
	"github.com/memberd/memberd/internal/store"
	"github.com/memberd/memberd/internal/xdg"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication service",
		Long: `Start the authentication service, serving the /auth HTTP API and,
when configured, a metrics/health endpoint.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, autoMigrate, nil)
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "run pending database migrations on startup")
	cmd.Flags().String("http.addr", "", "API listen address")
	cmd.Flags().String("metrics.addr", "", "metrics/health listen address (empty = disabled)")
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	cmd.Flags().String("redis.addr", "", "Redis address")
	cmd.Flags().String("log.level", "", "log level (debug, info, warn, error)")
	cmd.Flags().String("log.format", "", "log format (json or text)")

	return cmd
}

// runServeWithDeps starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, autoMigrate bool, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}

	// Set up default factories
	if deps.ConfigLoader == nil {
		deps.ConfigLoader = config.Load
	}
	if deps.DatabaseFactory == nil {
		deps.DatabaseFactory = func(ctx context.Context, url string) (Database, error) {
			return store.Connect(ctx, url)
		}
	}
	if deps.KVFactory == nil {
		deps.KVFactory = func(ctx context.Context, addr string) (KVConn, error) {
			client, err := kv.Dial(ctx, addr)
			if err != nil {
				return nil, err
			}
			return kv.NewRedisStore(client), nil
		}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if deps.APIServerFactory == nil {
		deps.APIServerFactory = func(
			cfg httpapi.Config,
			sessions *auth.SessionService,
			resets *auth.PasswordResetService,
			metrics *observability.Metrics,
			logger *slog.Logger,
		) (APIServer, error) {
			return httpapi.NewServer(cfg, sessions, resets, metrics, logger)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	cfgPath := configFile
	if cfgPath == "" {
		cfgPath = xdg.DefaultConfigFile()
	}

	cfg, err := deps.ConfigLoader(cfgPath, cmd.Flags())
	if err != nil {
		return err
	}

	logger := logging.Setup("memberd", version, cfg.Log.Level, cfg.Log.Format, nil)
	slog.SetDefault(logger)

	logger.Info("starting memberd",
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
	)

	if autoMigrate {
		if err := runAutoMigrate(cfg.Database.URL, deps, logger); err != nil {
			return err
		}
	}

	db, err := deps.DatabaseFactory(ctx, cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer db.Close()

	logger.Info("connected to database")

	kvConn, err := deps.KVFactory(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := kvConn.Close(); closeErr != nil {
			logger.Debug("error closing key-value store", "error", closeErr)
		}
	}()

	logger.Info("connected to key-value store", "addr", cfg.Redis.Addr)

	codec, err := auth.NewTokenCodec([]byte(cfg.JWT.Secret))
	if err != nil {
		return err
	}
	hasher := auth.NewArgon2idHasher()
	members := postgres.NewMemberRepository(db)

	sessions, err := auth.NewSessionServiceWithLogger(
		members, kvConn, hasher, codec,
		cfg.JWT.AccessTTL(), cfg.JWT.RefreshTTL(),
		logger,
	)
	if err != nil {
		return err
	}

	resets, err := auth.NewPasswordResetServiceWithLogger(
		members, kvConn, hasher, auth.NewLogNotifier(logger), logger,
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, func() bool { return true })
		obsErrChan, obsErr := obsServer.Start()
		if obsErr != nil {
			return oops.With("addr", cfg.Metrics.Addr).Wrap(obsErr)
		}
		metrics = obsServer.Metrics()
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	apiServer, err := deps.APIServerFactory(
		httpapi.Config{
			Addr:             cfg.HTTP.Addr,
			RefreshCookieTTL: cfg.JWT.RefreshTTL(),
		},
		sessions, resets, metrics, logger,
	)
	if err != nil {
		return err
	}

	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopObservability(obsServer, logger)
		return oops.With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	cmd.Println("memberd started")
	logger.Info("memberd ready", "addr", apiServer.Addr())

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping API server", "error", err)
	}
	stopObservability(obsServer, logger)

	logger.Info("shutdown complete")
	return nil
}

func runAutoMigrate(databaseURL string, deps *ServeDeps, logger *slog.Logger) error {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Debug("error closing migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").Wrap(err)
	}

	logger.Info("database migrations applied")
	return nil
}

func stopObservability(obsServer ObservabilityServer, logger *slog.Logger) {
	if obsServer == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := obsServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors watches a server's error channel and cancels the context
// on error, so a server failure tears down the whole process. It exits when an
// error arrives, the channel closes, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
