// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

// Package store provides PostgreSQL connectivity and schema management.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connect opens a pgx connection pool and verifies connectivity. The initial
// ping is retried with exponential backoff so the service tolerates a database
// that is still starting up.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "create connection pool").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		pool.Close()
		return nil, oops.Code("DB_PING_FAILED").
			With("operation", "ping database").
			Wrap(err)
	}

	return pool, nil
}
