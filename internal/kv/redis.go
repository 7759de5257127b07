// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// RedisStore implements Store on a Redis client.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a RedisStore on an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Dial connects to Redis at addr and verifies connectivity. The initial ping
// is retried with exponential backoff so the service tolerates a Redis that is
// still starting up.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		_ = client.Close() //nolint:errcheck // dial error takes precedence
		return nil, oops.Code("KV_DIAL_FAILED").
			With("addr", addr).
			Wrap(err)
	}

	return client, nil
}

// Set stores value under key with the given time-to-live.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return oops.Code("KV_SET_FAILED").
			With("operation", "set key").
			Wrap(err)
	}
	return nil
}

// Get returns the value stored under key, reporting absence via the second
// return value.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, oops.Code("KV_GET_FAILED").
			With("operation", "get key").
			Wrap(err)
	}
	return value, true, nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return oops.Code("KV_DELETE_FAILED").
			With("operation", "delete key").
			Wrap(err)
	}
	return nil
}

// Close releases the underlying client connection.
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return oops.Code("KV_CLOSE_FAILED").Wrap(err)
	}
	return nil
}
