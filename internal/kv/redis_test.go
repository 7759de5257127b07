// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package kv_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberd/memberd/internal/kv"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *kv.RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, kv.NewRedisStore(client)
}

func TestRedisStore_SetGet(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips a value", func(t *testing.T) {
		_, store := newTestStore(t)

		require.NoError(t, store.Set(ctx, "session:alice@example.com", "token-1", time.Minute))

		value, ok, err := store.Get(ctx, "session:alice@example.com")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "token-1", value)
	})

	t.Run("absent key reports not found", func(t *testing.T) {
		_, store := newTestStore(t)

		value, ok, err := store.Get(ctx, "session:ghost@example.com")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, value)
	})

	t.Run("overwrite replaces value and resets expiry", func(t *testing.T) {
		mr, store := newTestStore(t)

		require.NoError(t, store.Set(ctx, "k", "old", time.Minute))
		mr.FastForward(30 * time.Second)
		require.NoError(t, store.Set(ctx, "k", "new", time.Minute))
		mr.FastForward(45 * time.Second)

		value, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "new", value)
	})
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()

	t.Run("key expires after ttl", func(t *testing.T) {
		mr, store := newTestStore(t)

		require.NoError(t, store.Set(ctx, "reset:code", "4f3a2b", 5*time.Minute))

		mr.FastForward(5*time.Minute + time.Second)

		_, ok, err := store.Get(ctx, "reset:code")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("key survives until ttl", func(t *testing.T) {
		mr, store := newTestStore(t)

		require.NoError(t, store.Set(ctx, "reset:code", "4f3a2b", 5*time.Minute))

		mr.FastForward(4 * time.Minute)

		_, ok, err := store.Get(ctx, "reset:code")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestRedisStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes key", func(t *testing.T) {
		_, store := newTestStore(t)

		require.NoError(t, store.Set(ctx, "k", "v", 0))
		require.NoError(t, store.Delete(ctx, "k"))

		_, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("deleting absent key is not an error", func(t *testing.T) {
		_, store := newTestStore(t)
		assert.NoError(t, store.Delete(ctx, "never-set"))
	})
}

func TestDial(t *testing.T) {
	t.Run("connects and pings", func(t *testing.T) {
		mr := miniredis.RunT(t)

		client, err := kv.Dial(context.Background(), mr.Addr())
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		assert.NoError(t, client.Ping(context.Background()).Err())
	})

	t.Run("fails fast when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := kv.Dial(ctx, "127.0.0.1:0")
		require.Error(t, err)
	})
}
