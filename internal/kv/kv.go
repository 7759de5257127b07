// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

// Package kv provides the expiring key/value store used for refresh token
// sessions and password reset secrets.
package kv

import (
	"context"
	"time"
)

// Store is a string key/value store with per-key expiry.
type Store interface {
	// Set stores value under key with the given time-to-live. A zero ttl
	// stores the key without expiry. Setting an existing key overwrites the
	// value and resets the expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value stored under key. The second return value is
	// false when the key is absent or has expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
