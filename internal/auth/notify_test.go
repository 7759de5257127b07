// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package auth_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberd/memberd/internal/auth"
)

func TestLogNotifier_SendResetCode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	n := auth.NewLogNotifier(logger)
	require.NoError(t, n.SendResetCode(context.Background(), "alice@example.com", "Alice", "4f3a2b"))

	out := buf.String()
	assert.Contains(t, out, "password reset code issued")
	assert.Contains(t, out, "alice@example.com")
	assert.Contains(t, out, "4f3a2b")
}

func TestNewLogNotifier_NilLoggerUsesDefault(t *testing.T) {
	n := auth.NewLogNotifier(nil)
	assert.NotNil(t, n)
}
