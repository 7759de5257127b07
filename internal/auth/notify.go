// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package auth

import (
	"context"
	"log/slog"
)

// Notifier delivers password reset codes to members. Delivery transport is an
// operational concern; the reset flow only needs a best-effort send.
type Notifier interface {
	SendResetCode(ctx context.Context, email, name, code string) error
}

// LogNotifier writes reset codes to the service log instead of sending them.
// It stands in for a mail integration in development and test environments.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// SendResetCode logs the verification code.
func (n *LogNotifier) SendResetCode(ctx context.Context, email, name, code string) error {
	n.logger.InfoContext(ctx, "password reset code issued",
		"email", email,
		"name", name,
		"code", code,
	)
	return nil
}
