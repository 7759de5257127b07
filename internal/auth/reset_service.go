// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/memberd/memberd/internal/kv"
	"github.com/memberd/memberd/internal/member"
)

// Password reset configuration.
const (
	// resetCodePrefix keys the short verification code sent to a member.
	resetCodePrefix = "password_reset:"

	// resetGrantPrefix keys the single-use grant issued after code
	// verification. The value is the member's email.
	resetGrantPrefix = "password_reset_token:"

	// ResetCodeTTL is how long a verification code stays valid.
	ResetCodeTTL = 5 * time.Minute

	// ResetGrantTTL is how long a verified member may take to choose a new
	// password.
	ResetGrantTTL = 10 * time.Minute

	resetCodeLength = 6
)

// PasswordResetService handles the three-stage password reset flow:
// request a code, verify the code for a grant, change the password with the
// grant. Each secret is single-use and expires on its own clock.
type PasswordResetService struct {
	members  member.Repository
	secrets  kv.Store
	hasher   PasswordHasher
	notifier Notifier
	logger   *slog.Logger
}

// NewPasswordResetService creates a PasswordResetService with the default logger.
func NewPasswordResetService(
	members member.Repository,
	secrets kv.Store,
	hasher PasswordHasher,
	notifier Notifier,
) (*PasswordResetService, error) {
	return NewPasswordResetServiceWithLogger(members, secrets, hasher, notifier, slog.Default())
}

// NewPasswordResetServiceWithLogger creates a PasswordResetService with a custom logger.
func NewPasswordResetServiceWithLogger(
	members member.Repository,
	secrets kv.Store,
	hasher PasswordHasher,
	notifier Notifier,
	logger *slog.Logger,
) (*PasswordResetService, error) {
	if members == nil {
		return nil, oops.Errorf("members repository is required")
	}
	if secrets == nil {
		return nil, oops.Errorf("secret store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &PasswordResetService{
		members:  members,
		secrets:  secrets,
		hasher:   hasher,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// RequestReset issues a verification code when email and name identify an
// existing member. It reports success either way to prevent email enumeration;
// no code is issued when the member is unknown or the name does not match.
func (s *PasswordResetService) RequestReset(ctx context.Context, email, name string) error {
	m, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			s.logger.DebugContext(ctx, "reset requested for unknown email")
			return nil
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get member by email").
			Wrap(err)
	}
	if m.Name != name {
		s.logger.DebugContext(ctx, "reset requested with mismatched name", "member_id", m.ID.String())
		return nil
	}

	code := uuid.NewString()[:resetCodeLength]
	if err := s.secrets.Set(ctx, resetCodePrefix+email, code, ResetCodeTTL); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "store verification code").
			Wrap(err)
	}

	if err := s.notifier.SendResetCode(ctx, email, name, code); err != nil {
		s.logger.WarnContext(ctx, "reset code delivery failed",
			"member_id", m.ID.String(),
			"error", err,
		)
	}
	return nil
}

// VerifyCode exchanges a valid verification code for a single-use reset grant.
// The code is consumed on success; a second verification with the same code
// fails.
func (s *PasswordResetService) VerifyCode(ctx context.Context, email, code string) (string, error) {
	stored, ok, err := s.secrets.Get(ctx, resetCodePrefix+email)
	if err != nil {
		return "", oops.Code("RESET_VERIFY_FAILED").
			With("operation", "get verification code").
			Wrap(err)
	}
	if !ok || stored != code {
		return "", oops.Code(CodeInvalidVerificationCode).Errorf("verification code is invalid or expired")
	}

	// Single use: consume the code before issuing the grant.
	if err := s.secrets.Delete(ctx, resetCodePrefix+email); err != nil {
		return "", oops.Code("RESET_VERIFY_FAILED").
			With("operation", "consume verification code").
			Wrap(err)
	}

	grant := uuid.NewString()
	if err := s.secrets.Set(ctx, resetGrantPrefix+grant, email, ResetGrantTTL); err != nil {
		return "", oops.Code("RESET_VERIFY_FAILED").
			With("operation", "store reset grant").
			Wrap(err)
	}

	return grant, nil
}

// ChangePassword sets a new password for the member named by a valid reset
// grant, then consumes the grant.
func (s *PasswordResetService) ChangePassword(ctx context.Context, grant, newPassword string) error {
	email, ok, err := s.secrets.Get(ctx, resetGrantPrefix+grant)
	if err != nil {
		return oops.Code("RESET_CHANGE_FAILED").
			With("operation", "get reset grant").
			Wrap(err)
	}
	if !ok {
		return oops.Code(CodeInvalidResetToken).Errorf("reset token is invalid or expired")
	}

	m, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return oops.Code(CodeUserNotFound).Wrap(err)
		}
		return oops.Code("RESET_CHANGE_FAILED").
			With("operation", "get member by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code(CodeInvalidInput).
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.members.UpdatePassword(ctx, m.ID, hash); err != nil {
		return oops.Code("RESET_CHANGE_FAILED").
			With("operation", "update password").
			Wrap(err)
	}

	// Consume the grant. The password was already updated, so a failure here
	// only leaves a key to expire on its own.
	//nolint:errcheck // Cleanup failure is acceptable; password was already updated
	s.secrets.Delete(ctx, resetGrantPrefix+grant)

	s.logger.InfoContext(ctx, "password changed via reset flow", "member_id", m.ID.String())
	return nil
}
