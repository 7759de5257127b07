// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

// Package auth implements member authentication for Memberd.
//
// # Services
//
// Service types coordinate the authentication flows:
//   - SessionService - signup, login, logout, and refresh token rotation
//   - PasswordResetService - the three-stage password reset flow
//
// Services are created with New*Service constructors that validate
// dependencies. Refresh sessions and password reset secrets live in the
// expiring key/value store; member records live in PostgreSQL.
//
// # Tokens
//
// Access and refresh tokens are HS256 JWTs carrying the member's ID, email,
// and name. TokenCodec signs and verifies them. The refresh token presented by
// a client is only honored when it matches the one stored for the member's
// email, so a rotated-out token cannot be replayed.
package auth
