// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package auth

// Error codes attached to oops errors returned by the auth services. The HTTP
// layer maps these onto response status codes.
const (
	CodeDuplicateEmail          = "AUTH_DUPLICATE_EMAIL"
	CodeLoginFailed             = "AUTH_LOGIN_FAILED"
	CodeUserNotFound            = "AUTH_USER_NOT_FOUND"
	CodeInvalidToken            = "AUTH_INVALID_TOKEN"
	CodeTokenMismatch           = "AUTH_TOKEN_NOT_MATCH"
	CodeInvalidVerificationCode = "AUTH_INVALID_VERIFICATION_CODE"
	CodeInvalidResetToken       = "AUTH_INVALID_RESET_TOKEN"
	CodeInvalidInput            = "AUTH_INVALID_INPUT"
)
