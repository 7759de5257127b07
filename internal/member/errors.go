// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package member

import "errors"

// ErrNotFound is returned when a requested member does not exist.
var ErrNotFound = errors.New("member not found")

// ErrDuplicateEmail is returned when creating a member with an email that
// is already registered.
var ErrDuplicateEmail = errors.New("email already registered")
