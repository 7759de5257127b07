// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

// Package member defines the member account domain type and its
// persistence contract.
package member

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Name validation constraints.
const (
	MinNameLength = 1
	MaxNameLength = 60
)

// emailRegex is a deliberately permissive local@domain.tld check; anything
// stricter belongs to the mail system that actually delivers to the address.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Member represents a registered member account. Email is unique and
// compared exactly as stored. PasswordHash is only ever mutated through
// Repository.UpdatePassword.
type Member struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New creates a validated Member with a fresh ULID. The password hash must
// already be computed; this package never sees plaintext credentials.
func New(email, passwordHash, name string) (*Member, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &Member{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateEmail validates an email address shape.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return oops.With("email", email).Errorf("email is not a valid address")
	}
	return nil
}

// ValidateName validates a display name.
func ValidateName(name string) error {
	if name == "" {
		return oops.Errorf("name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return oops.With("max", MaxNameLength).Errorf("name must be at most %d characters", MaxNameLength)
	}
	return nil
}

// Repository manages member persistence. Write operations run inside a
// database transaction so a partial failure never leaves a member record
// inconsistent with what the caller observed.
type Repository interface {
	// Create stores a new member. Returns ErrDuplicateEmail if the email
	// is already registered.
	Create(ctx context.Context, m *Member) error

	// GetByID retrieves a member by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*Member, error)

	// GetByEmail retrieves a member by exact email match.
	// Returns ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*Member, error)

	// UpdatePassword replaces the password hash for a member.
	// Returns ErrNotFound if the member does not exist.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
