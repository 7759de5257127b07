// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

// Package postgres implements member.Repository using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/memberd/memberd/internal/member"
)

// DB is the subset of pgxpool.Pool the repository needs. It is satisfied by
// *pgxpool.Pool and by pgxmock pools in unit tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// MemberRepository implements member.Repository using PostgreSQL.
type MemberRepository struct {
	db DB
}

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(db DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Create stores a new member inside a transaction. A unique-violation on the
// email column surfaces as member.ErrDuplicateEmail.
func (r *MemberRepository) Create(ctx context.Context, m *member.Member) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return oops.Code("MEMBER_TX_BEGIN_FAILED").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx, `
		INSERT INTO members (id, email, password_hash, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		m.ID.String(),
		m.Email,
		m.PasswordHash,
		m.Name,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// Sentinel conditions carry no oops code; the service layer
			// attaches the code it wants surfaced.
			return oops.With("email", m.Email).Wrap(member.ErrDuplicateEmail)
		}
		return oops.Code("MEMBER_CREATE_FAILED").
			With("operation", "insert member").
			With("email", m.Email).
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("MEMBER_TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

// GetByID retrieves a member by ID.
func (r *MemberRepository) GetByID(ctx context.Context, id ulid.ULID) (*member.Member, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, name, created_at, updated_at
		FROM members
		WHERE id = $1
	`, id.String())

	m, err := scanMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(member.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("MEMBER_GET_BY_ID_FAILED").
			With("operation", "get member by id").
			With("id", id.String()).
			Wrap(err)
	}
	return m, nil
}

// GetByEmail retrieves a member by exact email match. Email comparison is
// case-sensitive: the address is matched exactly as stored.
func (r *MemberRepository) GetByEmail(ctx context.Context, email string) (*member.Member, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, name, created_at, updated_at
		FROM members
		WHERE email = $1
	`, email)

	m, err := scanMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("email", email).Wrap(member.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("MEMBER_GET_BY_EMAIL_FAILED").
			With("operation", "get member by email").
			Wrap(err)
	}
	return m, nil
}

// UpdatePassword replaces the password hash for a member inside a transaction.
func (r *MemberRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return oops.Code("MEMBER_TX_BEGIN_FAILED").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	tag, err := tx.Exec(ctx, `
		UPDATE members
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now())
	if err != nil {
		return oops.Code("MEMBER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password hash").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.With("id", id.String()).Wrap(member.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("MEMBER_TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

// scanMember scans a member row.
func scanMember(row pgx.Row) (*member.Member, error) {
	var m member.Member
	var idStr string

	if err := row.Scan(&idStr, &m.Email, &m.PasswordHash, &m.Name, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("MEMBER_CORRUPT_ID").
			With("id", idStr).
			Wrap(err)
	}
	m.ID = id
	return &m, nil
}
