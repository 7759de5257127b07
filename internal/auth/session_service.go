// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/memberd/memberd/internal/kv"
	"github.com/memberd/memberd/internal/member"
)

// dummyPasswordHash is used when a member doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string

	// ExpiresIn is the access token lifetime in whole seconds.
	ExpiresIn int64
}

// LoginResult carries the issued tokens plus the authenticated member.
type LoginResult struct {
	TokenPair
	Member *member.Member
}

// SessionService handles signup, login, logout, and refresh token rotation.
//
// The refresh session for a member is a single key/value entry: the member's
// email maps to the one currently-valid refresh token. Issuing a new refresh
// token overwrites the entry, so exactly one refresh token per member is
// honored at any time.
type SessionService struct {
	members    member.Repository
	sessions   kv.Store
	hasher     PasswordHasher
	tokens     *TokenCodec
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger
}

// NewSessionService creates a SessionService with the default logger.
func NewSessionService(
	members member.Repository,
	sessions kv.Store,
	hasher PasswordHasher,
	tokens *TokenCodec,
	accessTTL, refreshTTL time.Duration,
) (*SessionService, error) {
	return NewSessionServiceWithLogger(members, sessions, hasher, tokens, accessTTL, refreshTTL, slog.Default())
}

// NewSessionServiceWithLogger creates a SessionService with a custom logger.
func NewSessionServiceWithLogger(
	members member.Repository,
	sessions kv.Store,
	hasher PasswordHasher,
	tokens *TokenCodec,
	accessTTL, refreshTTL time.Duration,
	logger *slog.Logger,
) (*SessionService, error) {
	if members == nil {
		return nil, oops.Errorf("members repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token codec is required")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, oops.Errorf("token lifetimes must be positive")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &SessionService{
		members:    members,
		sessions:   sessions,
		hasher:     hasher,
		tokens:     tokens,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}, nil
}

// SignUp registers a new member with the given credentials.
func (s *SessionService) SignUp(ctx context.Context, email, password, name string) (*member.Member, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code(CodeInvalidInput).
			With("operation", "hash password").
			Wrap(err)
	}

	m, err := member.New(email, hash, name)
	if err != nil {
		return nil, oops.Code(CodeInvalidInput).Wrap(err)
	}

	if err := s.members.Create(ctx, m); err != nil {
		if errors.Is(err, member.ErrDuplicateEmail) {
			return nil, oops.Code(CodeDuplicateEmail).
				With("email", email).
				Wrap(err)
		}
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "create member").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "member signed up", "member_id", m.ID.String())
	return m, nil
}

// Login authenticates a member and issues an access/refresh token pair. The
// refresh token is stored under the member's email, replacing any session
// issued earlier.
// Uses constant-time operations to prevent timing-based email enumeration.
func (s *SessionService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	m, lookupErr := s.members.GetByEmail(ctx, email)

	// Determine which hash to verify against (real or dummy for timing attack prevention)
	var targetHash string
	var memberExists bool

	if lookupErr != nil {
		if errors.Is(lookupErr, member.ErrNotFound) {
			// Use dummy hash - still perform verification to maintain constant time
			targetHash = dummyPasswordHash
			memberExists = false
		} else {
			return nil, oops.Code("AUTH_LOOKUP_FAILED").
				With("operation", "get member by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = m.PasswordHash
		memberExists = true
	}

	// Always verify the password so absent and present emails take the same time.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && memberExists {
		return nil, oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	// Absent member and wrong password produce the same error.
	if !memberExists || !valid {
		return nil, oops.Code(CodeLoginFailed).Errorf("invalid email or password")
	}

	// Re-hash on login when the stored hash uses an older scheme.
	if s.hasher.NeedsUpgrade(m.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			_ = s.members.UpdatePassword(ctx, m.ID, newHash) //nolint:errcheck // Best effort, login succeeds regardless
		}
	}

	pair, err := s.issueTokens(ctx, m)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "member logged in", "member_id", m.ID.String())
	return &LoginResult{TokenPair: *pair, Member: m}, nil
}

// Logout removes the refresh session named by the presented refresh token.
// The token is decoded without verification so an expired token can still tear
// down its session; deleting an absent session is a no-op.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.ExtractClaims(refreshToken)
	if err != nil {
		return err
	}

	if err := s.sessions.Delete(ctx, claims.Email); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete refresh session").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "member logged out", "member_id", claims.MemberID)
	return nil
}

// Refresh rotates a valid refresh token into a new access/refresh pair. The
// presented token must verify AND match the session stored for its email;
// a token rotated out by a later login or refresh is rejected.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken)
	if err != nil {
		return nil, err
	}

	stored, ok, err := s.sessions.Get(ctx, claims.Email)
	if err != nil {
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get refresh session").
			Wrap(err)
	}
	if !ok || stored != refreshToken {
		return nil, oops.Code(CodeTokenMismatch).Errorf("refresh token does not match stored session")
	}

	m, err := s.members.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, oops.Code(CodeUserNotFound).
				With("member_id", claims.MemberID).
				Wrap(err)
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get member by email").
			Wrap(err)
	}

	pair, err := s.issueTokens(ctx, m)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "refresh token rotated", "member_id", m.ID.String())
	return pair, nil
}

// issueTokens generates a fresh token pair and stores the refresh token as the
// member's current session.
func (s *SessionService) issueTokens(ctx context.Context, m *member.Member) (*TokenPair, error) {
	access, err := s.tokens.Generate(m.ID, m.Email, m.Name, s.accessTTL)
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "generate access token").
			Wrap(err)
	}

	refresh, err := s.tokens.Generate(m.ID, m.Email, m.Name, s.refreshTTL)
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "generate refresh token").
			Wrap(err)
	}

	if err := s.sessions.Set(ctx, m.Email, refresh, s.refreshTTL); err != nil {
		return nil, oops.Code("AUTH_SESSION_STORE_FAILED").
			With("operation", "store refresh session").
			Wrap(err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.accessTTL.Milliseconds() / 1000,
	}, nil
}
