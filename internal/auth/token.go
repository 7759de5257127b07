// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Claims are the JWT claims carried by both access and refresh tokens.
type Claims struct {
	MemberID string `json:"memberId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 member tokens.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// NewTokenCodec creates a TokenCodec with the given signing secret.
func NewTokenCodec(secret []byte) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, oops.Code("AUTH_EMPTY_SECRET").Errorf("token signing secret is required")
	}
	return &TokenCodec{secret: secret, now: time.Now}, nil
}

// WithClock overrides the codec's time source. Used in tests to control token
// expiry.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	clone := *c
	clone.now = now
	return &clone
}

// Generate signs a token for the member valid for ttl.
func (c *TokenCodec) Generate(id ulid.ULID, email, name string, ttl time.Duration) (string, error) {
	issuedAt := c.now()
	claims := Claims{
		MemberID: id.String(),
		Email:    email,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Parse verifies the token signature and expiry and returns its claims.
func (c *TokenCodec) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, oops.Code(CodeInvalidToken).
			With("operation", "parse token").
			Wrap(err)
	}
	return claims, nil
}

// ExtractClaims decodes the token claims WITHOUT verifying the signature or
// expiry. Callers must not trust the result for authentication decisions; it
// is only suitable for best-effort use such as tearing down the session named
// by an already-expired refresh token.
func (c *TokenCodec) ExtractClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, oops.Code(CodeInvalidToken).
			With("operation", "decode token claims").
			Wrap(err)
	}
	return claims, nil
}
