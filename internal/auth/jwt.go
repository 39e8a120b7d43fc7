// Package auth issues and verifies the credentials this service hands out,
// and talks to the upstream identity provider (Discord).
//
// CREDENTIALS:
//   - access token: HS256 JWT, 15 minutes, carries the Discord user id in "sub"
//   - refresh token: 32 random bytes, hex encoded, stored only as a SHA-256 digest
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<externalId>","iat":1700000000,"exp":1700000900}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The server verifies the signature without any DB lookup. Resolving the
// subject to a user is the service layer's job.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/discord-relay/internal/apperror"
)

// AccessTokenTTL is the lifetime of every access token we sign.
const AccessTokenTTL = 15 * time.Minute

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens. The secret
// comes from configuration and is never persisted per user.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// Option configures a TokenService.
type Option func(*TokenService)

// WithClock replaces time.Now. Tests use it to land exactly on the expiry
// boundary.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET_KEY=$(openssl rand -hex 32)
func NewTokenService(secret string, opts ...Option) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	s := &TokenService{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueAccessToken signs a token binding subject (the user's external id)
// with iat and exp = iat + 15 minutes.
//
// Given the same secret, subject and clock reading the output is identical;
// across calls it differs because iat moves.
func (s *TokenService) IssueAccessToken(subject string) (string, error) {
	return s.issue(subject, AccessTokenTTL)
}

func (s *TokenService) issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("auth: token subject must not be empty")
	}

	now := s.now()
	c := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns its subject.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid and made with our secret
//   - Algorithm is HS256 (prevents "none" and RS/HS confusion)
//   - exp is present and not in the past
//
// Every failure is reported as apperror.ErrInvalidToken.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperror.InvalidToken("token expired")
		}
		return "", &apperror.AppError{
			Err:     fmt.Errorf("%w: %w", apperror.ErrInvalidToken, err),
			Message: "invalid token",
		}
	}

	if !token.Valid || c.Subject == "" {
		return "", apperror.InvalidToken("token has no subject")
	}

	return c.Subject, nil
}
