// Package service holds the authentication business logic.
//
// AuthService sits between the HTTP handlers and the repository/auth
// utilities:
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ IdentityProvider (Discord)
//	                               ↘ TokenService (JWT)
//
// It owns the session lifecycle:
//
//	NoSession ──login──▶ Authenticated ──15 min──▶ AccessExpired
//	                          ▲                          │
//	                          └────────refresh───────────┘
//
// A new login overwrites the stored refresh digest, which silently ends any
// earlier session. There is no logout or revocation transition.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/discord-relay/internal/apperror"
	"github.com/sakif/discord-relay/internal/auth"
	"github.com/sakif/discord-relay/internal/model"
	"github.com/sakif/discord-relay/internal/repository"
)

// IdentityProvider is the upstream OAuth2 provider. auth.DiscordProvider
// implements it; tests use a fake.
//
// Both calls fail with apperror.ErrProvider carrying the upstream status
// on a non-200 answer.
type IdentityProvider interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*auth.Profile, error)
}

// AuthService handles the authentication business logic.
type AuthService struct {
	users    repository.UserRepository
	provider IdentityProvider
	tokens   *auth.TokenService
	logger   *slog.Logger

	rotateRefresh bool
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithRefreshRotation makes every successful refresh replace the refresh
// token as well as the access token. Off by default: a refresh token then
// stays valid until the next provider login.
func WithRefreshRotation(enabled bool) Option {
	return func(s *AuthService) {
		s.rotateRefresh = enabled
	}
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	provider IdentityProvider,
	tokens *auth.TokenService,
	logger *slog.Logger,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		users:    users,
		provider: provider,
		tokens:   tokens,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthResult bundles what a handler needs to answer a login or refresh.
//
// RefreshToken is the raw value and is set only when a new refresh token
// was minted (every login, and refreshes with rotation enabled). It cannot
// be recovered later.
type AuthResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

// Login completes the provider flow for an authorization code:
//
//  1. Exchange the code for a provider access token
//  2. Fetch the provider profile
//  3. Upsert the user together with a brand new refresh token digest
//  4. Issue an access token bound to the external id
//
// Any failure aborts the whole login; nothing is retried or rolled back.
func (s *AuthService) Login(ctx context.Context, code string) (*AuthResult, error) {
	if code == "" {
		return nil, apperror.ValidationFailed("code", "code is required")
	}

	providerToken, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	profile, err := s.provider.FetchProfile(ctx, providerToken)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		ExternalID: profile.ID,
		Username:   profile.Username,
		Email:      profile.Email,
		Avatar:     profile.Avatar,
	}

	refreshToken, err := auth.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	if err := s.RegisterRefreshToken(ctx, user, refreshToken); err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.IssueAccessToken(user.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing access token for %s: %w", user.ExternalID, err)
	}

	s.logger.Info("user authenticated via provider",
		slog.String("externalID", user.ExternalID),
		slog.String("username", user.Username),
	)

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// RegisterRefreshToken makes raw the user's only valid refresh token by
// storing its digest and persisting the user. Whatever token was
// registered before stops working.
func (s *AuthService) RegisterRefreshToken(ctx context.Context, user *model.User, raw string) error {
	if user == nil {
		return errors.New("service/auth: user must not be nil")
	}
	if raw == "" {
		return errors.New("service/auth: refresh token must not be empty")
	}

	user.RefreshTokenHash = auth.HashRefreshToken(raw)

	if err := s.users.Upsert(ctx, user); err != nil {
		return fmt.Errorf("service/auth: upserting user (externalID=%s): %w", user.ExternalID, err)
	}

	return nil
}

// Refresh redeems a raw refresh token for a new access token.
//
// A missing token is ErrMissingCredential; a token whose digest matches no
// user is ErrInvalidToken. With rotation enabled the stored digest is
// replaced by compare-and-swap, so two concurrent redemptions of the same
// token cannot both succeed.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*AuthResult, error) {
	if raw == "" {
		return nil, apperror.MissingCredential(auth.RefreshTokenCookie)
	}

	hash := auth.HashRefreshToken(raw)

	user, err := s.users.GetByRefreshHash(ctx, hash)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidToken("refresh token not recognised")
		}
		return nil, fmt.Errorf("service/auth: looking up refresh token: %w", err)
	}

	result := &AuthResult{User: user}

	if s.rotateRefresh {
		next, err := auth.NewRefreshToken()
		if err != nil {
			return nil, fmt.Errorf("service/auth: %w", err)
		}
		nextHash := auth.HashRefreshToken(next)
		if err := s.users.SwapRefreshHash(ctx, user.ExternalID, hash, nextHash); err != nil {
			return nil, fmt.Errorf("service/auth: rotating refresh token for %s: %w", user.ExternalID, err)
		}
		user.RefreshTokenHash = nextHash
		result.RefreshToken = next
	}

	result.AccessToken, err = s.tokens.IssueAccessToken(user.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing access token for %s: %w", user.ExternalID, err)
	}

	s.logger.Debug("access token refreshed",
		slog.String("externalID", user.ExternalID),
		slog.Bool("rotated", s.rotateRefresh),
	)

	return result, nil
}

// VerifyAccessToken validates a signed access token and resolves its
// subject to a stored user.
//
// Errors: ErrMissingCredential (empty), ErrInvalidToken (bad signature,
// malformed, expired), ErrNotFound (subject has no user any more).
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperror.MissingCredential(auth.AccessTokenCookie)
	}

	externalID, err := s.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: resolving subject %s: %w", externalID, err)
	}

	return user, nil
}
