package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/discord-relay/internal/apperror"
)

// Discord's public OAuth2 endpoints.
const (
	DiscordAuthURL    = "https://discord.com/oauth2/authorize"
	DiscordTokenURL   = "https://discord.com/api/oauth2/token"
	DiscordProfileURL = "https://discord.com/api/users/@me"
)

// DefaultProviderTimeout bounds each round trip to the provider.
const DefaultProviderTimeout = 5 * time.Second

// Profile is the portion of Discord's /users/@me response we keep.
//
// Discord API docs: https://discord.com/developers/docs/resources/user#user-object
type Profile struct {
	ID       string `json:"id"`       // snowflake, stable for the life of the account
	Username string `json:"username"` // display handle, may change
	Email    string `json:"email"`    // null without the "email" scope or if unverified
	Avatar   string `json:"avatar"`   // avatar hash, null for default avatars
}

// ProviderConfig describes how to reach the identity provider.
// Zero-valued URLs fall back to Discord's endpoints.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	ProfileURL   string
	Timeout      time.Duration
}

// DiscordProvider performs the two server-to-server calls of the
// Authorization Code flow:
//
//  1. ExchangeCode: POST the code to the token endpoint, get an access token
//  2. FetchProfile: GET /users/@me with that token
//
// Neither call is retried. Any non-200 answer becomes an
// apperror.ErrProvider carrying Discord's status code.
type DiscordProvider struct {
	config     *oauth2.Config
	profileURL string
	client     *http.Client
	timeout    time.Duration
}

// NewDiscordProvider creates a DiscordProvider from cfg.
//
// Scopes we request:
//   - "identify": id, username, avatar
//   - "email": the account's email address
func NewDiscordProvider(cfg ProviderConfig) *DiscordProvider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DiscordAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DiscordTokenURL
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = DiscordProfileURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProviderTimeout
	}

	return &DiscordProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
				// Discord expects client_id/client_secret in the form body.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		profileURL: cfg.ProfileURL,
		client:     &http.Client{Timeout: cfg.Timeout},
		timeout:    cfg.Timeout,
	}
}

// AuthURL returns the consent page URL for the given CSRF state.
func (p *DiscordProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// ExchangeCode trades an authorization code for a provider access token.
func (p *DiscordProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// oauth2 picks up the HTTP client from the context.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil {
			return "", fmt.Errorf("auth: exchanging code: %w",
				apperror.ProviderFailed(rErr.Response.StatusCode, "error fetching token/invalid code provided"))
		}
		return "", fmt.Errorf("auth: exchanging code: %w", transportError(err))
	}

	if tok.AccessToken == "" {
		return "", fmt.Errorf("auth: exchanging code: %w",
			apperror.ProviderFailed(http.StatusBadGateway, "provider returned an empty access token"))
	}

	return tok.AccessToken, nil
}

// FetchProfile loads the profile of the account that owns accessToken.
func (p *DiscordProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling profile endpoint: %w", transportError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: profile endpoint: %w",
			apperror.ProviderFailed(resp.StatusCode, "error fetching user info"))
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("auth: decoding profile: %w",
			apperror.ProviderFailed(http.StatusBadGateway, "provider returned an unreadable profile"))
	}

	if profile.ID == "" {
		return nil, fmt.Errorf("auth: profile: %w",
			apperror.ProviderFailed(http.StatusBadGateway, "provider returned a profile without an id"))
	}

	return &profile, nil
}

// transportError classifies failures where no provider response arrived.
func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &apperror.AppError{
			Err:     fmt.Errorf("%w: %w", apperror.ErrProvider, err),
			Message: "identity provider timed out",
			Status:  http.StatusGatewayTimeout,
		}
	}
	return &apperror.AppError{
		Err:     fmt.Errorf("%w: %w", apperror.ErrProvider, err),
		Message: "identity provider unreachable",
		Status:  http.StatusBadGateway,
	}
}
