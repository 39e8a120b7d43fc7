package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/discord-relay/internal/auth"
	"github.com/sakif/discord-relay/internal/service"
)

// Cookie lifetimes in seconds.
const (
	accessTokenMaxAge  = 900    // 15 minutes, same as the JWT exp
	refreshTokenMaxAge = 604800 // 7 days
	stateMaxAge        = 600    // 10 minutes to approve on the consent page
)

const stateCookie = "oauth_state"

// ConsentURLBuilder builds the provider's authorization page URL.
// auth.DiscordProvider implements it.
type ConsentURLBuilder interface {
	AuthURL(state string) string
}

// AuthConfig holds the handler settings that come from configuration.
type AuthConfig struct {
	// FrontendURL is where the browser lands after login or refresh.
	FrontendURL string
	// SecureCookies sets the Secure attribute. Only disable for plain-HTTP
	// local development.
	SecureCookies bool
}

// AuthHandler exposes the session endpoints:
//
//   - HandleLogin    GET  /auth/login    → redirect to the provider consent page
//   - HandleCallback GET  /auth          → code exchange, cookies, redirect
//   - HandleRefresh  POST /auth/refresh  → new access cookie, redirect
//   - HandleMe       GET  /users/me      → current user's profile
type AuthHandler struct {
	auth    *service.AuthService
	consent ConsentURLBuilder
	config  AuthConfig
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here.
func NewAuthHandler(
	authService *service.AuthService,
	consent ConsentURLBuilder,
	config AuthConfig,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:    authService,
		consent: consent,
		config:  config,
		logger:  logger,
	}
}

// HandleLogin redirects the browser to the provider's consent page.
//
// HTTP: GET /auth/login
//
// A random state is stored in a short-lived cookie; HandleCallback checks
// the provider echoes it back. Front ends that link straight to the
// provider skip this endpoint and the check.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.consent.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the provider login.
//
// HTTP: GET /auth?code=xxx[&state=yyy]
//
// FLOW:
//  1. Check state if the login started at /auth/login
//  2. Exchange the code, upsert the user, mint both tokens (service)
//  3. Set access_token and refresh_token cookies
//  4. 302 to the front end
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if c, err := r.Cookie(stateCookie); err == nil && c.Value != "" {
		if query.Get("state") != c.Value {
			h.logger.Warn("auth callback: state mismatch")
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "invalid OAuth state",
			})
			return
		}
		// single use
		http.SetCookie(w, &http.Cookie{
			Name:   stateCookie,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}

	result, err := h.auth.Login(r.Context(), query.Get("code"))
	if err != nil {
		h.logger.Warn("auth callback: login failed", slog.String("error", err.Error()))
		WriteError(w, err)
		return
	}

	h.setTokenCookie(w, auth.AccessTokenCookie, result.AccessToken, accessTokenMaxAge)
	h.setTokenCookie(w, auth.RefreshTokenCookie, result.RefreshToken, refreshTokenMaxAge)

	http.Redirect(w, r, h.config.FrontendURL, http.StatusFound)
}

// HandleRefresh trades the refresh_token cookie for a new access token.
//
// HTTP: POST /auth/refresh
//
// 401 when the cookie is missing or matches no user. When refresh tokens
// rotate, the replacement is set as well.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var raw string
	if c, err := r.Cookie(auth.RefreshTokenCookie); err == nil {
		raw = c.Value
	}

	result, err := h.auth.Refresh(r.Context(), raw)
	if err != nil {
		h.logger.Info("refresh rejected", slog.String("error", err.Error()))
		WriteError(w, err)
		return
	}

	h.setTokenCookie(w, auth.AccessTokenCookie, result.AccessToken, accessTokenMaxAge)
	if result.RefreshToken != "" {
		h.setTokenCookie(w, auth.RefreshTokenCookie, result.RefreshToken, refreshTokenMaxAge)
	}

	http.Redirect(w, r, h.config.FrontendURL, http.StatusFound)
}

// meResponse is the public view of a user.
type meResponse struct {
	ExternalID string `json:"externalId"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar"`
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /users/me
// Auth: Required (auth.RequireAuth puts the user in the context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		// Only reachable if the route is mounted without RequireAuth.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_credential",
			Message: "access_token is required",
		})
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		ExternalID: user.ExternalID,
		Username:   user.Username,
		Email:      user.Email,
		Avatar:     user.Avatar,
	})
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
