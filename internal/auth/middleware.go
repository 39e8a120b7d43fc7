package auth

import (
	"context"
	"net/http"

	"github.com/sakif/discord-relay/internal/apperror"
	"github.com/sakif/discord-relay/internal/model"
)

// Cookie names shared by the middleware and the auth handlers.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the value.
type contextKey string

const userKey contextKey = "user"

// Verifier resolves an access token to the user it was issued for.
// service.AuthService implements it.
type Verifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*model.User, error)
}

// ErrorWriter renders an error to the client.
type ErrorWriter func(w http.ResponseWriter, err error)

// RequireAuth reads the access_token cookie, verifies it, and stores the
// resolved user in the request context.
//
// A missing cookie, a bad token and an unknown subject are all handed to
// onError, which picks the status code (401 or 404).
func RequireAuth(v Verifier, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AccessTokenCookie)
			if err != nil || cookie.Value == "" {
				onError(w, apperror.MissingCredential(AccessTokenCookie))
				return
			}

			user, err := v.VerifyAccessToken(r.Context(), cookie.Value)
			if err != nil {
				onError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the user stored by RequireAuth.
//
//	user, ok := auth.UserFromContext(r.Context())
//	if !ok {
//	    // route is not behind RequireAuth
//	}
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}
