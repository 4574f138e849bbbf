package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/apperr"
	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/logging"
	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
	"github.com/streamhub/backend/internal/response"
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (auth.AccessClaims, error)
}

// UserLoader resolves the account behind a verified token.
type UserLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

// Authenticator attaches the caller's account to the request context.
type Authenticator struct {
	Tokens TokenVerifier
	Users  UserLoader
}

// Require rejects requests without a valid access token.
func (a Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.authenticate(r)
		if err != nil {
			response.Error(r.Context(), w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// Optional attaches the caller when a valid access token is present and
// otherwise lets the request through anonymously.
func (a Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if AccessToken(r) == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := a.authenticate(r)
		if err != nil {
			logging.FromContext(r.Context()).Debug("ignoring invalid optional credentials", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func (a Authenticator) authenticate(r *http.Request) (models.User, error) {
	if a.Tokens == nil || a.Users == nil {
		return models.User{}, apperr.Internal("authentication unavailable", errors.New("authenticator missing dependencies"))
	}

	token := AccessToken(r)
	if token == "" {
		return models.User{}, apperr.Unauthorized("unauthorized request")
	}

	claims, err := a.Tokens.VerifyAccess(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return models.User{}, apperr.Unauthorized("access token expired").Wrap(err)
		}
		return models.User{}, apperr.Unauthorized("invalid access token").Wrap(err)
	}

	userID, err := claims.UserID()
	if err != nil {
		return models.User{}, apperr.Unauthorized("invalid access token").Wrap(err)
	}

	user, err := a.Users.FindByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, apperr.Unauthorized("invalid access token").Wrap(err)
		}
		return models.User{}, apperr.Internal("failed to load account", err)
	}

	return user, nil
}

func withUser(ctx context.Context, user models.User) context.Context {
	ctx = auth.WithUser(ctx, user)
	return logging.WithAttrs(ctx, "user_id", user.ID.String())
}

// AccessToken returns the access token from the cookie or the bearer header.
func AccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(auth.AccessCookie); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
