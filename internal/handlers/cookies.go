package handlers

import (
	"net/http"
	"time"

	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/models"
)

// CookieConfig controls the attributes of the session cookies.
type CookieConfig struct {
	Secure bool
}

func (c CookieConfig) setSession(w http.ResponseWriter, tokens models.SessionTokens, now time.Time) {
	http.SetCookie(w, c.cookie(auth.AccessCookie, tokens.AccessToken, tokens.AccessExpiresAt, now))
	http.SetCookie(w, c.cookie(auth.RefreshCookie, tokens.RefreshToken, tokens.RefreshExpiresAt, now))
}

func (c CookieConfig) clearSession(w http.ResponseWriter) {
	for _, name := range []string{auth.AccessCookie, auth.RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   c.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func (c CookieConfig) cookie(name, value string, expires, now time.Time) *http.Cookie {
	maxAge := int(expires.Sub(now).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
