package handlers

import (
	"net/http"
	"time"

	"github.com/streamhub/backend/internal/apperr"
	"github.com/streamhub/backend/internal/metrics"
	"github.com/streamhub/backend/internal/middleware"
	"github.com/streamhub/backend/internal/response"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Videos        VideoStore
	Subscriptions SubscriptionStore
	Sessions      SessionManager
	Tokens        middleware.TokenVerifier
	Media         MediaService
	DB            Pinger
	RateLimiter   middleware.RateLimiter

	Cookies         CookieConfig
	MaxUploadBytes  int64
	DefaultCoverURL string
	BcryptCost      int
	NowFunc         func() time.Time
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	authn := middleware.Authenticator{Tokens: deps.Tokens, Users: deps.Users}
	limited := func(scope string, h http.HandlerFunc) http.Handler {
		return middleware.RateLimit(deps.RateLimiter, scope)(h)
	}

	health := HealthHandler{DB: deps.DB}
	accounts := AuthHandler{
		Users:           deps.Users,
		Sessions:        deps.Sessions,
		Media:           deps.Media,
		Cookies:         deps.Cookies,
		MaxUploadBytes:  deps.MaxUploadBytes,
		DefaultCoverURL: deps.DefaultCoverURL,
		BcryptCost:      deps.BcryptCost,
		NowFunc:         deps.NowFunc,
	}
	users := UserHandler{
		Users:           deps.Users,
		Media:           deps.Media,
		MaxUploadBytes:  deps.MaxUploadBytes,
		DefaultCoverURL: deps.DefaultCoverURL,
	}
	videos := VideoHandler{
		Videos:         deps.Videos,
		History:        deps.Users,
		Media:          deps.Media,
		MaxUploadBytes: deps.MaxUploadBytes,
		NowFunc:        deps.NowFunc,
	}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions}

	mux.HandleFunc("GET /healthz", health.Handle)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.Handle("POST /api/v1/users/register", limited("register", accounts.Register))
	mux.Handle("POST /api/v1/users/login", limited("login", accounts.Login))
	mux.Handle("POST /api/v1/users/refresh-token", limited("refresh", accounts.RefreshToken))
	mux.Handle("POST /api/v1/users/logout", authn.Require(http.HandlerFunc(accounts.Logout)))
	mux.Handle("POST /api/v1/users/change-password", authn.Require(http.HandlerFunc(accounts.ChangePassword)))
	mux.Handle("GET /api/v1/users/current-user", authn.Require(http.HandlerFunc(users.CurrentUser)))
	mux.Handle("PATCH /api/v1/users/update-account", authn.Require(http.HandlerFunc(users.UpdateAccount)))
	mux.Handle("PATCH /api/v1/users/avatar", authn.Require(http.HandlerFunc(users.UpdateAvatar)))
	mux.Handle("PATCH /api/v1/users/cover-image", authn.Require(http.HandlerFunc(users.UpdateCoverImage)))
	mux.Handle("GET /api/v1/users/channel/{username}", authn.Optional(http.HandlerFunc(users.ChannelProfile)))
	mux.Handle("GET /api/v1/users/history", authn.Require(http.HandlerFunc(users.WatchHistory)))

	mux.HandleFunc("GET /api/v1/videos", videos.List)
	mux.Handle("POST /api/v1/videos", authn.Require(http.HandlerFunc(videos.Publish)))
	mux.Handle("GET /api/v1/videos/unpublished", authn.Require(http.HandlerFunc(videos.ListUnpublished)))
	mux.Handle("GET /api/v1/videos/{videoId}", authn.Optional(http.HandlerFunc(videos.Get)))
	mux.Handle("PATCH /api/v1/videos/{videoId}", authn.Require(http.HandlerFunc(videos.Update)))
	mux.Handle("DELETE /api/v1/videos/{videoId}", authn.Require(http.HandlerFunc(videos.Delete)))
	mux.Handle("PATCH /api/v1/videos/{videoId}/toggle-publish", authn.Require(http.HandlerFunc(videos.TogglePublish)))

	mux.Handle("POST /api/v1/subscriptions/{channelId}/toggle", authn.Require(http.HandlerFunc(subscriptions.Toggle)))
	mux.HandleFunc("GET /api/v1/subscriptions/{segment}/{tail}", subscriptions.Lookup)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		response.Error(r.Context(), w, apperr.NotFound("route not found"))
	})
}
