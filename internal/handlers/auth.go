package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/streamhub/backend/internal/apperr"
	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/logging"
	"github.com/streamhub/backend/internal/media"
	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/response"
)

// AuthHandler implements registration and session endpoints.
type AuthHandler struct {
	Users           UserStore
	Sessions        SessionManager
	Media           MediaService
	Cookies         CookieConfig
	MaxUploadBytes  int64
	DefaultCoverURL string
	BcryptCost      int
	NowFunc         func() time.Time
}

// Register handles POST /api/v1/users/register.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Media == nil {
		response.Error(ctx, w, apperr.Internal("registration unavailable", errors.New("auth handler missing dependencies")))
		return
	}

	if err := parseMultipart(w, r, h.MaxUploadBytes); err != nil {
		response.Error(ctx, w, err)
		return
	}

	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	fullName := strings.TrimSpace(r.FormValue("fullName"))
	password := r.FormValue("password")

	if err := requireFields("username", username, "email", email, "password", password, "fullName", fullName); err != nil {
		response.Error(ctx, w, err)
		return
	}

	if _, err := mail.ParseAddress(email); err != nil {
		response.Error(ctx, w, apperr.Validation("invalid email address", "email"))
		return
	}

	exists, err := h.Users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	if exists {
		logger.Warn("register existing account", "username", username)
		response.Error(ctx, w, apperr.Conflict("user with email or username already exists"))
		return
	}

	avatarFile, avatar, ok, err := formFile(r, "avatar")
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	if !ok {
		response.Error(ctx, w, apperr.Validation("avatar file is required", "avatar"))
		return
	}
	defer avatarFile.Close()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost())
	if err != nil {
		response.Error(ctx, w, apperr.Internal("failed to secure password", err))
		return
	}

	avatarURL, err := h.Media.UploadImage(ctx, media.FolderAvatars, avatar)
	if err != nil {
		response.Error(ctx, w, apperr.Upload("failed to upload avatar", err))
		return
	}

	coverURL := h.DefaultCoverURL
	coverFile, cover, ok, err := formFile(r, "coverImage")
	if err != nil {
		h.Media.Discard(ctx, avatarURL)
		response.Error(ctx, w, err)
		return
	}
	if ok {
		defer coverFile.Close()
		coverURL, err = h.Media.UploadImage(ctx, media.FolderCovers, cover)
		if err != nil {
			h.Media.Discard(ctx, avatarURL)
			response.Error(ctx, w, apperr.Upload("failed to upload cover image", err))
			return
		}
	}

	now := h.now()
	user := models.User{
		ID:         uuid.New(),
		Username:   username,
		Email:      email,
		FullName:   fullName,
		Avatar:     avatarURL,
		CoverImage: coverURL,
		Password:   string(hashed),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		uploaded := []string{avatarURL}
		if coverURL != h.DefaultCoverURL {
			uploaded = append(uploaded, coverURL)
		}
		h.Media.Discard(ctx, uploaded...)
		response.Error(ctx, w, storeError(err, "", "user with email or username already exists"))
		return
	}

	logger.Info("user registered", "userId", user.ID)
	response.Success(ctx, w, http.StatusCreated, "user registered successfully", user)
}

// Login handles POST /api/v1/users/login.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Sessions == nil {
		response.Error(ctx, w, apperr.Internal("authentication unavailable", errors.New("auth handler missing dependencies")))
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(ctx, w, err)
		return
	}

	identifier := strings.ToLower(strings.TrimSpace(req.identifier()))
	if identifier == "" {
		response.Error(ctx, w, apperr.Validation("username or email is required", "identifier"))
		return
	}
	if req.Password == "" {
		response.Error(ctx, w, apperr.Validation("password is required", "password"))
		return
	}

	user, err := h.Users.FindByIdentifier(ctx, identifier)
	if err != nil {
		response.Error(ctx, w, storeError(err, "user does not exist", ""))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		response.Error(ctx, w, apperr.Unauthorized("invalid user credentials"))
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user)
	if err != nil {
		response.Error(ctx, w, apperr.Internal("failed to create session", err))
		return
	}

	h.Cookies.setSession(w, tokens, h.now())
	response.Success(ctx, w, http.StatusOK, "user logged in successfully", sessionResponse{
		User:         &user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// Logout handles POST /api/v1/users/logout.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	if err := h.Sessions.Revoke(ctx, user.ID); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
		response.Error(ctx, w, err)
		return
	}

	h.Cookies.clearSession(w)
	response.Success(ctx, w, http.StatusOK, "user logged out", struct{}{})
}

// RefreshToken handles POST /api/v1/users/refresh-token.
func (h AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil {
		response.Error(ctx, w, apperr.Internal("session service unavailable", errors.New("session manager missing")))
		return
	}

	token := ""
	if cookie, err := r.Cookie(auth.RefreshCookie); err == nil {
		token = strings.TrimSpace(cookie.Value)
	}
	if token == "" && r.Body != nil && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			response.Error(ctx, w, err)
			return
		}
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		response.Error(ctx, w, apperr.Unauthorized("unauthorized request"))
		return
	}

	tokens, user, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		logger.Warn("refresh failed", "error", err)
		switch {
		case errors.Is(err, auth.ErrRefreshTokenRevoked):
			response.Error(ctx, w, apperr.Unauthorized("refresh token is expired or used").Wrap(err))
		case errors.Is(err, auth.ErrTokenExpired),
			errors.Is(err, auth.ErrInvalidToken),
			errors.Is(err, auth.ErrSessionNotFound):
			response.Error(ctx, w, apperr.Unauthorized("invalid refresh token").Wrap(err))
		default:
			response.Error(ctx, w, apperr.Internal("unable to refresh session", err))
		}
		return
	}

	h.Cookies.setSession(w, tokens, h.now())
	logger.Info("session refreshed", "userId", user.ID)
	response.Success(ctx, w, http.StatusOK, "access token refreshed", sessionResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(ctx, w, err)
		return
	}

	if err := requireFields("oldPassword", req.OldPassword, "newPassword", req.NewPassword); err != nil {
		response.Error(ctx, w, err)
		return
	}
	if req.OldPassword == req.NewPassword {
		response.Error(ctx, w, apperr.Validation("new password must differ from the old password", "newPassword"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		response.Error(ctx, w, apperr.BadCredentials("invalid old password"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), h.bcryptCost())
	if err != nil {
		response.Error(ctx, w, apperr.Internal("failed to secure password", err))
		return
	}

	if err := h.Users.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		response.Error(ctx, w, storeError(err, "user does not exist", ""))
		return
	}

	response.Success(ctx, w, http.StatusOK, "password changed successfully", struct{}{})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func (r loginRequest) identifier() string {
	for _, candidate := range []string{r.Identifier, r.Username, r.Email} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type sessionResponse struct {
	User         *models.User `json:"user,omitempty"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func (h AuthHandler) bcryptCost() int {
	if h.BcryptCost > 0 {
		return h.BcryptCost
	}
	return bcrypt.DefaultCost
}
