package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the token's subject no longer maps to an account.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenExpired indicates the token has expired and cannot be used.
	ErrTokenExpired = errors.New("token expired")
	// ErrRefreshTokenRevoked indicates the refresh token was rotated or cleared.
	ErrRefreshTokenRevoked = errors.New("refresh token expired or used")
	// ErrInvalidToken indicates a token that fails signature or claim validation.
	ErrInvalidToken = errors.New("invalid token")
)

// SessionStore persists the single active refresh token of each account.
type SessionStore interface {
	// SessionUser loads the account, including its stored refresh token.
	SessionUser(ctx context.Context, userID uuid.UUID) (models.User, error)
	// StoreRefreshToken replaces the stored token; an empty token clears it.
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string) error
}

// AccessClaims are carried by access tokens.
type AccessClaims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a typed identifier.
func (c AccessClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Manager issues, verifies and rotates signed session tokens.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	store SessionStore
	now   func() time.Time
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// NewManager constructs a Manager backed by store.
func NewManager(cfg ManagerConfig, store SessionStore) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 10 * 24 * time.Hour
	}
	return &Manager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		store:         store,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a new access/refresh pair for user and persists the refresh
// token, replacing whatever token the account held before.
func (m *Manager) Issue(ctx context.Context, user models.User) (models.SessionTokens, error) {
	if user.ID == uuid.Nil {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.now()
	accessExp := now.Add(m.accessTTL)
	refreshExp := now.Add(m.refreshTTL)

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		Username:         user.Username,
		Email:            user.Email,
		FullName:         user.FullName,
		RegisteredClaims: registeredClaims(user.ID, now, accessExp),
	}).SignedString(m.accessSecret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, registeredClaims(user.ID, now, refreshExp)).
		SignedString(m.refreshSecret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := m.store.StoreRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("store refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh exchanges the account's current refresh token for a new pair. Tokens
// that verify but no longer match the stored value are rejected.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, models.User, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, models.User{}, ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	if err := m.parse(refreshToken, m.refreshSecret, &claims); err != nil {
		return models.SessionTokens{}, models.User{}, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.SessionTokens{}, models.User{}, ErrInvalidToken
	}

	user, err := m.store.SessionUser(ctx, userID)
	if err != nil {
		return models.SessionTokens{}, models.User{}, err
	}

	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return models.SessionTokens{}, models.User{}, ErrRefreshTokenRevoked
	}

	tokens, err := m.Issue(ctx, user)
	if err != nil {
		return models.SessionTokens{}, models.User{}, err
	}
	return tokens, user, nil
}

// Revoke clears the stored refresh token of the account.
func (m *Manager) Revoke(ctx context.Context, userID uuid.UUID) error {
	return m.store.StoreRefreshToken(ctx, userID, "")
}

// VerifyAccess validates an access token and returns its claims.
func (m *Manager) VerifyAccess(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := m.parse(token, m.accessSecret, &claims); err != nil {
		return AccessClaims{}, err
	}
	if _, err := claims.UserID(); err != nil {
		return AccessClaims{}, ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) parse(token string, secret []byte, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

func registeredClaims(userID uuid.UUID, now, expires time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   userID.String(),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
}
