package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/db"
	"github.com/streamhub/backend/internal/models"
)

// PostgresSessionStore keeps each account's single refresh token on its users row.
type PostgresSessionStore struct {
	pool db.Pool
}

// NewPostgresSessionStore constructs a session store backed by PostgreSQL.
func NewPostgresSessionStore(pool db.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// SessionUser loads the account together with its stored refresh token.
func (s *PostgresSessionStore) SessionUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, auth.ErrSessionNotFound
		}
		return models.User{}, fmt.Errorf("select session user: %w", err)
	}

	return user, nil
}

// StoreRefreshToken overwrites the stored token. An empty token is stored as NULL.
func (s *PostgresSessionStore) StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var value *string
	if token != "" {
		value = &token
	}

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $2
        WHERE id = $1
    `, userID, value)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}

	return nil
}

var _ auth.SessionStore = (*PostgresSessionStore)(nil)
