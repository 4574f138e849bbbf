package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/models"
)

// NewInMemorySessionStore returns a SessionStore backed by an in-memory map of accounts.
func NewInMemorySessionStore(users ...models.User) *InMemorySessionStore {
	store := &InMemorySessionStore{users: make(map[uuid.UUID]models.User, len(users))}
	for _, user := range users {
		store.users[user.ID] = user
	}
	return store
}

// InMemorySessionStore implements SessionStore for tests and local development.
type InMemorySessionStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.User
}

// Put adds or replaces an account.
func (s *InMemorySessionStore) Put(user models.User) {
	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()
}

// SessionUser retrieves an account by id.
func (s *InMemorySessionStore) SessionUser(_ context.Context, userID uuid.UUID) (models.User, error) {
	s.mu.RLock()
	user, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return models.User{}, ErrSessionNotFound
	}
	return user, nil
}

// StoreRefreshToken overwrites the stored refresh token of an account.
func (s *InMemorySessionStore) StoreRefreshToken(_ context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrSessionNotFound
	}
	user.RefreshToken = token
	s.users[userID] = user
	return nil
}

// RefreshToken reports the stored token of an account. Useful for tests.
func (s *InMemorySessionStore) RefreshToken(userID uuid.UUID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID].RefreshToken
}
