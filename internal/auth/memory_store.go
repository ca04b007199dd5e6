package auth

import (
	"context"
	"sync"
)

// NewMemoryTokenStore returns a RefreshTokenStore backed by an in-memory map.
func NewMemoryTokenStore(userIDs ...string) *MemoryTokenStore {
	s := &MemoryTokenStore{tokens: make(map[string]string)}
	for _, id := range userIDs {
		s.tokens[id] = ""
	}
	return s
}

// MemoryTokenStore implements RefreshTokenStore for tests and local development.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

// AddUser registers a user with no active refresh token.
func (s *MemoryTokenStore) AddUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[userID]; !ok {
		s.tokens[userID] = ""
	}
}

// ReplaceRefreshToken stores token as the user's only refresh token.
func (s *MemoryTokenStore) ReplaceRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[userID]; !ok {
		return ErrUnknownUser
	}
	s.tokens[userID] = token
	return nil
}

// CompareAndSwapRefreshToken swaps under the store lock.
func (s *MemoryTokenStore) CompareAndSwapRefreshToken(_ context.Context, userID, expected, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tokens[userID]
	if !ok {
		return ErrUnknownUser
	}
	if current == "" || current != expected {
		return ErrRefreshTokenMismatch
	}
	s.tokens[userID] = next
	return nil
}

// ClearRefreshToken drops the user's refresh token.
func (s *MemoryTokenStore) ClearRefreshToken(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[userID]; ok {
		s.tokens[userID] = ""
	}
	return nil
}

// Token reports the stored refresh token. Useful for tests.
func (s *MemoryTokenStore) Token(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[userID]
}
