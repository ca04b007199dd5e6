package auth

import (
	"context"
	"errors"
)

var (
	// ErrUnknownUser indicates the token subject has no user record.
	ErrUnknownUser = errors.New("user not found")
	// ErrRefreshTokenMismatch indicates the presented refresh token is no longer the stored one.
	ErrRefreshTokenMismatch = errors.New("refresh token does not match stored value")
)

// RefreshTokenStore persists the single active refresh token of each user.
type RefreshTokenStore interface {
	// ReplaceRefreshToken unconditionally stores token, superseding any prior value.
	ReplaceRefreshToken(ctx context.Context, userID, token string) error
	// CompareAndSwapRefreshToken stores next only if the current value equals
	// expected, as one atomic operation.
	CompareAndSwapRefreshToken(ctx context.Context, userID, expected, next string) error
	// ClearRefreshToken removes the stored value. Clearing an absent value succeeds.
	ClearRefreshToken(ctx context.Context, userID string) error
}
