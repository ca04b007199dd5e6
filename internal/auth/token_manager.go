package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/models"
)

const (
	useAccess  = "access"
	useRefresh = "refresh"
)

// Rotation outcomes reported to the observer.
const (
	RotationSucceeded   = "rotated"
	RotationInvalid     = "invalid"
	RotationUnknownUser = "unknown_user"
	RotationSuperseded  = "superseded"
	RotationFailed      = "error"
)

var (
	errTokenExpired = errors.New("token expired")
	errTokenInvalid = errors.New("token invalid")
)

type claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Options configures token signing.
type Options struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides the time source used to stamp and validate tokens.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRotationObserver receives the outcome of every Rotate call.
func WithRotationObserver(observe func(outcome string)) Option {
	return func(m *Manager) {
		if observe != nil {
			m.observe = observe
		}
	}
}

// Manager issues, verifies, rotates and revokes session tokens. Each user has
// at most one active refresh token, held by the store.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	store   RefreshTokenStore
	now     func() time.Time
	observe func(outcome string)
}

// NewManager constructs a Manager that signs tokens with the provided secrets and TTLs.
func NewManager(opts Options, store RefreshTokenStore, options ...Option) *Manager {
	if store == nil {
		panic("auth: refresh token store must not be nil")
	}
	if len(opts.AccessSecret) == 0 || len(opts.RefreshSecret) == 0 {
		panic("auth: token secrets must not be empty")
	}
	m := &Manager{
		accessSecret:  opts.AccessSecret,
		refreshSecret: opts.RefreshSecret,
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		store:         store,
		now:           time.Now,
		observe:       func(string) {},
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Issue mints a new access/refresh pair for userID and makes the refresh token
// the user's only valid one.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, apperror.BadRequest("user id must be provided")
	}

	tokens, err := m.mint(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.store.ReplaceRefreshToken(ctx, userID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, apperror.Internal("something went wrong while generating tokens", err)
	}

	return tokens, nil
}

// VerifyAccessToken returns the user id an access token was issued to.
func (m *Manager) VerifyAccessToken(token string) (string, error) {
	if token == "" {
		return "", apperror.Unauthorized("unauthorized request")
	}

	userID, err := m.parse(token, m.accessSecret, useAccess)
	switch {
	case errors.Is(err, errTokenExpired):
		return "", apperror.Wrap(apperror.KindUnauthorized, "access token expired", err)
	case err != nil:
		return "", apperror.Wrap(apperror.KindUnauthorized, "invalid access token", err)
	}
	return userID, nil
}

// Rotate exchanges the user's current refresh token for a new pair. The swap
// only succeeds while the presented token is still the stored one, so of two
// concurrent rotations with the same token exactly one wins.
func (m *Manager) Rotate(ctx context.Context, presented string) (models.SessionTokens, error) {
	if presented == "" {
		m.observe(RotationInvalid)
		return models.SessionTokens{}, apperror.Unauthorized("unauthorized request")
	}

	userID, err := m.parse(presented, m.refreshSecret, useRefresh)
	if err != nil {
		m.observe(RotationInvalid)
		if errors.Is(err, errTokenExpired) {
			return models.SessionTokens{}, apperror.Wrap(apperror.KindUnauthorized, "refresh token expired", err)
		}
		return models.SessionTokens{}, apperror.Wrap(apperror.KindUnauthorized, "invalid refresh token", err)
	}

	tokens, err := m.mint(userID)
	if err != nil {
		m.observe(RotationFailed)
		return models.SessionTokens{}, err
	}

	err = m.store.CompareAndSwapRefreshToken(ctx, userID, presented, tokens.RefreshToken)
	switch {
	case errors.Is(err, ErrUnknownUser):
		m.observe(RotationUnknownUser)
		return models.SessionTokens{}, apperror.Wrap(apperror.KindUnauthorized, "invalid refresh token", err)
	case errors.Is(err, ErrRefreshTokenMismatch):
		m.observe(RotationSuperseded)
		return models.SessionTokens{}, apperror.Wrap(apperror.KindUnauthorized, "refresh token is expired or used", err)
	case err != nil:
		m.observe(RotationFailed)
		return models.SessionTokens{}, apperror.Internal("failed to rotate refresh token", err)
	}

	m.observe(RotationSucceeded)
	return tokens, nil
}

// Revoke clears the user's refresh token. Revoking twice is not an error.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if userID == "" {
		return apperror.BadRequest("user id must be provided")
	}
	if err := m.store.ClearRefreshToken(ctx, userID); err != nil {
		return apperror.Internal("failed to revoke session", err)
	}
	return nil
}

func (m *Manager) mint(userID string) (models.SessionTokens, error) {
	now := m.now().UTC()
	accessExpires := now.Add(m.accessTTL)
	refreshExpires := now.Add(m.refreshTTL)

	accessToken, err := m.sign(userID, useAccess, m.accessSecret, now, accessExpires)
	if err != nil {
		return models.SessionTokens{}, apperror.Internal("failed to sign access token", err)
	}
	refreshToken, err := m.sign(userID, useRefresh, m.refreshSecret, now, refreshExpires)
	if err != nil {
		return models.SessionTokens{}, apperror.Internal("failed to sign refresh token", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpires,
	}, nil
}

func (m *Manager) sign(userID, use string, secret []byte, issuedAt, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Type: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	return token.SignedString(secret)
}

func (m *Manager) parse(token string, secret []byte, use string) (string, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errTokenExpired
		}
		return "", errors.Join(errTokenInvalid, err)
	}
	if !parsed.Valid || c.Type != use || c.Subject == "" {
		return "", errTokenInvalid
	}
	return c.Subject, nil
}
