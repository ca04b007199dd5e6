// Package accounts implements registration, login and account maintenance.
package accounts

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
)

const (
	minPasswordLength = 8
	// bcrypt ignores anything past 72 bytes.
	maxPasswordLength = 72
)

var errInvalidCredentials = apperror.Unauthorized("invalid user credentials")

// Tokens is the subset of the token manager used by the service.
type Tokens interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Rotate(ctx context.Context, presented string) (models.SessionTokens, error)
	Revoke(ctx context.Context, userID string) error
}

// Media hosts and removes user images.
type Media interface {
	Store(ctx context.Context, localPath, contentType string, kind storage.Kind) (models.MediaRef, error)
	DeleteQuietly(ctx context.Context, ref models.MediaRef, kind storage.Kind)
}

// RegisterInput carries a registration request. Avatar is required.
type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Avatar     storage.StagedFile
	CoverImage storage.StagedFile
}

// LoginInput identifies a user by username or email.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// Service coordinates users, credentials, tokens and media.
type Service struct {
	users  repositories.UserRepository
	tokens Tokens
	hasher auth.PasswordHasher
	media  Media
	now    func() time.Time
}

// NewService constructs the account service.
func NewService(users repositories.UserRepository, tokens Tokens, hasher auth.PasswordHasher, media Media) *Service {
	return &Service{users: users, tokens: tokens, hasher: hasher, media: media, now: time.Now}
}

// Register creates a new user. No record exists afterwards unless the call succeeds.
func (s *Service) Register(ctx context.Context, in RegisterInput) (user models.User, err error) {
	ctx, span := logging.StartSpan(ctx, "accounts.register")
	defer func() { span.End(err) }()
	defer in.Avatar.Discard()
	defer in.CoverImage.Discard()

	fullName := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if fullName == "" || email == "" || username == "" || strings.TrimSpace(in.Password) == "" {
		return models.User{}, apperror.BadRequest("all fields are required")
	}
	if err := validateEmail(email); err != nil {
		return models.User{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return models.User{}, err
	}
	if !in.Avatar.Present() {
		return models.User{}, apperror.BadRequest("avatar file is required")
	}

	_, err = s.users.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		return models.User{}, apperror.Conflict("user with email or username already exists")
	case !errors.Is(err, repositories.ErrNotFound):
		return models.User{}, apperror.Internal("failed to check existing users", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, apperror.Internal("failed to hash password", err)
	}

	avatar, err := s.media.Store(ctx, in.Avatar.Path, in.Avatar.ContentType, storage.KindImage)
	if err != nil {
		return models.User{}, apperror.Wrap(apperror.KindBadRequest, "avatar upload failed", err)
	}

	var cover models.MediaRef
	if in.CoverImage.Present() {
		cover, err = s.media.Store(ctx, in.CoverImage.Path, in.CoverImage.ContentType, storage.KindImage)
		if err != nil {
			s.media.DeleteQuietly(ctx, avatar, storage.KindImage)
			return models.User{}, apperror.Wrap(apperror.KindBadRequest, "cover image upload failed", err)
		}
	}

	now := s.now().UTC()
	user = models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Password:     hash,
		Avatar:       avatar,
		CoverImage:   cover,
		WatchHistory: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		s.media.DeleteQuietly(ctx, avatar, storage.KindImage)
		s.media.DeleteQuietly(ctx, cover, storage.KindImage)
		if errors.Is(err, repositories.ErrConflict) {
			return models.User{}, apperror.Conflict("user with email or username already exists")
		}
		return models.User{}, apperror.Internal("something went wrong while registering the user", err)
	}

	user.Password = ""
	return user, nil
}

// Login verifies credentials and issues a token pair. Any previously issued
// refresh token stops working.
func (s *Service) Login(ctx context.Context, in LoginInput) (user models.User, tokens models.SessionTokens, err error) {
	ctx, span := logging.StartSpan(ctx, "accounts.login")
	defer func() { span.End(err) }()

	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" && email == "" {
		return models.User{}, models.SessionTokens{}, apperror.BadRequest("username or email is required")
	}
	if in.Password == "" {
		return models.User{}, models.SessionTokens{}, apperror.BadRequest("password is required")
	}

	user, err = s.users.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return models.User{}, models.SessionTokens{}, errInvalidCredentials
	case err != nil:
		return models.User{}, models.SessionTokens{}, apperror.Internal("failed to load user", err)
	}

	if !s.hasher.Compare(user.Password, in.Password) {
		return models.User{}, models.SessionTokens{}, errInvalidCredentials
	}

	tokens, err = s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	user.Password = ""
	return user, tokens, nil
}

// Logout revokes the user's refresh token.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return apperror.Unauthorized("unauthorized request")
	}
	return s.tokens.Revoke(ctx, userID)
}

// Refresh rotates a refresh token into a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return models.SessionTokens{}, apperror.Unauthorized("unauthorized request")
	}
	return s.tokens.Rotate(ctx, refreshToken)
}

// ChangePassword replaces the password after checking the old one and ends
// the current session.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (err error) {
	ctx, span := logging.StartSpan(ctx, "accounts.change_password")
	defer func() { span.End(err) }()

	if oldPassword == "" || newPassword == "" {
		return apperror.BadRequest("old and new password are required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Compare(user.Password, oldPassword) {
		return apperror.BadRequest("invalid old password")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperror.Internal("failed to hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperror.NotFound("user not found")
		}
		return apperror.Internal("failed to update password", err)
	}

	return s.tokens.Revoke(ctx, userID)
}

// CurrentUser returns the caller's account.
func (s *Service) CurrentUser(ctx context.Context, userID string) (models.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	user.Password = ""
	return user, nil
}

// UpdateAccount changes the display name and email.
func (s *Service) UpdateAccount(ctx context.Context, userID, fullName, email string) (user models.User, err error) {
	ctx, span := logging.StartSpan(ctx, "accounts.update_account")
	defer func() { span.End(err) }()

	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return models.User{}, apperror.BadRequest("all fields are required")
	}
	if err := validateEmail(email); err != nil {
		return models.User{}, err
	}

	user, err = s.users.UpdateAccount(ctx, userID, fullName, email)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return models.User{}, apperror.NotFound("user not found")
	case errors.Is(err, repositories.ErrConflict):
		return models.User{}, apperror.Conflict("email is already in use")
	case err != nil:
		return models.User{}, apperror.Internal("failed to update account", err)
	}

	user.Password = ""
	return user, nil
}

// UpdateAvatar replaces the avatar image.
func (s *Service) UpdateAvatar(ctx context.Context, userID string, file storage.StagedFile) (models.User, error) {
	return s.replaceImage(ctx, "accounts.update_avatar", userID, file, "avatar", s.users.SwapAvatar)
}

// UpdateCoverImage replaces the cover image.
func (s *Service) UpdateCoverImage(ctx context.Context, userID string, file storage.StagedFile) (models.User, error) {
	return s.replaceImage(ctx, "accounts.update_cover_image", userID, file, "cover image", s.users.SwapCoverImage)
}

// replaceImage uploads the new asset, swaps the stored reference and only
// then deletes the old asset. If the swap fails the new asset is removed.
func (s *Service) replaceImage(
	ctx context.Context,
	op, userID string,
	file storage.StagedFile,
	label string,
	swap func(context.Context, string, models.MediaRef) (models.MediaRef, error),
) (user models.User, err error) {
	ctx, span := logging.StartSpan(ctx, op)
	defer func() { span.End(err) }()
	defer file.Discard()

	if userID == "" {
		return models.User{}, apperror.Unauthorized("unauthorized request")
	}
	if !file.Present() {
		return models.User{}, apperror.BadRequest(label + " file is missing")
	}

	next, err := s.media.Store(ctx, file.Path, file.ContentType, storage.KindImage)
	if err != nil {
		return models.User{}, apperror.Wrap(apperror.KindBadRequest, "error while uploading "+label, err)
	}

	previous, err := swap(ctx, userID, next)
	if err != nil {
		s.media.DeleteQuietly(ctx, next, storage.KindImage)
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, apperror.NotFound("user not found")
		}
		return models.User{}, apperror.Internal("failed to update "+label, err)
	}
	if previous.ProviderID != "" && previous.ProviderID != next.ProviderID {
		s.media.DeleteQuietly(ctx, previous, storage.KindImage)
	}

	return s.CurrentUser(ctx, userID)
}

func (s *Service) loadUser(ctx context.Context, userID string) (models.User, error) {
	if userID == "" {
		return models.User{}, apperror.Unauthorized("unauthorized request")
	}
	user, err := s.users.FindByID(ctx, userID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return models.User{}, apperror.NotFound("user not found")
	case err != nil:
		return models.User{}, apperror.Internal("failed to load user", err)
	}
	return user, nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperror.BadRequest("invalid email address")
	}
	return nil
}

func validatePassword(password string) error {
	switch {
	case len(password) < minPasswordLength:
		return apperror.BadRequest("password must be at least 8 characters")
	case len(password) > maxPasswordLength:
		return apperror.BadRequest("password must be at most 72 characters")
	}
	return nil
}
