package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"adsboard/internal/model"
	"adsboard/internal/repository"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AvatarUploader stores an inline profile image.
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, payload string) (*model.UploadResult, error)
	DeleteObject(ctx context.Context, key string) error
}

// UserService handles business logic for user operations
type UserService struct {
	repo    repository.UserRepository
	avatars AvatarUploader
	log     *zap.Logger
}

func NewUserService(repo repository.UserRepository, avatars AvatarUploader, log *zap.Logger) *UserService {
	return &UserService{
		repo:    repo,
		avatars: avatars,
		log:     log.Named("users"),
	}
}

// Register creates a new user account. A missing profile image falls back
// to a generated initials avatar.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if len(username) < model.MinUsernameLength {
		return nil, model.NewValidationError("username", fmt.Sprintf("must be at least %d characters", model.MinUsernameLength))
	}
	if !emailPattern.MatchString(email) {
		return nil, model.NewValidationError("email", "is not a valid email address")
	}
	if len(req.Password) < model.MinPasswordLength {
		return nil, model.NewValidationError("password", fmt.Sprintf("must be at least %d characters", model.MinPasswordLength))
	}

	exists, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameExists
	}

	exists, err = s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, model.ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:       username,
		Email:          email,
		PasswordHashed: string(hashedPassword),
		ProfileImage:   model.DefaultProfileImage(username),
	}

	image := strings.TrimSpace(req.ProfileImage)
	switch {
	case image == "":
	case IsInlineImage(image):
		res, err := s.avatars.UploadAvatar(ctx, image)
		if err != nil {
			return nil, avatarError(err)
		}
		user.ProfileImage = res.URL
		user.ProfileImageKey = &res.Key
	case IsRemoteURL(image):
		user.ProfileImage = image
	default:
		return nil, model.NewValidationError("profile_image", "must be an inline image or an http(s) URL")
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if user.ProfileImageKey != nil {
			if derr := s.avatars.DeleteObject(context.WithoutCancel(ctx), *user.ProfileImageKey); derr != nil {
				s.log.Warn("orphaned avatar not removed", zap.String("key", *user.ProfileImageKey), zap.Error(derr))
			}
		}
		return nil, err
	}

	s.log.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Login authenticates a user with email and password.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		// Don't reveal whether the email exists
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}
	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// SavePushToken stores the device push token of a user. An empty token
// clears it and stops notifications.
func (s *UserService) SavePushToken(ctx context.Context, userID int64, token string) error {
	token = strings.TrimSpace(token)
	var stored *string
	if token != "" {
		stored = &token
	}
	if err := s.repo.UpdatePushToken(ctx, userID, stored); err != nil {
		return err
	}
	s.log.Debug("push token updated", zap.Int64("user_id", userID), zap.Bool("cleared", stored == nil))
	return nil
}

func avatarError(err error) error {
	switch {
	case errors.Is(err, model.ErrFileTooLarge):
		return model.NewValidationError("profile_image", "image exceeds the size limit")
	case errors.Is(err, model.ErrInvalidImageType):
		return model.NewValidationError("profile_image", "unsupported image type, allowed: jpeg, png, gif, webp")
	case errors.Is(err, model.ErrInvalidDataURI):
		return model.NewValidationError("profile_image", "malformed inline image")
	case errors.Is(err, model.ErrInvalidImage):
		return model.NewValidationError("profile_image", "image data is corrupt or unreadable")
	}
	return fmt.Errorf("%w: %w", model.ErrUploadFailed, err)
}
