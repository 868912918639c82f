package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"echochat-backend/internal/database"
	"echochat-backend/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUsername  = errors.New("username is already taken")
	ErrValidation         = errors.New("validation failed")
	ErrTokenNotFound      = errors.New("remember token not found")
)

// RememberTokenTTL is how long a remember-me token stays valid
const RememberTokenTTL = 7 * 24 * time.Hour

// UserStore is the persistence the auth service needs
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByRememberTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
	SetRememberToken(ctx context.Context, userID int64, tokenHash string, expiry time.Time) error
	ClearRememberToken(ctx context.Context, userID int64) error
	UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error
}

// Service handles user accounts and remember-me tokens
type Service struct {
	users  UserStore
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new auth service
func NewService(users UserStore, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// CreateUser registers a new user with a bcrypt-hashed password
func (s *Service) CreateUser(ctx context.Context, username, password, email string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}

	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return nil, ErrDuplicateUsername
	}
	if !errors.Is(err, database.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := HashPassword(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, maxPasswordBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, database.ErrUserAlreadyExists) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// ValidateCredentials checks a username/password pair and returns the user.
// Unknown users, empty input and wrong passwords all yield ErrInvalidCredentials.
// When rememberMe is false any stored remember-me token is revoked.
func (s *Service) ValidateCredentials(ctx context.Context, username, password string, rememberMe bool) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	valid, err := VerifyPassword(password, user.PasswordHash)
	if err != nil || !valid {
		return nil, ErrInvalidCredentials
	}

	if !rememberMe && user.HasRememberToken() {
		if err := s.users.ClearRememberToken(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to clear remember token: %w", err)
		}
		user.RememberTokenHash = ""
		user.RememberTokenExpiry = nil
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLogin = &now
	}

	return user, nil
}

// IssueRememberToken stores a fresh remember-me token for the user and returns it
func (s *Service) IssueRememberToken(ctx context.Context, user *models.User) (string, time.Time, error) {
	token := newRememberToken()
	expiry := s.now().Add(RememberTokenTTL)
	tokenHash := HashToken(token)

	if err := s.users.SetRememberToken(ctx, user.ID, tokenHash, expiry); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store remember token: %w", err)
	}
	user.RememberTokenHash = tokenHash
	user.RememberTokenExpiry = &expiry

	return token, expiry, nil
}

// ResolveRememberToken returns the user owning a non-expired remember-me token
func (s *Service) ResolveRememberToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrTokenNotFound
	}

	user, err := s.users.GetByRememberTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up remember token: %w", err)
	}

	if user.RememberTokenExpiry == nil || !user.RememberTokenExpiry.After(s.now()) {
		return nil, ErrTokenNotFound
	}

	return user, nil
}

// ClearRememberToken revokes the user's remember-me token
func (s *Service) ClearRememberToken(ctx context.Context, userID int64) error {
	if err := s.users.ClearRememberToken(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear remember token: %w", err)
	}
	return nil
}

// GetUser returns the user with the given ID
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}
