package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"katalog/internal/apperrors"
	"katalog/internal/models"
	"katalog/internal/repositories"

	"go.uber.org/zap"
)

// AuthService handles registration, login, password reset and access token
// verification.
type AuthService struct {
	userRepo repositories.UserRepository
	hasher   PasswordHasher
	tokens   *TokenService
	notifier ResetNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, hasher PasswordHasher, tokens *TokenService, notifier ResetNotifier, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source of the service and its token issuer.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	s.tokens.WithClock(now)
	return s
}

// Tokens exposes the token service, mainly for cookie lifetime.
func (s *AuthService) Tokens() *TokenService {
	return s.tokens
}

// RegisterUser creates a user with a hashed password.
func (s *AuthService) RegisterUser(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.ErrUserExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	user := &models.User{Email: email, PasswordHash: hash}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// LoginUser checks credentials and returns a signed access token. Unknown
// email and wrong password produce the same error.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", err
	}
	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		return "", apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Authenticate resolves an access token to an existing user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		s.logger.Debug("access token rejected", zap.Error(err))
		return nil, apperrors.ErrUnauthorized
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return user, nil
}

// RequestPasswordReset issues a reset token for email and sends it through
// the notifier. Unknown emails are ignored so callers cannot probe accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil {
		s.logger.Info("password reset requested for unknown email")
		return nil
	}

	token, expiry, err := s.tokens.IssueResetToken()
	if err != nil {
		return err
	}
	user.IssueReset(token, expiry)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, token, expiry); err != nil {
		return fmt.Errorf("failed to deliver password reset: %w", err)
	}

	s.logger.Info("password reset issued", zap.String("user_id", user.ID), zap.Time("expires_at", expiry))
	return nil
}

// ValidateResetToken returns the user holding token if it is still valid.
func (s *AuthService) ValidateResetToken(ctx context.Context, token string) (*models.User, error) {
	user, err := s.userRepo.GetByResetToken(ctx, token, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrInvalidResetToken
	}
	return user, nil
}

// ResetPassword redeems token and sets a new password. The token is
// cleared in the same write, so it works at most once.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	ok, err := s.userRepo.ConsumeResetToken(ctx, token, s.now().UTC(), hash)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrInvalidResetToken
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
