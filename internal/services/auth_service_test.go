package services_test

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"katalog/internal/apperrors"
	"katalog/internal/models"
	"katalog/internal/repositories"
	"katalog/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	args := m.Called(ctx, token, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ConsumeResetToken(ctx context.Context, token string, now time.Time, passwordHash string) (bool, error) {
	args := m.Called(ctx, token, now, passwordHash)
	return args.Bool(0), args.Error(1)
}

// captureNotifier records reset deliveries instead of sending mail.
type captureNotifier struct {
	mu     sync.Mutex
	tokens map[string]string
	err    error
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{tokens: make(map[string]string)}
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, email, token string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.tokens[email] = token
	return nil
}

func (n *captureNotifier) tokenFor(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens[email]
}

// TestMain is used to setup test environment
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func newAuthService(repo repositories.UserRepository, notifier services.ResetNotifier) *services.AuthService {
	return services.NewAuthService(
		repo,
		services.NewBcryptHasher(bcrypt.MinCost),
		services.NewTokenService(testJWTSecret, services.AccessTokenTTL),
		notifier,
		nil,
	)
}

func TestAuthService_RegisterUser(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, newCaptureNotifier())

	// Test successful registration
	mockRepo.On("GetByEmail", ctx, "a@x.com").Return(nil, nil).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()

	user, err := authService.RegisterUser(ctx, " A@x.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))
	mockRepo.AssertExpectations(t)

	// Test email already registered
	mockRepo.On("GetByEmail", ctx, "a@x.com").Return(&models.User{ID: "1", Email: "a@x.com"}, nil).Once()
	_, err = authService.RegisterUser(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, apperrors.ErrUserExists)
	mockRepo.AssertExpectations(t)

	// Test storage failure
	storageErr := apperrors.Storage(errors.New("connection refused"), "failed to load user")
	mockRepo.On("GetByEmail", ctx, "b@x.com").Return(nil, storageErr).Once()
	_, err = authService.RegisterUser(ctx, "b@x.com", "secret1")
	assert.True(t, apperrors.Is(err, apperrors.KindStorage))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginUser(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, newCaptureNotifier())

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	user := &models.User{ID: "user-123", Email: "a@x.com", PasswordHash: string(hashedPassword)}

	// Test successful login
	mockRepo.On("GetByEmail", ctx, "a@x.com").Return(user, nil).Once()
	token, err := authService.LoginUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	userID, err := authService.Tokens().VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)

	// Wrong password and unknown email look the same
	mockRepo.On("GetByEmail", ctx, "a@x.com").Return(user, nil).Once()
	_, wrongPassword := authService.LoginUser(ctx, "a@x.com", "wrongpassword")

	mockRepo.On("GetByEmail", ctx, "ghost@x.com").Return(nil, nil).Once()
	_, unknownEmail := authService.LoginUser(ctx, "ghost@x.com", "secret1")

	assert.ErrorIs(t, wrongPassword, apperrors.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword, unknownEmail)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, newCaptureNotifier())

	token, err := authService.Tokens().IssueAccessToken("user-123")
	require.NoError(t, err)

	mockRepo.On("GetByID", ctx, "user-123").Return(&models.User{ID: "user-123"}, nil).Once()
	user, err := authService.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", user.ID)

	// Deleted user
	mockRepo.On("GetByID", ctx, "user-123").Return(nil, nil).Once()
	_, err = authService.Authenticate(ctx, token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// Garbage token never reaches the repository
	_, err = authService.Authenticate(ctx, "invalid.token.string")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_PasswordResetIsSingleUse(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMockUserRepository()
	notifier := newCaptureNotifier()
	authService := newAuthService(repo, notifier)

	_, err := authService.RegisterUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, authService.RequestPasswordReset(ctx, "a@x.com"))
	token := notifier.tokenFor("a@x.com")
	require.Len(t, token, 40)

	user, err := authService.ValidateResetToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)

	require.NoError(t, authService.ResetPassword(ctx, token, "newsecret"))

	_, err = authService.LoginUser(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = authService.LoginUser(ctx, "a@x.com", "newsecret")
	assert.NoError(t, err)

	err = authService.ResetPassword(ctx, token, "thirdsecret")
	assert.ErrorIs(t, err, apperrors.ErrInvalidResetToken)
	_, err = authService.ValidateResetToken(ctx, token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidResetToken)

	stored, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, stored.ResetToken)
	assert.Nil(t, stored.ResetTokenExpiry)
}

func TestAuthService_ExpiredResetToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	repo := repositories.NewMockUserRepository()
	notifier := newCaptureNotifier()
	authService := newAuthService(repo, notifier).WithClock(func() time.Time { return now })

	_, err := authService.RegisterUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, authService.RequestPasswordReset(ctx, "a@x.com"))
	token := notifier.tokenFor("a@x.com")

	now = now.Add(services.ResetTokenTTL + time.Second)

	_, err = authService.ValidateResetToken(ctx, token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidResetToken)
	err = authService.ResetPassword(ctx, token, "newsecret")
	assert.ErrorIs(t, err, apperrors.ErrInvalidResetToken)

	_, err = authService.LoginUser(ctx, "a@x.com", "secret1")
	assert.NoError(t, err, "old password still works after a failed reset")
}

func TestAuthService_RequestPasswordReset_UnknownEmail(t *testing.T) {
	ctx := context.Background()
	notifier := newCaptureNotifier()
	authService := newAuthService(repositories.NewMockUserRepository(), notifier)

	assert.NoError(t, authService.RequestPasswordReset(ctx, "ghost@x.com"))
	assert.Empty(t, notifier.tokenFor("ghost@x.com"))
}

func TestAuthService_RequestPasswordReset_DeliveryFailure(t *testing.T) {
	ctx := context.Background()
	notifier := newCaptureNotifier()
	notifier.err = errors.New("smtp down")
	authService := newAuthService(repositories.NewMockUserRepository(), notifier)

	_, err := authService.RegisterUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	err = authService.RequestPasswordReset(ctx, "a@x.com")
	assert.ErrorContains(t, err, "failed to deliver password reset")
}
