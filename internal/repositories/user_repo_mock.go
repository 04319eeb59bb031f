package repositories

import (
	"context"
	"strings"
	"sync"
	"time"

	"katalog/internal/apperrors"
	"katalog/internal/models"

	"github.com/google/uuid"
)

// MockUserRepository is an in-memory implementation of UserRepository.
type MockUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]models.User),
	}
}

// Create adds a new user, rejecting duplicate emails.
func (r *MockUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperrors.ErrUserExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = copyUser(*user)
	return nil
}

// Update replaces a stored user.
func (r *MockUserRepository) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return apperrors.NotFound("user with ID %s not found for update", user.ID)
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = copyUser(*user)
	return nil
}

// GetByEmail returns the user with email, if any.
func (r *MockUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			found := copyUser(u)
			return &found, nil
		}
	}
	return nil, nil
}

// GetByID returns the user with id, if any.
func (r *MockUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	found := copyUser(u)
	return &found, nil
}

// GetByResetToken returns the user holding an unexpired token.
func (r *MockUserRepository) GetByResetToken(_ context.Context, token string, now time.Time) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.HasValidReset(token, now) {
			found := copyUser(u)
			return &found, nil
		}
	}
	return nil, nil
}

// ConsumeResetToken updates the password and clears the reset fields under
// the write lock.
func (r *MockUserRepository) ConsumeResetToken(_ context.Context, token string, now time.Time, passwordHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range r.users {
		if !u.HasValidReset(token, now) {
			continue
		}
		u.PasswordHash = passwordHash
		u.ClearReset()
		u.UpdatedAt = now
		r.users[id] = u
		return true, nil
	}
	return false, nil
}

// copyUser detaches the reset pointers so callers cannot mutate stored state.
func copyUser(u models.User) models.User {
	if u.ResetToken != nil {
		token := *u.ResetToken
		u.ResetToken = &token
	}
	if u.ResetTokenExpiry != nil {
		expiry := *u.ResetTokenExpiry
		u.ResetTokenExpiry = &expiry
	}
	return u
}
