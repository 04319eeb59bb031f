package repositories

import (
	"context"
	"time"

	"katalog/internal/models"
)

// UserRepository defines the interface for credential storage. Lookups
// return (nil, nil) when no user matches.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	// ConsumeResetToken sets passwordHash and clears the reset fields of the
	// user holding token, provided it has not expired at now. It reports
	// whether a user was updated.
	ConsumeResetToken(ctx context.Context, token string, now time.Time, passwordHash string) (bool, error)
}
