package middleware

import (
	"context"

	"katalog/internal/apperrors"
	"katalog/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TokenCookie is the cookie carrying the access token.
const TokenCookie = "token"

const userLocalsKey = "user"

// Authenticator resolves an access token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthRequired is a Fiber middleware admitting only requests whose token
// cookie resolves to an existing user. Every rejection gets the same 401.
func AuthRequired(auth Authenticator, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		user, err := auth.Authenticate(c.UserContext(), c.Cookies(TokenCookie))
		if err != nil {
			if apperrors.Is(err, apperrors.KindStorage) {
				logger.Error("auth lookup failed", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"msg": apperrors.ErrUnauthorized.Message,
			})
		}

		// Store the user in Fiber context for subsequent handlers
		c.Locals(userLocalsKey, user)
		return c.Next()
	}
}

// CurrentUser returns the user bound by AuthRequired, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocalsKey).(*models.User)
	return user
}
