package handlers

import (
	"time"

	"katalog/internal/apperrors"
	"katalog/internal/flash"
	"katalog/internal/middleware"
	"katalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const forgotPasswordReply = "If an account exists for that email, a password reset link has been sent."

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	responder
	authService  *services.AuthService
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, flashes flash.Store, cookieSecure bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		responder:    newResponder(flashes, logger),
		authService:  authService,
		cookieSecure: cookieSecure,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/login", h.ShowLogin)
	router.Post("/login", h.HandleLogin)
	router.Get("/register", h.ShowRegister)
	router.Post("/register", h.HandleRegister)
	router.Get("/logout", h.HandleLogout)
	router.Get("/forgot-password", h.ShowForgotPassword)
	router.Post("/forgot-password", h.HandleForgotPassword)
	router.Get("/reset/:token", h.ShowResetPassword)
	router.Post("/reset/:token", h.HandleResetPassword)
}

// ShowLogin handles the login page.
func (h *AuthHandler) ShowLogin(c *fiber.Ctx) error {
	return h.render(c, "page/login", "Login", nil)
}

// ShowRegister handles the registration page.
func (h *AuthHandler) ShowRegister(c *fiber.Ctx) error {
	return h.render(c, "page/register", "Register", nil)
}

// ShowForgotPassword handles the forgot-password page.
func (h *AuthHandler) ShowForgotPassword(c *fiber.Ctx) error {
	return h.render(c, "page/forgot-password", "Forgot Password", nil)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	if _, err := h.authService.RegisterUser(c.UserContext(), req.Email, req.Password); err != nil {
		return h.fail(c, err)
	}
	return c.Redirect("/login")
}

// HandleLogin checks credentials and stores the access token in a cookie.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	token, err := h.authService.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.authService.Tokens().TTL().Seconds()),
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect("/admin/list")
}

// HandleLogout clears the token cookie.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect("/login")
}

// HandleForgotPassword answers the same way whether or not the email is
// registered. Only storage failures surface to the client.
func (h *AuthHandler) HandleForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	if err := h.authService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		if apperrors.Is(err, apperrors.KindStorage) {
			return h.fail(c, err)
		}
		h.logger.Error("password reset request failed", zap.Error(err))
	}
	return c.JSON(fiber.Map{"msg": forgotPasswordReply})
}

// ShowResetPassword renders the reset form for a live token.
func (h *AuthHandler) ShowResetPassword(c *fiber.Ctx) error {
	token := c.Params("token")
	if _, err := h.authService.ValidateResetToken(c.UserContext(), token); err != nil {
		return h.fail(c, err)
	}
	return h.render(c, "page/reset-password", "Reset Password", fiber.Map{"token": token})
}

// HandleResetPassword sets the new password and consumes the token.
func (h *AuthHandler) HandleResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	if err := h.authService.ResetPassword(c.UserContext(), c.Params("token"), req.Password); err != nil {
		return h.fail(c, err)
	}
	return h.redirectWithFlash(c, "/login", flash.Message{
		Type:    flash.TypeSuccess,
		Intro:   "Password updated!",
		Message: "You can now log in with your new password.",
	})
}
