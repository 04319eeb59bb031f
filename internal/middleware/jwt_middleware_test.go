package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"katalog/internal/apperrors"
	"katalog/internal/middleware"
	"katalog/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAuthenticator struct {
	users map[string]*models.User
	err   error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[token]
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}
	return user, nil
}

func newGuardedApp(auth middleware.Authenticator) *fiber.App {
	app := fiber.New()
	app.Use(middleware.RequestLogger(zap.NewNop()))
	admin := app.Group("/admin", middleware.AuthRequired(auth, zap.NewNop()))
	admin.Get("/list", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"email": middleware.CurrentUser(c).Email})
	})
	return app
}

func TestAuthRequired(t *testing.T) {
	auth := stubAuthenticator{users: map[string]*models.User{
		"good-token": {ID: "user-1", Email: "a@x.com"},
	}}
	app := newGuardedApp(auth)

	cases := []struct {
		name   string
		cookie string
		status int
	}{
		{"no cookie", "", http.StatusUnauthorized},
		{"bad token", "bad-token", http.StatusUnauthorized},
		{"valid token", "good-token", http.StatusOK},
	}

	var unauthorizedBodies []map[string]string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/list", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: tc.cookie})
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tc.status == http.StatusOK {
				assert.Equal(t, "a@x.com", body["email"])
			} else {
				unauthorizedBodies = append(unauthorizedBodies, body)
			}
		})
	}

	require.Len(t, unauthorizedBodies, 2)
	assert.Equal(t, unauthorizedBodies[0], unauthorizedBodies[1], "no distinction between missing and bad token")
	assert.Equal(t, "Unauthorized", unauthorizedBodies[0]["msg"])
}

func TestAuthRequired_StorageFailureStillDenies(t *testing.T) {
	app := newGuardedApp(stubAuthenticator{err: apperrors.Storage(errors.New("db down"), "failed to load user")})

	req := httptest.NewRequest(http.MethodGet, "/admin/list", nil)
	req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: "anything"})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCurrentUser_Unbound(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		if middleware.CurrentUser(c) != nil {
			return c.SendStatus(http.StatusInternalServerError)
		}
		return c.SendStatus(http.StatusNoContent)
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
