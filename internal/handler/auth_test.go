package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthApp(token string) *fiber.App {
	app := fiber.New()
	app.Get("/admin", NewAdminAuth(token), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})
	return app
}

func TestAdminAuth_UnconfiguredTokenLocksOut(t *testing.T) {
	app := newAuthApp("")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer anything")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Admin access is not configured", body["message"])
}

func TestAdminAuth_MissingToken(t *testing.T) {
	app := newAuthApp("secret-token")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Not authorized, no token", body["message"])
}

func TestAdminAuth_WrongToken(t *testing.T) {
	app := newAuthApp("secret-token")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer wrong-token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Not authorized, token failed", body["message"])
}

func TestAdminAuth_ValidToken(t *testing.T) {
	app := newAuthApp("secret-token")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer secret-token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
