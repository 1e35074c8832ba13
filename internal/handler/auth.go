package handler

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// NewAdminAuth returns middleware gating admin routes behind a bearer
// token. Authorization policy is owned by an external collaborator; this
// is only the boundary check. An empty configured token locks admin
// routes out entirely rather than leaving them open.
func NewAdminAuth(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return fail(c, fiber.StatusForbidden, "Admin access is not configured")
		}

		const prefix = "Bearer "
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, prefix) {
			return fail(c, fiber.StatusUnauthorized, "Not authorized, no token")
		}

		supplied := strings.TrimPrefix(header, prefix)
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
			return fail(c, fiber.StatusUnauthorized, "Not authorized, token failed")
		}
		return c.Next()
	}
}
