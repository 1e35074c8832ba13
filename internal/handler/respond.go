package handler

import "github.com/gofiber/fiber/v2"

// serverError writes the generic failure envelope. Internal detail is
// echoed only in development mode; production callers get nothing past
// "Server error".
func serverError(c *fiber.Ctx, err error, devMode bool) error {
	body := fiber.Map{
		"success": false,
		"message": "Server error",
	}
	if devMode && err != nil {
		body["error"] = err.Error()
	}
	return c.Status(fiber.StatusInternalServerError).JSON(body)
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
