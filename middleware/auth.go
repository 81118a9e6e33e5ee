package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Protected returns a handler that requires a shared static key, matched
// against any of three header variants: X-API-Key, X-Api-Key, and
// "Authorization: Bearer <key>". Grounded on the teacher's
// jwt_middleware.go Authorization-header parsing idiom, generalized to a
// fixed-secret comparison instead of a JWT.
//
// When key is empty, auth is disabled and every request passes through —
// matching spec.md §4.13's "when unset, auth is disabled".
func Protected(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return c.Next()
		}

		presented := presentedKey(c)
		if presented == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key missing",
			})
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid API key",
			})
		}
		return c.Next()
	}
}

// presentedKey extracts the caller-supplied key from whichever of the three
// supported header variants is present.
func presentedKey(c *fiber.Ctx) string {
	if v := c.Get("X-API-Key"); v != "" {
		return v
	}
	if v := c.Get("X-Api-Key"); v != "" {
		return v
	}
	if auth := c.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}
