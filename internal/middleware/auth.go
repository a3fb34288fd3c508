package middleware

import (
	"gatelist-backend/internal/pkg/response"
	"gatelist-backend/internal/tenantauth"

	"github.com/gofiber/fiber/v2"
)

const userLocal = "user"

// RequireAuth ensures a caller is in the session. Returns 401 with the
// standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// RequireOperator ensures the session caller holds the operator role.
func RequireOperator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := tenantauth.CallerFromSession(c.Locals(userLocal))
		if err != nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if caller.Role != tenantauth.RoleOperator {
			return response.Error(c, "Operator access required", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}
