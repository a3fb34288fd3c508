package auth

import (
	"context"

	authsvc "gatelist-backend/internal/auth"
	"gatelist-backend/internal/middleware"
	"gatelist-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Service *authsvc.Service
	Rdb     *redis.Client
	Config  middleware.SessionConfig
}

// Login POST /api/v1/auth/login — authenticate couple or operator, create a
// fresh session, set cookie.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.Service == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req authsvc.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, authsvc.ErrUsernamePasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}

	shape, err := h.Service.Login(c.Context(), req)
	if err != nil {
		switch err {
		case authsvc.ErrUsernamePasswordRequired:
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case authsvc.ErrInvalidCredentials:
			return response.Unauthorized(c, err.Error())
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	sessionID := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, shape.SessionMap())

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = sessionID
	c.Cookie(&cookie)

	return response.Success(c, "Login successful", fiber.Map{"user": shape}, nil)
}

// Me GET /api/v1/auth/me — return the current session caller.
func (h *Handlers) Me(c *fiber.Ctx) error {
	shape, err := authsvc.VerifySession(middleware.GetUser(c))
	if err != nil {
		return response.Unauthorized(c, "Not authenticated")
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": shape}, nil)
}

// Logout DELETE /api/v1/auth/logout — drop the Redis session and clear the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	if sessionID != "" && h.Rdb != nil {
		_ = h.Rdb.Del(context.Background(), middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}
