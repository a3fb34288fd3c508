package checkin

import (
	checkinsvc "gatelist-backend/internal/application/checkin"
	"gatelist-backend/internal/middleware"
	"gatelist-backend/internal/pkg/response"
	"gatelist-backend/internal/tenantauth"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *checkinsvc.Service
}

// VerifyRequest declares the token kind explicitly; the verifier never
// guesses whether it got a code or an identifier.
type VerifyRequest struct {
	Kind     string `json:"kind"`
	Token    string `json:"token"`
	CoupleID string `json:"couple_id"`
}

// Verify POST /api/v1/checkin/verify — idempotent door check-in. An
// already-verified guest is a 200 with first_scan=false, never an error.
func (h *Handlers) Verify(c *fiber.Ctx) error {
	caller, err := tenantauth.CallerFromSession(middleware.GetUser(c))
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}

	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	scope, err := tenantauth.Authorize(caller, req.CoupleID)
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}

	res, err := h.Service.Verify(c.Context(), scope, checkinsvc.TokenKind(req.Kind), req.Token)
	if err != nil {
		switch err {
		case checkinsvc.ErrGuestNotFound:
			return response.NotFound(c, err.Error())
		case checkinsvc.ErrInvalidTokenKind:
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case tenantauth.ErrTenantRequired:
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	message := "Guest checked in"
	if !res.FirstScan {
		message = "Guest was already checked in"
	}
	return response.Success(c, message, fiber.Map{
		"first_scan": res.FirstScan,
		"guest":      res.Guest,
	}, nil)
}
