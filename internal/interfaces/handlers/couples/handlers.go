package couples

import (
	couplesvc "gatelist-backend/internal/application/couples"
	"gatelist-backend/internal/middleware"
	"gatelist-backend/internal/pkg/response"
	"gatelist-backend/internal/tenantauth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *couplesvc.Service
}

func serviceError(c *fiber.Ctx, err error) error {
	switch err {
	case couplesvc.ErrCoupleNotFound:
		return response.NotFound(c, err.Error())
	case couplesvc.ErrDuplicateUsername:
		return response.Conflict(c, err.Error())
	case couplesvc.ErrInvalidInput:
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case tenantauth.ErrUnauthorized:
		return response.Unauthorized(c, err.Error())
	default:
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}

// CreateCouple POST /api/v1/couples (operator only, enforced by router).
func (h *Handlers) CreateCouple(c *fiber.Ctx) error {
	var in couplesvc.CreateCoupleInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	couple, err := h.Service.Create(c.Context(), in)
	if err != nil {
		return serviceError(c, err)
	}
	return response.SuccessCreated(c, "Couple created successfully", couple, nil)
}

// ListCouples GET /api/v1/couples (operator only, enforced by router).
func (h *Handlers) ListCouples(c *fiber.Ctx) error {
	list, err := h.Service.List(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Couples fetched successfully", list, nil)
}

// GetCouple GET /api/v1/couples/:id — operator or the owning couple.
func (h *Handlers) GetCouple(c *fiber.Ctx) error {
	caller, err := tenantauth.CallerFromSession(middleware.GetUser(c))
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}
	scope, err := tenantauth.Authorize(caller, "")
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid couple id", fiber.StatusBadRequest, nil)
	}
	couple, err := h.Service.Get(c.Context(), scope, id)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Couple fetched successfully", couple, nil)
}

// UpdateCouple PATCH /api/v1/couples/:id — operator or the owning couple;
// the updatable field set is fixed by UpdateCoupleInput.
func (h *Handlers) UpdateCouple(c *fiber.Ctx) error {
	caller, err := tenantauth.CallerFromSession(middleware.GetUser(c))
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}
	scope, err := tenantauth.Authorize(caller, "")
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid couple id", fiber.StatusBadRequest, nil)
	}
	var in couplesvc.UpdateCoupleInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	couple, err := h.Service.Update(c.Context(), scope, id, in)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Couple updated successfully", couple, nil)
}

// DeleteCouple DELETE /api/v1/couples/:id (operator only, enforced by
// router). Hard delete, cascades to guests and tags.
func (h *Handlers) DeleteCouple(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid couple id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.Delete(c.Context(), id); err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Couple deleted successfully", nil, nil)
}
